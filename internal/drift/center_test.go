package drift

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const tolerance = 1e-5

func meanOf(vectors [][]float32) []float64 {
	mean := make([]float64, len(vectors[0]))
	for _, v := range vectors {
		for j, x := range v {
			mean[j] += float64(x)
		}
	}
	for j := range mean {
		mean[j] /= float64(len(vectors))
	}
	return mean
}

func TestCentroid(t *testing.T) {
	vectors := [][]float32{
		{1, 2},
		{3, 4},
	}
	got, err := Centroid(vectors)
	if err != nil {
		t.Fatalf("Centroid: %v", err)
	}
	if diff := cmp.Diff([]float32{2, 3}, got); diff != "" {
		t.Errorf("centroid mismatch (-want +got):\n%s", diff)
	}
}

func TestCentroidErrors(t *testing.T) {
	if _, err := Centroid(nil); err == nil {
		t.Error("expected error for empty collection")
	}
	if _, err := Centroid([][]float32{{1, 2}, {1}}); err == nil {
		t.Error("expected error for mixed dimensions")
	}
}

func TestCenterProducesZeroMean(t *testing.T) {
	collections := [][][]float32{
		{{1, 2, 3}},
		{{1, 0}, {0, 1}},
		{{2.5, -1.5}, {3.5, 0.5}, {-6, 1}, {0.1, 0.9}},
	}

	for _, vectors := range collections {
		centered, err := Center(vectors)
		if err != nil {
			t.Fatalf("Center: %v", err)
		}
		if len(centered) != len(vectors) {
			t.Fatalf("expected %d vectors, got %d", len(vectors), len(centered))
		}

		for j, m := range meanOf(centered) {
			if math.Abs(m) > tolerance {
				t.Errorf("centered mean[%d] = %v, want ~0", j, m)
			}
		}
	}
}

func TestCenterDoesNotMutateInput(t *testing.T) {
	vectors := [][]float32{{1, 2}, {3, 4}}
	if _, err := Center(vectors); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([][]float32{{1, 2}, {3, 4}}, vectors); diff != "" {
		t.Errorf("input mutated (-want +got):\n%s", diff)
	}
}

func TestCenterJoint(t *testing.T) {
	primary := [][]float32{{2, 0}, {4, 0}}
	reference := [][]float32{{0, 2}, {0, 4}}

	centeredPrimary, centeredReference, err := CenterJoint(primary, reference)
	if err != nil {
		t.Fatalf("CenterJoint: %v", err)
	}

	// Combined centroid is (1.5, 1.5); both collections shift by it.
	if diff := cmp.Diff([][]float32{{0.5, -1.5}, {2.5, -1.5}}, centeredPrimary); diff != "" {
		t.Errorf("primary mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]float32{{-1.5, 0.5}, {-1.5, 2.5}}, centeredReference); diff != "" {
		t.Errorf("reference mismatch (-want +got):\n%s", diff)
	}

	// The joint mean of the centered union is zero.
	combined := append(append([][]float32{}, centeredPrimary...), centeredReference...)
	for j, m := range meanOf(combined) {
		if math.Abs(m) > tolerance {
			t.Errorf("joint mean[%d] = %v, want ~0", j, m)
		}
	}
}

func TestCentroidDistance(t *testing.T) {
	primary := [][]float32{{0, 0}, {2, 0}}
	reference := [][]float32{{4, 4}, {4, 0}}

	// Centroids are (1, 0) and (4, 2); distance is sqrt(9 + 4).
	got, err := CentroidDistance(primary, reference)
	if err != nil {
		t.Fatalf("CentroidDistance: %v", err)
	}
	want := math.Sqrt(13)
	if math.Abs(got-want) > tolerance {
		t.Errorf("CentroidDistance = %v, want %v", got, want)
	}
}

func TestCentroidDistanceIdenticalCollections(t *testing.T) {
	vectors := [][]float32{{1, 2}, {3, 4}}
	got, err := CentroidDistance(vectors, vectors)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(got) > tolerance {
		t.Errorf("expected zero distance, got %v", got)
	}
}
