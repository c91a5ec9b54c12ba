package drift

import (
	"fmt"
	"math"
)

// Centroid returns the mean vector of a non-empty collection of
// equal-dimension vectors.
func Centroid(vectors [][]float32) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("cannot compute centroid of empty collection")
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector %d has dimension %d, expected %d", i, len(v), dim)
		}
		for j, x := range v {
			sum[j] += float64(x)
		}
	}

	centroid := make([]float32, dim)
	n := float64(len(vectors))
	for j := range sum {
		centroid[j] = float32(sum[j] / n)
	}

	return centroid, nil
}

// Center subtracts the collection's own centroid from each vector. The
// centered collection's mean is the zero vector up to float tolerance.
func Center(vectors [][]float32) ([][]float32, error) {
	centroid, err := Centroid(vectors)
	if err != nil {
		return nil, err
	}
	return subtract(vectors, centroid), nil
}

// CenterJoint centers two collections around their combined centroid so
// their distributions share an origin for joint visualization.
func CenterJoint(primary, reference [][]float32) ([][]float32, [][]float32, error) {
	combined := make([][]float32, 0, len(primary)+len(reference))
	combined = append(combined, primary...)
	combined = append(combined, reference...)

	centroid, err := Centroid(combined)
	if err != nil {
		return nil, nil, err
	}

	return subtract(primary, centroid), subtract(reference, centroid), nil
}

// CentroidDistance is the Euclidean distance between two collections'
// centroids, a coarse drift score between them.
func CentroidDistance(primary, reference [][]float32) (float64, error) {
	a, err := Centroid(primary)
	if err != nil {
		return 0, fmt.Errorf("primary: %w", err)
	}
	b, err := Centroid(reference)
	if err != nil {
		return 0, fmt.Errorf("reference: %w", err)
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}

	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}

	return math.Sqrt(sum), nil
}

func subtract(vectors [][]float32, centroid []float32) [][]float32 {
	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		centered := make([]float32, len(v))
		for j, x := range v {
			centered[j] = x - centroid[j]
		}
		out[i] = centered
	}
	return out
}
