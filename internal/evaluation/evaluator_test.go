package evaluation

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/raglens/raglens/internal/llm"
	"github.com/raglens/raglens/internal/storage/models"
	"github.com/raglens/raglens/internal/storage/sqlite"
)

// fakeJudge answers from a fixed table keyed by reference text.
type fakeJudge struct {
	verdicts map[string]llm.Verdict
	calls    int
}

func (j *fakeJudge) JudgeRelevance(ctx context.Context, query, reference string) (llm.Verdict, error) {
	j.calls++
	if v, ok := j.verdicts[reference]; ok {
		return v, nil
	}
	return llm.VerdictUnknown, nil
}

func testDB(t *testing.T) *sqlite.Client {
	t.Helper()

	db, err := sqlite.NewClient(filepath.Join(t.TempDir(), "eval.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.InitSchema(); err != nil {
		t.Fatal(err)
	}
	return db
}

func insertQuery(t *testing.T, db *sqlite.Client, id string, createdAt time.Time, contexts ...models.RetrievedContext) {
	t.Helper()
	err := db.InsertQueryRecord(&models.QueryRecord{
		ID:             id,
		QueryText:      "test question",
		QueryEmbedding: []float32{1, 0},
		Response:       "test answer",
		CreatedAt:      createdAt,
		Contexts:       contexts,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestEvaluateQuery(t *testing.T) {
	db := testDB(t)
	judge := &fakeJudge{verdicts: map[string]llm.Verdict{
		"good context": llm.VerdictRelevant,
		"bad context":  llm.VerdictIrrelevant,
	}}

	insertQuery(t, db, "q-1", time.Now(),
		models.RetrievedContext{Rank: 0, RecordID: "a", Text: "good context", Score: 0.9},
		models.RetrievedContext{Rank: 1, RecordID: "b", Text: "bad context", Score: 0.5},
	)

	if err := db.InsertEvalRun(&models.EvalRun{ID: "run-1", StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	evaluator := NewEvaluator(db, judge)

	record, err := db.GetQueryRecord("q-1")
	if err != nil {
		t.Fatal(err)
	}

	result, err := evaluator.EvaluateQuery(context.Background(), "run-1", record)
	if err != nil {
		t.Fatalf("EvaluateQuery: %v", err)
	}

	if math.Abs(result.Precision[1]-1.0) > 1e-9 {
		t.Errorf("precision@1 = %v, want 1.0", result.Precision[1])
	}
	if math.Abs(result.Precision[2]-0.5) > 1e-9 {
		t.Errorf("precision@2 = %v, want 0.5", result.Precision[2])
	}

	judgments, err := db.GetJudgments("run-1", "q-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(judgments) != 2 {
		t.Fatalf("expected 2 stored judgments, got %d", len(judgments))
	}
	if judgments[0].Verdict != "relevant" || judgments[1].Verdict != "irrelevant" {
		t.Errorf("stored verdicts mismatch: %+v", judgments)
	}
}

func TestEvaluateQueryNoContexts(t *testing.T) {
	db := testDB(t)
	evaluator := NewEvaluator(db, &fakeJudge{})

	_, err := evaluator.EvaluateQuery(context.Background(), "run-1", &models.QueryRecord{ID: "empty"})
	if err == nil {
		t.Fatal("expected error for query without contexts")
	}
}

func TestRunEvaluationStopsWhenCancelled(t *testing.T) {
	db := testDB(t)
	judge := &fakeJudge{verdicts: map[string]llm.Verdict{
		"first":  llm.VerdictRelevant,
		"second": llm.VerdictRelevant,
	}}

	base := time.Unix(1700000000, 0)
	insertQuery(t, db, "q-1", base,
		models.RetrievedContext{Rank: 0, RecordID: "a", Text: "first", Score: 0.9},
		models.RetrievedContext{Rank: 1, RecordID: "b", Text: "second", Score: 0.5},
	)
	insertQuery(t, db, "q-2", base.Add(time.Minute),
		models.RetrievedContext{Rank: 0, RecordID: "c", Text: "first", Score: 0.8},
	)

	evaluator := NewEvaluator(db, judge)

	// Cancelling after the first query, as a disconnected progress
	// consumer would, must stop the run before the second is judged.
	ctx, cancel := context.WithCancel(context.Background())
	_, err := evaluator.RunEvaluation(ctx, func(done, total int) {
		cancel()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if judge.calls != 2 {
		t.Errorf("expected 2 judge calls (first query only), got %d", judge.calls)
	}
}

func TestRunEvaluationAggregates(t *testing.T) {
	db := testDB(t)
	judge := &fakeJudge{verdicts: map[string]llm.Verdict{
		"relevant one":   llm.VerdictRelevant,
		"relevant two":   llm.VerdictRelevant,
		"irrelevant one": llm.VerdictIrrelevant,
		"garbled":        llm.VerdictUnknown,
	}}

	base := time.Unix(1700000000, 0)
	insertQuery(t, db, "q-1", base,
		models.RetrievedContext{Rank: 0, RecordID: "a", Text: "relevant one", Score: 0.9},
		models.RetrievedContext{Rank: 1, RecordID: "b", Text: "irrelevant one", Score: 0.4},
	)
	insertQuery(t, db, "q-2", base.Add(time.Minute),
		models.RetrievedContext{Rank: 0, RecordID: "c", Text: "relevant two", Score: 0.8},
		models.RetrievedContext{Rank: 1, RecordID: "d", Text: "garbled", Score: 0.3},
	)

	if err := db.StoreFeedback(&models.Feedback{QueryID: "q-1", Score: 1}); err != nil {
		t.Fatal(err)
	}
	if err := db.StoreFeedback(&models.Feedback{QueryID: "q-2", Score: -1}); err != nil {
		t.Fatal(err)
	}

	evaluator := NewEvaluator(db, judge)

	var progressCalls int
	report, err := evaluator.RunEvaluation(context.Background(), func(done, total int) {
		progressCalls++
		if total != 2 {
			t.Errorf("expected total 2, got %d", total)
		}
	})
	if err != nil {
		t.Fatalf("RunEvaluation: %v", err)
	}

	if report.TotalQueries != 2 {
		t.Errorf("TotalQueries = %d, want 2", report.TotalQueries)
	}
	if report.JudgedContexts != 4 {
		t.Errorf("JudgedContexts = %d, want 4", report.JudgedContexts)
	}
	if report.RelevantCount != 2 || report.IrrelevantCount != 1 || report.UnknownCount != 1 {
		t.Errorf("verdict counts = %d/%d/%d, want 2/1/1",
			report.RelevantCount, report.IrrelevantCount, report.UnknownCount)
	}
	if math.Abs(report.MeanPrecisionAt1-1.0) > 1e-9 {
		t.Errorf("MeanPrecisionAt1 = %v, want 1.0", report.MeanPrecisionAt1)
	}
	if math.Abs(report.MeanPrecisionAt2-0.5) > 1e-9 {
		t.Errorf("MeanPrecisionAt2 = %v, want 0.5", report.MeanPrecisionAt2)
	}
	if report.PositiveFeedbackQueries != 1 || report.NegativeFeedbackQueries != 1 {
		t.Errorf("feedback split = %d/%d, want 1/1",
			report.PositiveFeedbackQueries, report.NegativeFeedbackQueries)
	}
	if progressCalls != 2 {
		t.Errorf("expected 2 progress calls, got %d", progressCalls)
	}

	run, err := db.GetLatestEvalRun()
	if err != nil {
		t.Fatal(err)
	}
	if run == nil || run.ID != report.RunID {
		t.Fatalf("expected persisted run %s, got %+v", report.RunID, run)
	}
	if run.CompletedAt == nil {
		t.Error("expected completed_at to be set")
	}
}
