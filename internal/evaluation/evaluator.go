package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/llm"
	"github.com/raglens/raglens/internal/storage/models"
	"github.com/raglens/raglens/internal/storage/sqlite"
	"github.com/raglens/raglens/pkg/logger"
)

// Judge decides whether a retrieved reference text is relevant to a query.
type Judge interface {
	JudgeRelevance(ctx context.Context, query, reference string) (llm.Verdict, error)
}

type Evaluator struct {
	db    *sqlite.Client
	judge Judge
}

type QueryEvaluation struct {
	QueryID   string
	Verdicts  []llm.Verdict
	Precision map[int]float64
}

type Report struct {
	RunID            string
	TotalQueries     int
	JudgedContexts   int
	RelevantCount    int
	IrrelevantCount  int
	UnknownCount     int
	MeanPrecisionAt1 float64
	MeanPrecisionAt2 float64

	PositiveFeedbackQueries  int
	NegativeFeedbackQueries  int
	MeanPrecisionAt1Positive float64
	MeanPrecisionAt1Negative float64
}

// ProgressFunc is called after each query is judged.
type ProgressFunc func(done, total int)

func NewEvaluator(db *sqlite.Client, judge Judge) *Evaluator {
	return &Evaluator{
		db:    db,
		judge: judge,
	}
}

// EvaluateQuery judges every retrieved context of one query record and
// computes precision@k for each k up to the context count.
func (e *Evaluator) EvaluateQuery(ctx context.Context, runID string, record *models.QueryRecord) (*QueryEvaluation, error) {
	if len(record.Contexts) == 0 {
		return nil, fmt.Errorf("query %s has no retrieved contexts", record.ID)
	}

	logger.Info("Evaluating query", zap.String("query_id", record.ID))

	verdicts := make([]llm.Verdict, 0, len(record.Contexts))
	for _, retrieved := range record.Contexts {
		verdict, err := e.judge.JudgeRelevance(ctx, record.QueryText, retrieved.Text)
		if err != nil {
			return nil, fmt.Errorf("failed to judge context %d: %w", retrieved.Rank, err)
		}
		verdicts = append(verdicts, verdict)

		err = e.db.InsertJudgment(&models.RelevanceJudgment{
			RunID:   runID,
			QueryID: record.ID,
			Rank:    retrieved.Rank,
			Verdict: string(verdict),
		})
		if err != nil {
			return nil, err
		}
	}

	precision := make(map[int]float64, len(verdicts))
	for k := 1; k <= len(verdicts); k++ {
		value, err := PrecisionAtK(verdicts, k)
		if err != nil {
			return nil, err
		}
		precision[k] = value

		err = e.db.InsertPrecisionValue(&models.PrecisionValue{
			RunID:   runID,
			QueryID: record.ID,
			K:       k,
			Value:   value,
		})
		if err != nil {
			return nil, err
		}
	}

	logger.Info("Query evaluated",
		zap.String("query_id", record.ID),
		zap.Float64("precision_at_1", precision[1]),
	)

	return &QueryEvaluation{
		QueryID:   record.ID,
		Verdicts:  verdicts,
		Precision: precision,
	}, nil
}

// RunEvaluation judges every stored query record and aggregates a report.
// Queries that fail to evaluate are skipped, not fatal.
func (e *Evaluator) RunEvaluation(ctx context.Context, onProgress ProgressFunc) (*Report, error) {
	records, err := e.db.ListQueryRecords(10000)
	if err != nil {
		return nil, fmt.Errorf("failed to list query records: %w", err)
	}

	runID := uuid.New().String()
	startedAt := time.Now()

	err = e.db.InsertEvalRun(&models.EvalRun{
		ID:        runID,
		StartedAt: startedAt,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Running evaluation",
		zap.String("run_id", runID),
		zap.Int("queries", len(records)),
	)

	report := &Report{
		RunID:        runID,
		TotalQueries: len(records),
	}

	var sumP1, sumP2 float64
	var countP1, countP2 int
	var sumP1Positive, sumP1Negative float64

	for i := range records {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record := &records[i]

		result, err := e.EvaluateQuery(ctx, runID, record)
		if err != nil {
			logger.Error("Failed to evaluate query",
				zap.String("query_id", record.ID),
				zap.Error(err),
			)
			if onProgress != nil {
				onProgress(i+1, len(records))
			}
			continue
		}

		for _, verdict := range result.Verdicts {
			report.JudgedContexts++
			switch verdict {
			case llm.VerdictRelevant:
				report.RelevantCount++
			case llm.VerdictIrrelevant:
				report.IrrelevantCount++
			case llm.VerdictUnknown:
				report.UnknownCount++
			}
		}

		if p1, ok := result.Precision[1]; ok {
			sumP1 += p1
			countP1++

			feedbackSum := e.feedbackSum(record.ID)
			if feedbackSum > 0 {
				report.PositiveFeedbackQueries++
				sumP1Positive += p1
			} else if feedbackSum < 0 {
				report.NegativeFeedbackQueries++
				sumP1Negative += p1
			}
		}
		if p2, ok := result.Precision[2]; ok {
			sumP2 += p2
			countP2++
		}

		if onProgress != nil {
			onProgress(i+1, len(records))
		}
	}

	if countP1 > 0 {
		report.MeanPrecisionAt1 = sumP1 / float64(countP1)
	}
	if countP2 > 0 {
		report.MeanPrecisionAt2 = sumP2 / float64(countP2)
	}
	if report.PositiveFeedbackQueries > 0 {
		report.MeanPrecisionAt1Positive = sumP1Positive / float64(report.PositiveFeedbackQueries)
	}
	if report.NegativeFeedbackQueries > 0 {
		report.MeanPrecisionAt1Negative = sumP1Negative / float64(report.NegativeFeedbackQueries)
	}

	completedAt := time.Now()
	err = e.db.InsertEvalRun(&models.EvalRun{
		ID:               runID,
		StartedAt:        startedAt,
		CompletedAt:      &completedAt,
		TotalQueries:     report.TotalQueries,
		JudgedContexts:   report.JudgedContexts,
		RelevantCount:    report.RelevantCount,
		IrrelevantCount:  report.IrrelevantCount,
		UnknownCount:     report.UnknownCount,
		MeanPrecisionAt1: report.MeanPrecisionAt1,
		MeanPrecisionAt2: report.MeanPrecisionAt2,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Evaluation completed",
		zap.String("run_id", runID),
		zap.Int("total", report.TotalQueries),
		zap.Int("relevant", report.RelevantCount),
		zap.Int("irrelevant", report.IrrelevantCount),
		zap.Int("unknown", report.UnknownCount),
		zap.Float64("mean_precision_at_1", report.MeanPrecisionAt1),
		zap.Float64("mean_precision_at_2", report.MeanPrecisionAt2),
	)

	return report, nil
}

func (e *Evaluator) feedbackSum(queryID string) int {
	items, err := e.db.GetFeedback(queryID)
	if err != nil {
		logger.Warn("Failed to load feedback", zap.String("query_id", queryID), zap.Error(err))
		return 0
	}

	sum := 0
	for _, f := range items {
		sum += f.Score
	}
	return sum
}

func (e *Evaluator) FormatReport(report *Report) string {
	return fmt.Sprintf(`
Evaluation Report
=================

Run: %s
Queries: %d
Judged Contexts: %d

Verdicts:
- Relevant: %d
- Irrelevant: %d
- Unknown: %d

Mean Precision:
- precision@1: %.3f
- precision@2: %.3f

Feedback:
- Positive (+1) queries: %d (mean precision@1: %.3f)
- Negative (-1) queries: %d (mean precision@1: %.3f)
`,
		report.RunID,
		report.TotalQueries,
		report.JudgedContexts,
		report.RelevantCount,
		report.IrrelevantCount,
		report.UnknownCount,
		report.MeanPrecisionAt1,
		report.MeanPrecisionAt2,
		report.PositiveFeedbackQueries, report.MeanPrecisionAt1Positive,
		report.NegativeFeedbackQueries, report.MeanPrecisionAt1Negative,
	)
}
