package evaluation

import (
	"fmt"

	"github.com/raglens/raglens/internal/llm"
)

// PrecisionAtK is the fraction of the first k verdicts judged relevant.
// Unknown verdicts count as not relevant.
func PrecisionAtK(verdicts []llm.Verdict, k int) (float64, error) {
	if k <= 0 {
		return 0, fmt.Errorf("k must be positive, got %d", k)
	}
	if k > len(verdicts) {
		return 0, fmt.Errorf("k=%d exceeds number of verdicts %d", k, len(verdicts))
	}

	relevant := 0
	for _, v := range verdicts[:k] {
		if v == llm.VerdictRelevant {
			relevant++
		}
	}

	return float64(relevant) / float64(k), nil
}
