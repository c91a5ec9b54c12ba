package llm

import "strings"

// Verdict is the judged relevance of one retrieved context.
type Verdict string

const (
	VerdictRelevant   Verdict = "relevant"
	VerdictIrrelevant Verdict = "irrelevant"
	VerdictUnknown    Verdict = "unknown"
)

// ParseVerdict maps a one-character judge response to a verdict.
// Surrounding whitespace is tolerated; anything that is not exactly "0" or
// "1" after trimming comes back as VerdictUnknown.
func ParseVerdict(response string) Verdict {
	switch strings.TrimSpace(response) {
	case "1":
		return VerdictRelevant
	case "0":
		return VerdictIrrelevant
	default:
		return VerdictUnknown
	}
}
