package models

import "time"

type QueryRecord struct {
	ID             string
	QueryText      string
	QueryEmbedding []float32
	Response       string
	LatencyMS      int
	CreatedAt      time.Time
	Contexts       []RetrievedContext
}

type RetrievedContext struct {
	ID       int
	QueryID  string
	Rank     int
	RecordID string
	Text     string
	Score    float64
}

type Feedback struct {
	ID        int
	QueryID   string
	Score     int
	Comment   string
	CreatedAt time.Time
}

type RelevanceJudgment struct {
	ID        int
	RunID     string
	QueryID   string
	Rank      int
	Verdict   string
	CreatedAt time.Time
}

type PrecisionValue struct {
	ID      int
	RunID   string
	QueryID string
	K       int
	Value   float64
}

type EvalRun struct {
	ID               string
	StartedAt        time.Time
	CompletedAt      *time.Time
	TotalQueries     int
	JudgedContexts   int
	RelevantCount    int
	IrrelevantCount  int
	UnknownCount     int
	MeanPrecisionAt1 float64
	MeanPrecisionAt2 float64
}
