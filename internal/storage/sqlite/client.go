package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/storage/models"
	"github.com/raglens/raglens/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_records (
		id TEXT PRIMARY KEY,
		query_text TEXT NOT NULL,
		query_embedding TEXT,
		response TEXT,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_records(created_at);

	CREATE TABLE IF NOT EXISTS retrieved_contexts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		rank INTEGER NOT NULL,
		record_id TEXT NOT NULL,
		text TEXT NOT NULL,
		score REAL NOT NULL,
		FOREIGN KEY (query_id) REFERENCES query_records(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_contexts_query ON retrieved_contexts(query_id);

	CREATE TABLE IF NOT EXISTS feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		comment TEXT,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (query_id) REFERENCES query_records(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_query ON feedback(query_id);

	CREATE TABLE IF NOT EXISTS eval_runs (
		id TEXT PRIMARY KEY,
		started_at INTEGER NOT NULL,
		completed_at INTEGER,
		total_queries INTEGER,
		judged_contexts INTEGER,
		relevant_count INTEGER,
		irrelevant_count INTEGER,
		unknown_count INTEGER,
		mean_precision_at_1 REAL,
		mean_precision_at_2 REAL
	);

	CREATE TABLE IF NOT EXISTS relevance_judgments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		query_id TEXT NOT NULL,
		rank INTEGER NOT NULL,
		verdict TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES eval_runs(id) ON DELETE CASCADE,
		FOREIGN KEY (query_id) REFERENCES query_records(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_judgments_run ON relevance_judgments(run_id);
	CREATE INDEX IF NOT EXISTS idx_judgments_query ON relevance_judgments(query_id);

	CREATE TABLE IF NOT EXISTS precision_values (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		query_id TEXT NOT NULL,
		k INTEGER NOT NULL,
		value REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES eval_runs(id) ON DELETE CASCADE,
		FOREIGN KEY (query_id) REFERENCES query_records(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_precision_run ON precision_values(run_id);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertQueryRecord(record *models.QueryRecord) error {
	embeddingJSON, err := json.Marshal(record.QueryEmbedding)
	if err != nil {
		return fmt.Errorf("failed to marshal query embedding: %w", err)
	}

	query := `
		INSERT INTO query_records (id, query_text, query_embedding, response, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = c.db.Exec(
		query,
		record.ID,
		record.QueryText,
		string(embeddingJSON),
		record.Response,
		record.LatencyMS,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	for _, ctx := range record.Contexts {
		err = c.insertRetrievedContext(record.ID, ctx)
		if err != nil {
			return err
		}
	}

	logger.Info("Query recorded",
		zap.String("query_id", record.ID),
		zap.String("query", record.QueryText),
		zap.Int("contexts", len(record.Contexts)),
	)

	return nil
}

func (c *Client) insertRetrievedContext(queryID string, ctx models.RetrievedContext) error {
	query := `INSERT INTO retrieved_contexts (query_id, rank, record_id, text, score) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.Exec(query, queryID, ctx.Rank, ctx.RecordID, ctx.Text, ctx.Score)
	if err != nil {
		return fmt.Errorf("failed to insert retrieved context: %w", err)
	}

	return nil
}

func (c *Client) GetQueryRecord(id string) (*models.QueryRecord, error) {
	query := `SELECT id, query_text, query_embedding, response, latency_ms, created_at FROM query_records WHERE id = ?`

	var record models.QueryRecord
	var embeddingJSON string
	var createdAt int64

	err := c.db.QueryRow(query, id).Scan(
		&record.ID,
		&record.QueryText,
		&embeddingJSON,
		&record.Response,
		&record.LatencyMS,
		&createdAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to get query record: %w", err)
	}

	if err := json.Unmarshal([]byte(embeddingJSON), &record.QueryEmbedding); err != nil {
		logger.Warn("Failed to decode stored query embedding",
			zap.String("query_id", record.ID),
			zap.Error(err),
		)
	}
	record.CreatedAt = time.Unix(createdAt, 0)

	contexts, err := c.getRetrievedContexts(id)
	if err != nil {
		return nil, err
	}
	record.Contexts = contexts

	return &record, nil
}

func (c *Client) ListQueryRecords(limit int) ([]models.QueryRecord, error) {
	query := `
		SELECT id, query_text, query_embedding, response, latency_ms, created_at
		FROM query_records
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := c.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list query records: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		var embeddingJSON string
		var createdAt int64

		err := rows.Scan(&r.ID, &r.QueryText, &embeddingJSON, &r.Response, &r.LatencyMS, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		if err := json.Unmarshal([]byte(embeddingJSON), &r.QueryEmbedding); err != nil {
			logger.Warn("Failed to decode stored query embedding",
				zap.String("query_id", r.ID),
				zap.Error(err),
			)
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}

	for i := range records {
		contexts, err := c.getRetrievedContexts(records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Contexts = contexts
	}

	return records, nil
}

func (c *Client) getRetrievedContexts(queryID string) ([]models.RetrievedContext, error) {
	query := `SELECT id, query_id, rank, record_id, text, score FROM retrieved_contexts WHERE query_id = ? ORDER BY rank ASC`

	rows, err := c.db.Query(query, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get retrieved contexts: %w", err)
	}
	defer rows.Close()

	var contexts []models.RetrievedContext
	for rows.Next() {
		var ctx models.RetrievedContext
		err := rows.Scan(&ctx.ID, &ctx.QueryID, &ctx.Rank, &ctx.RecordID, &ctx.Text, &ctx.Score)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		contexts = append(contexts, ctx)
	}

	return contexts, nil
}

func (c *Client) StoreFeedback(feedback *models.Feedback) error {
	if feedback.Score != -1 && feedback.Score != 1 {
		return fmt.Errorf("feedback score must be -1 or +1, got %d", feedback.Score)
	}

	query := `INSERT INTO feedback (query_id, score, comment, created_at) VALUES (?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		feedback.QueryID,
		feedback.Score,
		feedback.Comment,
		time.Now().Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	logger.Info("Feedback stored",
		zap.String("query_id", feedback.QueryID),
		zap.Int("score", feedback.Score),
	)

	return nil
}

func (c *Client) GetFeedback(queryID string) ([]models.Feedback, error) {
	query := `SELECT id, query_id, score, comment, created_at FROM feedback WHERE query_id = ? ORDER BY created_at ASC`

	rows, err := c.db.Query(query, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	defer rows.Close()

	var items []models.Feedback
	for rows.Next() {
		var f models.Feedback
		var createdAt int64
		err := rows.Scan(&f.ID, &f.QueryID, &f.Score, &f.Comment, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		f.CreatedAt = time.Unix(createdAt, 0)
		items = append(items, f)
	}

	return items, nil
}

func (c *Client) InsertEvalRun(run *models.EvalRun) error {
	query := `
		INSERT INTO eval_runs (id, started_at, completed_at, total_queries, judged_contexts,
			relevant_count, irrelevant_count, unknown_count, mean_precision_at_1, mean_precision_at_2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			total_queries = excluded.total_queries,
			judged_contexts = excluded.judged_contexts,
			relevant_count = excluded.relevant_count,
			irrelevant_count = excluded.irrelevant_count,
			unknown_count = excluded.unknown_count,
			mean_precision_at_1 = excluded.mean_precision_at_1,
			mean_precision_at_2 = excluded.mean_precision_at_2
	`

	var completedAt interface{}
	if run.CompletedAt != nil {
		completedAt = run.CompletedAt.Unix()
	}

	_, err := c.db.Exec(
		query,
		run.ID,
		run.StartedAt.Unix(),
		completedAt,
		run.TotalQueries,
		run.JudgedContexts,
		run.RelevantCount,
		run.IrrelevantCount,
		run.UnknownCount,
		run.MeanPrecisionAt1,
		run.MeanPrecisionAt2,
	)

	if err != nil {
		return fmt.Errorf("failed to insert eval run: %w", err)
	}

	return nil
}

func (c *Client) InsertJudgment(judgment *models.RelevanceJudgment) error {
	query := `INSERT INTO relevance_judgments (run_id, query_id, rank, verdict, created_at) VALUES (?, ?, ?, ?, ?)`

	_, err := c.db.Exec(
		query,
		judgment.RunID,
		judgment.QueryID,
		judgment.Rank,
		judgment.Verdict,
		time.Now().Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert judgment: %w", err)
	}

	return nil
}

func (c *Client) GetJudgments(runID, queryID string) ([]models.RelevanceJudgment, error) {
	query := `SELECT id, run_id, query_id, rank, verdict, created_at FROM relevance_judgments WHERE run_id = ? AND query_id = ? ORDER BY rank ASC`

	rows, err := c.db.Query(query, runID, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get judgments: %w", err)
	}
	defer rows.Close()

	var judgments []models.RelevanceJudgment
	for rows.Next() {
		var j models.RelevanceJudgment
		var createdAt int64
		err := rows.Scan(&j.ID, &j.RunID, &j.QueryID, &j.Rank, &j.Verdict, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		j.CreatedAt = time.Unix(createdAt, 0)
		judgments = append(judgments, j)
	}

	return judgments, nil
}

func (c *Client) InsertPrecisionValue(value *models.PrecisionValue) error {
	query := `INSERT INTO precision_values (run_id, query_id, k, value) VALUES (?, ?, ?, ?)`

	_, err := c.db.Exec(query, value.RunID, value.QueryID, value.K, value.Value)
	if err != nil {
		return fmt.Errorf("failed to insert precision value: %w", err)
	}

	return nil
}

func (c *Client) GetLatestEvalRun() (*models.EvalRun, error) {
	query := `
		SELECT id, started_at, completed_at, total_queries, judged_contexts,
			relevant_count, irrelevant_count, unknown_count, mean_precision_at_1, mean_precision_at_2
		FROM eval_runs
		ORDER BY started_at DESC
		LIMIT 1
	`

	var run models.EvalRun
	var startedAt int64
	var completedAt sql.NullInt64

	err := c.db.QueryRow(query).Scan(
		&run.ID,
		&startedAt,
		&completedAt,
		&run.TotalQueries,
		&run.JudgedContexts,
		&run.RelevantCount,
		&run.IrrelevantCount,
		&run.UnknownCount,
		&run.MeanPrecisionAt1,
		&run.MeanPrecisionAt2,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest eval run: %w", err)
	}

	run.StartedAt = time.Unix(startedAt, 0)
	if completedAt.Valid {
		t := time.Unix(completedAt.Int64, 0)
		run.CompletedAt = &t
	}

	return &run, nil
}
