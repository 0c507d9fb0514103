package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/davidolu-py/legallens/internal/config"
	"github.com/davidolu-py/legallens/internal/core"
	"github.com/davidolu-py/legallens/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db, cfg.EmbedDim); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()), COALESCE($6, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.Username, user.Email, user.PasswordHash, nullableTime(user.CreatedAt), nullableTime(user.UpdatedAt))
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EnsureUser inserts the row if missing and re-reads it, so concurrent
// callers converge on the same user. Backs the shared free-chat identity.
func (c *DatabaseClient) EnsureUser(ctx context.Context, email, username string) (*models.User, error) {
	const q = `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, '')
		ON CONFLICT (email) DO NOTHING
	`
	if _, err := c.db.ExecContext(ctx, q, uuid.NewString(), username, email); err != nil {
		return nil, err
	}

	u, err := c.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("user %q missing after upsert", email)
	}
	return u, nil
}

// Documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, owner_id, filename, original_filename, storage_path, storage_url, bucket,
			 file_hash, file_size, mime_type, extracted_text, word_count, character_count,
			 is_processed, processing_status, processing_error, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			 COALESCE($17, now()), COALESCE($18, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.OwnerID, doc.Filename, doc.OriginalFilename, doc.StoragePath, doc.StorageURL, doc.Bucket,
		doc.FileHash, doc.FileSize, doc.MimeType, doc.ExtractedText, doc.WordCount, doc.CharacterCount,
		doc.IsProcessed, doc.ProcessingStatus, doc.ProcessingError,
		nullableTime(doc.CreatedAt), nullableTime(doc.UpdatedAt))
	return err
}

const documentColumns = `
	id, owner_id, filename, original_filename, storage_path, storage_url, bucket,
	file_hash, file_size, mime_type, extracted_text, word_count, character_count,
	is_processed, processing_status, processing_error, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	var d models.Document
	err := row.Scan(
		&d.ID, &d.OwnerID, &d.Filename, &d.OriginalFilename, &d.StoragePath, &d.StorageURL, &d.Bucket,
		&d.FileHash, &d.FileSize, &d.MimeType, &d.ExtractedText, &d.WordCount, &d.CharacterCount,
		&d.IsProcessed, &d.ProcessingStatus, &d.ProcessingError, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	q := `SELECT` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(c.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

func (c *DatabaseClient) GetDocumentByHash(ctx context.Context, ownerID, fileHash string) (*models.Document, error) {
	q := `SELECT` + documentColumns + ` FROM documents WHERE owner_id = $1 AND file_hash = $2`
	d, err := scanDocument(c.db.QueryRowContext(ctx, q, ownerID, fileHash))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

func (c *DatabaseClient) ListDocumentsByOwner(ctx context.Context, ownerID string) ([]models.Document, error) {
	q := `SELECT` + documentColumns + ` FROM documents WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// DeleteDocumentTree removes the document and every dependent row in one
// transaction, so a dedup replacement can never leave orphaned sessions or
// chunks behind.
func (c *DatabaseClient) DeleteDocumentTree(ctx context.Context, id string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmts := []string{
		`DELETE FROM qa_questions WHERE session_id IN (SELECT id FROM qa_sessions WHERE document_id = $1)`,
		`DELETE FROM qa_sessions WHERE document_id = $1`,
		`DELETE FROM risk_analyses WHERE document_id = $1`,
		`DELETE FROM document_summaries WHERE document_id = $1`,
		`DELETE FROM document_comparisons WHERE document1_id = $1 OR document2_id = $1`,
		`DELETE FROM document_chunks WHERE document_id = $1`,
		`DELETE FROM documents WHERE id = $1`,
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s, id); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Chunks

func (c *DatabaseClient) InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks
			(id, document_id, chunk_index, content, word_count, character_count, embedding, has_embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()))
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]

		var vec any
		if ch.HasEmbedding {
			vec = pgvector.NewVector(ch.Embedding)
		}

		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.ChunkIndex, ch.Content, ch.WordCount, ch.CharacterCount,
			vec, ch.HasEmbedding, nullableTime(ch.CreatedAt),
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

const chunkColumns = `id, document_id, chunk_index, content, word_count, character_count, has_embedding, created_at`

func scanChunkRows(rows *sql.Rows) ([]models.DocumentChunk, error) {
	defer rows.Close()

	var out []models.DocumentChunk
	for rows.Next() {
		var ch models.DocumentChunk
		if err := rows.Scan(
			&ch.ID, &ch.DocumentID, &ch.ChunkIndex, &ch.Content,
			&ch.WordCount, &ch.CharacterCount, &ch.HasEmbedding, &ch.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error) {
	q := `SELECT ` + chunkColumns + ` FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index ASC`
	rows, err := c.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	return scanChunkRows(rows)
}

func (c *DatabaseClient) GetChunksByIndexes(ctx context.Context, documentID string, idx []int) ([]models.DocumentChunk, error) {
	if len(idx) == 0 {
		return nil, nil
	}
	wanted := make([]int32, len(idx))
	for i, v := range idx {
		wanted[i] = int32(v)
	}

	q := `SELECT ` + chunkColumns + `
		FROM document_chunks
		WHERE document_id = $1 AND chunk_index = ANY($2)
		ORDER BY chunk_index ASC`
	rows, err := c.db.QueryContext(ctx, q, documentID, wanted)
	if err != nil {
		return nil, err
	}
	return scanChunkRows(rows)
}

// SearchDocumentChunks finds the top-k similar chunks within a document for
// a query embedding. Rows without a vector are skipped.
func (c *DatabaseClient) SearchDocumentChunks(ctx context.Context, documentID string, queryVec []float32, limit int) ([]models.DocumentChunk, error) {
	q := `SELECT ` + chunkColumns + `
		FROM document_chunks
		WHERE document_id = $1 AND has_embedding
		ORDER BY embedding <-> $2
		LIMIT $3`
	vec := pgvector.NewVector(queryVec)
	rows, err := c.db.QueryContext(ctx, q, documentID, vec, limit)
	if err != nil {
		return nil, err
	}
	return scanChunkRows(rows)
}

// Sessions

func (c *DatabaseClient) CreateSession(ctx context.Context, s *models.QASession) error {
	if s == nil {
		return errors.New("nil session")
	}
	const q = `
		INSERT INTO qa_sessions
			(id, user_id, document_id, session_name, is_active, total_questions, last_activity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()), COALESCE($9, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		s.ID, s.UserID, s.DocumentID, s.SessionName, s.IsActive, s.TotalQuestions, s.LastActivity,
		nullableTime(s.CreatedAt), nullableTime(s.UpdatedAt))
	return err
}

func (c *DatabaseClient) GetSessionByID(ctx context.Context, id string) (*models.QASession, error) {
	const q = `
		SELECT id, user_id, document_id, session_name, is_active, total_questions, last_activity, created_at, updated_at
		FROM qa_sessions WHERE id = $1
	`
	var s models.QASession
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&s.ID, &s.UserID, &s.DocumentID, &s.SessionName, &s.IsActive, &s.TotalQuestions,
		&s.LastActivity, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// BumpSessionActivity increments the counter in SQL so concurrent questions
// on one session never lose updates to a read-modify-write race.
func (c *DatabaseClient) BumpSessionActivity(ctx context.Context, id string) error {
	const q = `
		UPDATE qa_sessions
		SET total_questions = total_questions + 1,
		    last_activity   = now(),
		    updated_at      = now()
		WHERE id = $1
	`
	_, err := c.db.ExecContext(ctx, q, id)
	return err
}

func (c *DatabaseClient) DeleteSessionTree(ctx context.Context, id string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM qa_questions WHERE session_id = $1`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM qa_sessions WHERE id = $1`, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Questions and risk records

func (c *DatabaseClient) CreateQuestion(ctx context.Context, qq *models.QAQuestion) error {
	if qq == nil {
		return errors.New("nil question")
	}
	const q = `
		INSERT INTO qa_questions
			(id, session_id, question, answer, confidence_score, context_used, model_used, token_count, created_at, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()), $10)
	`
	_, err := c.db.ExecContext(ctx, q,
		qq.ID, qq.SessionID, qq.Question, qq.Answer, qq.ConfidenceScore, qq.ContextUsed,
		qq.ModelUsed, qq.TokenCount, nullableTime(qq.CreatedAt), qq.AnsweredAt)
	return err
}

func (c *DatabaseClient) CreateRiskRecord(ctx context.Context, r *models.RiskRecord) error {
	if r == nil {
		return errors.New("nil risk record")
	}
	factors, err := json.Marshal(emptyIfNil(r.RiskFactors))
	if err != nil {
		return err
	}
	recs, err := json.Marshal(emptyIfNil(r.Recommendations))
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO risk_analyses
			(id, document_id, risk_level, analysis, risk_factors, recommendations,
			 severity_score, overall_score, model_used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, now()))
	`
	_, err = c.db.ExecContext(ctx, q,
		r.ID, r.DocumentID, r.RiskLevel, r.Analysis, factors, recs,
		r.SeverityScore, r.OverallScore, r.ModelUsed, nullableTime(r.CreatedAt))
	return err
}

// Summaries and comparisons

func (c *DatabaseClient) UpsertSummary(ctx context.Context, s *models.SummaryRecord) error {
	if s == nil {
		return errors.New("nil summary")
	}
	points, err := json.Marshal(emptyIfNil(s.KeyPoints))
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_summaries
			(id, document_id, summary, key_points, confidence_score, model_used, processing_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()), now())
		ON CONFLICT (document_id) DO UPDATE SET
			summary          = EXCLUDED.summary,
			key_points       = EXCLUDED.key_points,
			confidence_score = EXCLUDED.confidence_score,
			model_used       = EXCLUDED.model_used,
			processing_time  = EXCLUDED.processing_time,
			updated_at       = now()
	`
	_, err = c.db.ExecContext(ctx, q,
		s.ID, s.DocumentID, s.Summary, points, s.ConfidenceScore, s.ModelUsed,
		s.ProcessingTime, nullableTime(s.CreatedAt))
	return err
}

func (c *DatabaseClient) GetSummaryByDocument(ctx context.Context, documentID string) (*models.SummaryRecord, error) {
	const q = `
		SELECT id, document_id, summary, key_points, confidence_score, model_used, processing_time, created_at, updated_at
		FROM document_summaries WHERE document_id = $1
	`
	var s models.SummaryRecord
	var points []byte
	err := c.db.QueryRowContext(ctx, q, documentID).Scan(
		&s.ID, &s.DocumentID, &s.Summary, &points, &s.ConfidenceScore,
		&s.ModelUsed, &s.ProcessingTime, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.KeyPoints, err = decodeStringList(points); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *DatabaseClient) UpsertComparison(ctx context.Context, cmp *models.ComparisonRecord) error {
	if cmp == nil {
		return errors.New("nil comparison")
	}
	diffs, err := json.Marshal(emptyIfNil(cmp.KeyDifferences))
	if err != nil {
		return err
	}
	sims, err := json.Marshal(emptyIfNil(cmp.Similarities))
	if err != nil {
		return err
	}
	recs, err := json.Marshal(emptyIfNil(cmp.Recommendations))
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_comparisons
			(id, user_id, document1_id, document2_id, comparison_name, summary,
			 key_differences, similarities, recommendations, similarity_score,
			 model_used, processing_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, now()))
		ON CONFLICT (user_id, document1_id, document2_id) DO UPDATE SET
			comparison_name  = EXCLUDED.comparison_name,
			summary          = EXCLUDED.summary,
			key_differences  = EXCLUDED.key_differences,
			similarities     = EXCLUDED.similarities,
			recommendations  = EXCLUDED.recommendations,
			similarity_score = EXCLUDED.similarity_score,
			model_used       = EXCLUDED.model_used,
			processing_time  = EXCLUDED.processing_time
	`
	_, err = c.db.ExecContext(ctx, q,
		cmp.ID, cmp.UserID, cmp.Document1ID, cmp.Document2ID, cmp.ComparisonName, cmp.Summary,
		diffs, sims, recs, cmp.SimilarityScore, cmp.ModelUsed, cmp.ProcessingTime,
		nullableTime(cmp.CreatedAt))
	return err
}

const comparisonColumns = `
	id, user_id, document1_id, document2_id, comparison_name, summary,
	key_differences, similarities, recommendations, similarity_score,
	model_used, processing_time, created_at`

func scanComparison(row interface{ Scan(...any) error }) (*models.ComparisonRecord, error) {
	var cmp models.ComparisonRecord
	var diffs, sims, recs []byte
	err := row.Scan(
		&cmp.ID, &cmp.UserID, &cmp.Document1ID, &cmp.Document2ID, &cmp.ComparisonName, &cmp.Summary,
		&diffs, &sims, &recs, &cmp.SimilarityScore, &cmp.ModelUsed, &cmp.ProcessingTime, &cmp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if cmp.KeyDifferences, err = decodeStringList(diffs); err != nil {
		return nil, err
	}
	if cmp.Similarities, err = decodeStringList(sims); err != nil {
		return nil, err
	}
	if cmp.Recommendations, err = decodeStringList(recs); err != nil {
		return nil, err
	}
	return &cmp, nil
}

func (c *DatabaseClient) GetComparisonByID(ctx context.Context, id string) (*models.ComparisonRecord, error) {
	q := `SELECT` + comparisonColumns + ` FROM document_comparisons WHERE id = $1`
	cmp, err := scanComparison(c.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cmp, err
}

func (c *DatabaseClient) GetComparisonByPair(ctx context.Context, userID, doc1ID, doc2ID string) (*models.ComparisonRecord, error) {
	q := `SELECT` + comparisonColumns + `
		FROM document_comparisons
		WHERE user_id = $1 AND document1_id = $2 AND document2_id = $3`
	cmp, err := scanComparison(c.db.QueryRowContext(ctx, q, userID, doc1ID, doc2ID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cmp, err
}

func (c *DatabaseClient) ListComparisonsByUser(ctx context.Context, userID string) ([]models.ComparisonRecord, error) {
	q := `SELECT` + comparisonColumns + ` FROM document_comparisons WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ComparisonRecord
	for rows.Next() {
		cmp, err := scanComparison(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cmp)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteComparison(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM document_comparisons WHERE id = $1`, id)
	return err
}

func decodeStringList(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	return out, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// nullableTime lets COALESCE($n, now()) fill in unset timestamps.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

var _ core.DbClient = (*DatabaseClient)(nil)
