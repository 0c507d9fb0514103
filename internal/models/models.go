package models

import (
	"time"
)

// User represents an authenticated user of the system. The anonymous
// "free chat" flow is backed by a single system user row.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Document represents one ingested file plus its extracted text and
// processing state. A document is usable for Q&A only when IsProcessed is
// true and ExtractedText is non-empty.
type Document struct {
	ID               string    `db:"id" json:"id"`
	OwnerID          string    `db:"owner_id" json:"owner_id"`
	Filename         string    `db:"filename" json:"filename"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	StoragePath      string    `db:"storage_path" json:"storage_path"`
	StorageURL       string    `db:"storage_url" json:"storage_url"`
	Bucket           string    `db:"bucket" json:"-"`
	FileHash         string    `db:"file_hash" json:"-"`
	FileSize         int64     `db:"file_size" json:"file_size"`
	MimeType         string    `db:"mime_type" json:"mime_type"`
	ExtractedText    string    `db:"extracted_text" json:"-"`
	WordCount        int       `db:"word_count" json:"word_count"`
	CharacterCount   int       `db:"character_count" json:"character_count"`
	IsProcessed      bool      `db:"is_processed" json:"is_processed"`
	ProcessingStatus string    `db:"processing_status" json:"processing_status"` // pending | processing | completed | failed
	ProcessingError  string    `db:"processing_error" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// DocumentChunk is a fixed-size, overlapping slice of a document's extracted
// text used as a retrieval unit. Indices are dense: 0..N-1 per document.
type DocumentChunk struct {
	ID             string    `db:"id" json:"id"`
	DocumentID     string    `db:"document_id" json:"document_id"`
	ChunkIndex     int       `db:"chunk_index" json:"chunk_index"`
	Content        string    `db:"content" json:"content"`
	WordCount      int       `db:"word_count" json:"word_count"`
	CharacterCount int       `db:"character_count" json:"character_count"`
	Embedding      []float32 `db:"embedding" json:"-"` // pgvector column, nil until embedded
	HasEmbedding   bool      `db:"has_embedding" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// QASession binds a user to one document across multiple questions.
type QASession struct {
	ID             string     `db:"id" json:"id"`
	UserID         string     `db:"user_id" json:"user_id"`
	DocumentID     string     `db:"document_id" json:"document_id"`
	SessionName    string     `db:"session_name" json:"session_name"`
	IsActive       bool       `db:"is_active" json:"is_active"`
	TotalQuestions int        `db:"total_questions" json:"total_questions"`
	LastActivity   *time.Time `db:"last_activity" json:"last_activity,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// QAQuestion is one question/answer exchange inside a session. A row with an
// empty answer means generation failed before the best-effort write landed.
type QAQuestion struct {
	ID              string     `db:"id" json:"id"`
	SessionID       string     `db:"session_id" json:"session_id"`
	Question        string     `db:"question" json:"question"`
	Answer          string     `db:"answer" json:"answer"`
	ConfidenceScore float64    `db:"confidence_score" json:"confidence_score"`
	ContextUsed     string     `db:"context_used" json:"-"`
	ModelUsed       string     `db:"model_used" json:"model_used"`
	TokenCount      int        `db:"token_count" json:"token_count"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	AnsweredAt      *time.Time `db:"answered_at" json:"answered_at,omitempty"`
}

// SummaryRecord caches the summary of a document. At most one row exists per
// document; a forced regeneration overwrites it in place.
type SummaryRecord struct {
	ID              string    `db:"id" json:"id"`
	DocumentID      string    `db:"document_id" json:"document_id"`
	Summary         string    `db:"summary" json:"summary"`
	KeyPoints       []string  `db:"key_points" json:"key_points"`
	ConfidenceScore float64   `db:"confidence_score" json:"confidence_score"`
	ModelUsed       string    `db:"model_used" json:"model_used"`
	ProcessingTime  float64   `db:"processing_time" json:"processing_time"` // seconds
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// ComparisonRecord stores one two-document comparison. The (user, document1,
// document2) pair is unique; re-running the same ordered pair replaces the
// stored result.
type ComparisonRecord struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Document1ID     string    `db:"document1_id" json:"document1_id"`
	Document2ID     string    `db:"document2_id" json:"document2_id"`
	ComparisonName  string    `db:"comparison_name" json:"comparison_name"`
	Summary         string    `db:"summary" json:"summary"`
	KeyDifferences  []string  `db:"key_differences" json:"key_differences"`
	Similarities    []string  `db:"similarities" json:"similarities"`
	Recommendations []string  `db:"recommendations" json:"recommendations"`
	SimilarityScore float64   `db:"similarity_score" json:"similarity_score"`
	ModelUsed       string    `db:"model_used" json:"model_used"`
	ProcessingTime  float64   `db:"processing_time" json:"processing_time"` // seconds
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// RiskRecord stores one risk-analysis run over a document. Every invocation
// appends a new row; there is no versioning or merge of prior analyses.
type RiskRecord struct {
	ID              string    `db:"id" json:"id"`
	DocumentID      string    `db:"document_id" json:"document_id"`
	RiskLevel       string    `db:"risk_level" json:"risk_level"` // High | Medium | Low | Unknown
	Analysis        string    `db:"analysis" json:"analysis"`
	RiskFactors     []string  `db:"risk_factors" json:"risk_factors"`
	Recommendations []string  `db:"recommendations" json:"recommendations"`
	SeverityScore   float64   `db:"severity_score" json:"severity_score"`
	OverallScore    float64   `db:"overall_score" json:"overall_score"`
	ModelUsed       string    `db:"model_used" json:"model_used"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
