package core

import (
	"context"

	"github.com/davidolu-py/legallens/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres/pgvector so higher layers never depend on a
// specific database.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// EnsureUser returns the user with the given email, creating it if
	// missing. Used for the anonymous free-chat system user.
	EnsureUser(ctx context.Context, email, username string) (*models.User, error)

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	GetDocumentByHash(ctx context.Context, ownerID, fileHash string) (*models.Document, error)
	ListDocumentsByOwner(ctx context.Context, ownerID string) ([]models.Document, error)
	// DeleteDocumentTree removes the document and all dependent rows
	// (questions, sessions, chunks, risk records, summaries, comparisons)
	// in a single transaction.
	DeleteDocumentTree(ctx context.Context, id string) error

	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error
	GetChunksByDocument(ctx context.Context, documentID string) ([]models.DocumentChunk, error)
	// GetChunksByIndexes returns the chunks whose chunk_index is in idx,
	// ordered by chunk_index ascending.
	GetChunksByIndexes(ctx context.Context, documentID string, idx []int) ([]models.DocumentChunk, error)
	SearchDocumentChunks(ctx context.Context, documentID string, queryVec []float32, limit int) ([]models.DocumentChunk, error)

	CreateSession(ctx context.Context, s *models.QASession) error
	GetSessionByID(ctx context.Context, id string) (*models.QASession, error)
	// BumpSessionActivity atomically increments the question counter and
	// refreshes last_activity.
	BumpSessionActivity(ctx context.Context, id string) error
	// DeleteSessionTree removes the session and its questions in a single
	// transaction.
	DeleteSessionTree(ctx context.Context, id string) error

	CreateQuestion(ctx context.Context, q *models.QAQuestion) error
	CreateRiskRecord(ctx context.Context, r *models.RiskRecord) error

	// UpsertSummary writes the document's summary, replacing any cached one.
	UpsertSummary(ctx context.Context, s *models.SummaryRecord) error
	GetSummaryByDocument(ctx context.Context, documentID string) (*models.SummaryRecord, error)

	// UpsertComparison writes a comparison, replacing the stored result for
	// the same (user, document1, document2) pair.
	UpsertComparison(ctx context.Context, c *models.ComparisonRecord) error
	GetComparisonByID(ctx context.Context, id string) (*models.ComparisonRecord, error)
	GetComparisonByPair(ctx context.Context, userID, doc1ID, doc2ID string) (*models.ComparisonRecord, error)
	ListComparisonsByUser(ctx context.Context, userID string) ([]models.ComparisonRecord, error)
	DeleteComparison(ctx context.Context, id string) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// It's abstract so AWS can be replaced with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	// UploadFirstAvailable tries the given buckets in order and stops at the
	// first bucket that either accepts the write or fails with an error
	// unrelated to a missing bucket. Returns the winning bucket and URL.
	UploadFirstAvailable(ctx context.Context, buckets []string, key string, data []byte, contentType string) (bucket, url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
