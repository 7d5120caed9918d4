// Package repository persists an audit trail of extraction runs. The store is
// optional; when no database is configured the service simply skips recording.
package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tatxtion/hstay-ai/internal/common"
)

// ExtractionAudit is one recorded extraction run.
type ExtractionAudit struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	DocumentID     string
	OrganizationID string
	PropertyID     string
	Source         string // "local" | "url" | "object"
	FileName       string
	RequestedType  string
	DetectedType   string
	FinalType      string
	OCRMethod      string
	Pages          int
	TextChars      int
	DurationMs     int64
	Issues         []byte // JSON array
	Fields         []byte // JSON object
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS extraction_audits (
	id               UUID PRIMARY KEY,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	document_id      TEXT NOT NULL DEFAULT '',
	organization_id  TEXT NOT NULL DEFAULT '',
	property_id      TEXT NOT NULL DEFAULT '',
	source           TEXT NOT NULL,
	file_name        TEXT NOT NULL,
	requested_type   TEXT NOT NULL DEFAULT '',
	detected_type    TEXT NOT NULL,
	final_type       TEXT NOT NULL,
	ocr_method       TEXT NOT NULL,
	pages            INT NOT NULL,
	text_chars       INT NOT NULL,
	duration_ms      BIGINT NOT NULL,
	issues           JSONB NOT NULL DEFAULT '[]',
	fields           JSONB NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS extraction_audits_created_at_idx ON extraction_audits (created_at DESC);
CREATE INDEX IF NOT EXISTS extraction_audits_document_id_idx ON extraction_audits (document_id);
`

// AuditStore records extraction runs in Postgres.
type AuditStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewAuditStore(pool *pgxpool.Pool, logger *slog.Logger) *AuditStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditStore{pool: pool, logger: logger}
}

// EnsureSchema creates the audit table when it does not exist yet.
func (s *AuditStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, auditSchema); err != nil {
		return common.WrapError(err, "ensure audit schema")
	}
	return nil
}

// Record inserts one audit row. A zero ID gets a fresh UUID.
func (s *AuditStore) Record(ctx context.Context, a *ExtractionAudit) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Issues == nil {
		a.Issues = []byte("[]")
	}
	if a.Fields == nil {
		a.Fields = []byte("{}")
	}

	const q = `
INSERT INTO extraction_audits
	(id, document_id, organization_id, property_id, source, file_name,
	 requested_type, detected_type, final_type, ocr_method, pages, text_chars,
	 duration_ms, issues, fields)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	_, err := s.pool.Exec(ctx, q,
		a.ID, a.DocumentID, a.OrganizationID, a.PropertyID, a.Source, a.FileName,
		a.RequestedType, a.DetectedType, a.FinalType, a.OCRMethod, a.Pages, a.TextChars,
		a.DurationMs, a.Issues, a.Fields,
	)
	if err != nil {
		s.logger.Error("audit.record_failed", "document_id", a.DocumentID, "error", err)
		return common.WrapError(common.ErrDatabase, err.Error())
	}
	s.logger.Debug("audit.recorded", "id", a.ID, "document_id", a.DocumentID, "final_type", a.FinalType)
	return nil
}

// List returns the most recent audit rows, newest first.
func (s *AuditStore) List(ctx context.Context, limit int) ([]ExtractionAudit, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, created_at, document_id, organization_id, property_id, source, file_name,
       requested_type, detected_type, final_type, ocr_method, pages, text_chars,
       duration_ms, issues, fields
FROM extraction_audits
ORDER BY created_at DESC
LIMIT $1`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	defer rows.Close()

	var out []ExtractionAudit
	for rows.Next() {
		var a ExtractionAudit
		if err := rows.Scan(
			&a.ID, &a.CreatedAt, &a.DocumentID, &a.OrganizationID, &a.PropertyID, &a.Source, &a.FileName,
			&a.RequestedType, &a.DetectedType, &a.FinalType, &a.OCRMethod, &a.Pages, &a.TextChars,
			&a.DurationMs, &a.Issues, &a.Fields,
		); err != nil {
			return nil, common.WrapError(err, "scan audit row")
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(common.ErrDatabase, err.Error())
	}
	return out, nil
}
