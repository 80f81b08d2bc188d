package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/paperdesk/research-assistant/internal/domain"
)

// Compile-time interface verification.
var _ PaperRepository = (*PgPaperRepository)(nil)

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

// Upsert inserts a paper or updates the existing row keyed by paper_id.
func (r *PgPaperRepository) Upsert(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if paper == nil {
		return nil, domain.NewValidationError("paper", "paper cannot be nil")
	}
	if paper.URL == "" {
		return nil, domain.NewValidationError("url", "paper URL is required")
	}
	if paper.PaperID == "" {
		paper.Identify()
	}
	if paper.PublishedDate.IsZero() {
		return nil, domain.NewValidationError("published_date", "published date is required")
	}

	authorsJSON, err := json.Marshal(paper.Authors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authors: %w", err)
	}

	linksJSON, err := json.Marshal(paper.Links)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal links: %w", err)
	}

	query := `
		INSERT INTO papers (
			paper_id, title, authors, published_date, summary, url, links,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $8
		)
		ON CONFLICT (paper_id) DO UPDATE SET
			title = EXCLUDED.title,
			authors = EXCLUDED.authors,
			published_date = EXCLUDED.published_date,
			summary = EXCLUDED.summary,
			url = EXCLUDED.url,
			links = EXCLUDED.links,
			updated_at = NOW()
		RETURNING created_at, updated_at`

	now := time.Now().UTC()
	err = r.db.QueryRow(ctx, query,
		paper.PaperID,
		paper.Title,
		authorsJSON,
		paper.PublishedDate,
		paper.Summary,
		paper.URL,
		linksJSON,
		now,
	).Scan(&paper.CreatedAt, &paper.UpdatedAt)

	if err != nil {
		return nil, domain.NewStoreError("upsert paper", err)
	}

	return paper, nil
}

// FindByID retrieves a paper by its content-derived identifier.
func (r *PgPaperRepository) FindByID(ctx context.Context, paperID string) (*domain.Paper, error) {
	if paperID == "" {
		return nil, domain.NewValidationError("paper_id", "paper ID is required")
	}

	query := `
		SELECT paper_id, title, authors, published_date, summary, url, links,
			created_at, updated_at
		FROM papers
		WHERE paper_id = $1`

	row := r.db.QueryRow(ctx, query, paperID)
	paper, err := scanPaper(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", paperID)
		}
		return nil, domain.NewStoreError("find paper by id", err)
	}

	return paper, nil
}

// FindByYear retrieves all papers published in the given calendar year.
// The year boundary is a closed date range on the published_date column,
// so a paper submitted on December 31 belongs to that year only.
func (r *PgPaperRepository) FindByYear(ctx context.Context, year int) ([]*domain.Paper, error) {
	if year <= 0 {
		return nil, domain.NewValidationError("year", "year must be positive")
	}

	query := `
		SELECT paper_id, title, authors, published_date, summary, url, links,
			created_at, updated_at
		FROM papers
		WHERE published_date >= make_date($1, 1, 1)
		  AND published_date < make_date($2, 1, 1)
		ORDER BY paper_id`

	rows, err := r.db.Query(ctx, query, year, year+1)
	if err != nil {
		return nil, domain.NewStoreError("find papers by year", err)
	}
	defer rows.Close()

	papers := make([]*domain.Paper, 0)
	for rows.Next() {
		paper, err := scanPaperFromRows(rows)
		if err != nil {
			return nil, domain.NewStoreError("scan paper", err)
		}
		papers = append(papers, paper)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate papers", err)
	}

	return papers, nil
}

// paperScanDest holds the destination pointers for scanning a Paper row.
type paperScanDest struct {
	paper       domain.Paper
	authorsJSON []byte
	linksJSON   []byte
}

// destinations returns the slice of pointers for Scan operations.
func (d *paperScanDest) destinations() []interface{} {
	return []interface{}{
		&d.paper.PaperID, &d.paper.Title, &d.authorsJSON, &d.paper.PublishedDate,
		&d.paper.Summary, &d.paper.URL, &d.linksJSON,
		&d.paper.CreatedAt, &d.paper.UpdatedAt,
	}
}

// finalize performs post-scan processing: unmarshals JSON fields.
func (d *paperScanDest) finalize() (*domain.Paper, error) {
	if len(d.authorsJSON) > 0 {
		if err := json.Unmarshal(d.authorsJSON, &d.paper.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}

	if len(d.linksJSON) > 0 {
		if err := json.Unmarshal(d.linksJSON, &d.paper.Links); err != nil {
			return nil, fmt.Errorf("failed to unmarshal links: %w", err)
		}
	}

	return &d.paper, nil
}

// scanPaper scans a single row into a Paper.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var dest paperScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanPaperFromRows scans the current row from pgx.Rows into a Paper.
func scanPaperFromRows(rows pgx.Rows) (*domain.Paper, error) {
	var dest paperScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}
