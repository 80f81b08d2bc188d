// Package repository provides data access interfaces and implementations
// for the research assistant service.
//
// # Overview
//
// This package defines repository interfaces and their PostgreSQL implementations
// following the repository pattern to abstract data persistence from business logic.
//
// # Error Handling
//
// All methods return domain-specific errors from the domain package.
// Database errors are wrapped with domain.StoreError so that callers can
// test against domain.ErrStoreUnavailable. A missing row maps to
// domain.ErrNotFound.
//
// # Transactions
//
// Use the DBTX interface to support both pool and transaction contexts.
// Pass a transaction from database.DB.WithTransaction for atomic operations:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    txRepo := repository.NewPgPaperRepository(tx)
//	    _, err := txRepo.Upsert(ctx, paper)
//	    return err
//	})
//
// # Thread Safety
//
// All repository implementations are safe for concurrent use by multiple
// goroutines. The underlying pgxpool handles connection pooling and
// synchronization.
package repository

import (
	"context"

	"github.com/paperdesk/research-assistant/internal/database"
	"github.com/paperdesk/research-assistant/internal/domain"
)

// DBTX is the database interface supporting both pool and transaction contexts.
// This allows repositories to work with both direct pool connections and transactions.
type DBTX = database.DBTX

// PaperRepository manages persistence of academic papers.
type PaperRepository interface {
	// Upsert inserts a paper or updates the existing row with the same
	// paper ID. The operation is idempotent: repeating it with identical
	// input leaves a single row. Returns the stored paper with its
	// created_at and updated_at populated.
	Upsert(ctx context.Context, paper *domain.Paper) (*domain.Paper, error)

	// FindByID retrieves a paper by its content-derived identifier.
	// Returns domain.ErrNotFound if no such paper exists.
	FindByID(ctx context.Context, paperID string) (*domain.Paper, error)

	// FindByYear retrieves all papers published in the given calendar
	// year, ordered by paper ID. Returns an empty slice when the year
	// holds no papers.
	FindByYear(ctx context.Context, year int) ([]*domain.Paper, error)
}
