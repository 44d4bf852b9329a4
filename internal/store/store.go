package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/najdeno/internal/model"
)

// Store binds the package functions to one database. It is the candidate
// source handed to the matcher.
type Store struct {
	DB *sql.DB
}

// New returns a Store backed by db.
func New(db *sql.DB) *Store {
	return &Store{DB: db}
}

// ListUnclaimedItems implements matcher.CandidateSource.
func (s *Store) ListUnclaimedItems(ctx context.Context, kind model.Kind) ([]model.Item, error) {
	return ListUnclaimedItems(ctx, s.DB, kind)
}
