package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// ErrClaimNotFound is returned when an operation targets a missing claim.
var ErrClaimNotFound = errors.New("claim not found")

const claimSelect = `SELECT c.id, c.item_id, c.claimant_name, c.claimant_email, c.claimant_phone,
	       c.claim_description, c.status, c.user_id, c.created_at,
	       i.item_name, i.kind, i.contact_name
	FROM claims c
	JOIN items i ON i.id = c.item_id`

func scanClaim(row rowScanner) (*model.Claim, error) {
	c := &model.Claim{}
	var email, phone, description sql.NullString
	var kind string
	err := row.Scan(&c.ID, &c.ItemID, &c.Name, &email, &phone, &description, &c.Status,
		&c.UserID, &c.CreatedAt, &c.ItemName, &kind, &c.OriginalContact)
	if err != nil {
		return nil, err
	}
	c.Email = email.String
	c.Phone = phone.String
	c.Description = description.String
	c.ItemKind = model.Kind(kind)
	return c, nil
}

// CreateClaim files a claim and marks the item claimed in one transaction.
// It fails with ErrItemNotFound or ErrItemClaimed when the item cannot be
// claimed.
func CreateClaim(ctx context.Context, db *sql.DB, itemID int64, in model.ClaimInput, userID *int64) (*model.Claim, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Flip the status first: the write lock it takes serializes concurrent
	// claims, and the WHERE clause rejects items that are already claimed.
	result, err := tx.ExecContext(ctx,
		`UPDATE items SET status = 'claimed', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = 'unclaimed'`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("marking item claimed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM items WHERE id = ?`, itemID).Scan(&status)
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("checking item status: %w", err)
		}
		return nil, ErrItemClaimed
	}

	result, err = tx.ExecContext(ctx,
		`INSERT INTO claims (item_id, claimant_name, claimant_email, claimant_phone, claim_description, user_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		itemID, in.Name, in.Email, in.Phone, in.Description, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("recording claim: %w", err)
	}
	claimID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting claim id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	return GetClaim(ctx, db, claimID)
}

// GetClaim returns a claim by ID.
func GetClaim(ctx context.Context, db *sql.DB, id int64) (*model.Claim, error) {
	c, err := scanClaim(db.QueryRowContext(ctx, claimSelect+` WHERE c.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return c, nil
}

// ListClaims returns all claims with their item details, newest first.
func ListClaims(ctx context.Context, db *sql.DB) ([]model.Claim, error) {
	rows, err := db.QueryContext(ctx, claimSelect+` ORDER BY c.created_at DESC, c.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	defer rows.Close()

	var claims []model.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// LatestClaimForItem returns the most recent claim on an item, or nil.
func LatestClaimForItem(ctx context.Context, db *sql.DB, itemID int64) (*model.Claim, error) {
	c, err := scanClaim(db.QueryRowContext(ctx,
		claimSelect+` WHERE c.item_id = ? ORDER BY c.created_at DESC, c.id DESC LIMIT 1`, itemID,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest claim: %w", err)
	}
	return c, nil
}

// SetClaimStatus records an administrator's decision on a claim.
func SetClaimStatus(ctx context.Context, db *sql.DB, id int64, status string) error {
	if !model.ValidClaimStatus(status) {
		return fmt.Errorf("invalid claim status %q", status)
	}
	result, err := db.ExecContext(ctx, `UPDATE claims SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("setting claim status: %w", err)
	}
	return requireAffected(result, ErrClaimNotFound)
}
