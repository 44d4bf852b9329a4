package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

var (
	// ErrItemNotFound is returned when an operation targets a missing item.
	ErrItemNotFound = errors.New("item not found")
	// ErrItemClaimed is returned when claiming an item that is already claimed.
	ErrItemClaimed = errors.New("item already claimed")
)

const itemColumns = `id, kind, item_name, category, description, event_date, location,
	contact_name, contact_email, contact_phone, image_filename, status, user_id,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var kind string
	var description, email, phone, image sql.NullString
	err := row.Scan(&item.ID, &kind, &item.Name, &item.Category, &description, &item.EventDate,
		&item.Location, &item.ContactName, &email, &phone, &image, &item.Status, &item.UserID,
		&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Kind = model.Kind(kind)
	item.Description = description.String
	item.ContactEmail = email.String
	item.ContactPhone = phone.String
	item.ImageFilename = image.String
	return item, nil
}

func scanItems(rows *sql.Rows) ([]model.Item, error) {
	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CreateItem records a newly reported item as unclaimed.
func CreateItem(ctx context.Context, db *sql.DB, kind model.Kind, in model.ItemInput, imageFilename string, userID *int64) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (kind, item_name, category, description, event_date, location,
		                    contact_name, contact_email, contact_phone, image_filename, user_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?)`,
		string(kind), in.Name, in.Category, in.Description, in.EventDate, in.Location,
		in.ContactName, in.ContactEmail, in.ContactPhone, imageFilename, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns items newest first, optionally filtered by kind and status.
func ListItems(ctx context.Context, db *sql.DB, kind model.Kind, status string) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any

	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// ListUnclaimedItems returns every unclaimed item of a kind, newest first.
// Event dates are returned exactly as stored.
func ListUnclaimedItems(ctx context.Context, db *sql.DB, kind model.Kind) ([]model.Item, error) {
	return ListItems(ctx, db, kind, model.ItemStatusUnclaimed)
}

// RecentUnclaimed returns up to limit of the newest unclaimed items of a kind.
func RecentUnclaimed(ctx context.Context, db *sql.DB, kind model.Kind, limit int) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE kind = ? AND status = 'unclaimed'
		 ORDER BY created_at DESC, id DESC LIMIT ?`, string(kind), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// UpdateItem replaces an item's descriptive fields.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, in model.ItemInput) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET item_name = ?, category = ?, description = ?, event_date = ?,
		        location = ?, contact_name = ?, contact_email = ?, contact_phone = ?,
		        updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		in.Name, in.Category, in.Description, in.EventDate, in.Location,
		in.ContactName, in.ContactEmail, in.ContactPhone, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return requireAffected(result, ErrItemNotFound)
}

// SetItemStatus sets an item's status.
func SetItemStatus(ctx context.Context, db *sql.DB, id int64, status string) error {
	if !model.ValidItemStatus(status) {
		return fmt.Errorf("invalid item status %q", status)
	}
	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("setting item status: %w", err)
	}
	return requireAffected(result, ErrItemNotFound)
}

// SetItemImage records the stored image file for an item.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, filename string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET image_filename = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		filename, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return requireAffected(result, ErrItemNotFound)
}

// DeleteItem removes an item together with its claims.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM claims WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("deleting item claims: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if err := requireAffected(result, ErrItemNotFound); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing item delete: %w", err)
	}
	return nil
}

// Stats holds the dashboard counters.
type Stats struct {
	LostUnclaimed  int
	FoundUnclaimed int
	Claimed        int
}

// CountItems returns the dashboard counters.
func CountItems(ctx context.Context, db *sql.DB) (Stats, error) {
	var s Stats
	err := db.QueryRowContext(ctx,
		`SELECT
		     COALESCE(SUM(kind = 'lost' AND status = 'unclaimed'), 0),
		     COALESCE(SUM(kind = 'found' AND status = 'unclaimed'), 0),
		     COALESCE(SUM(status = 'claimed'), 0)
		 FROM items`,
	).Scan(&s.LostUnclaimed, &s.FoundUnclaimed, &s.Claimed)
	if err != nil {
		return Stats{}, fmt.Errorf("counting items: %w", err)
	}
	return s, nil
}

func requireAffected(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
