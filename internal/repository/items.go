package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"shoplist/internal/apperr"
	"shoplist/internal/database"
	"shoplist/internal/models"
	"shoplist/pkg/logger"
)

// Items is the item store. Every method is a single statement, so each
// write is atomic with respect to concurrent requests.
type Items struct {
	db      *sql.DB
	dialect database.Dialect
	now     func() time.Time
}

// NewItems returns an item store over db.
func NewItems(db *sql.DB, dialect database.Dialect) *Items {
	return &Items{db: db, dialect: dialect, now: time.Now}
}

// UpdateFields carries a partial update; nil fields are left untouched.
type UpdateFields struct {
	Name      *string
	Completed *bool
}

// ValidateName trims name and rejects it when nothing is left.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.Validation("name", "Item name is required")
	}
	return name, nil
}

// ListAll returns every item in creation order.
func (r *Items) ListAll(ctx context.Context) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, completed, created_at FROM items ORDER BY created_at ASC, id ASC`)
	if err != nil {
		logger.Error(ctx, "Repository ListAll failed", "error", err)
		return nil, apperr.Store("list items", err)
	}
	defer rows.Close()
	items := make([]models.Item, 0)
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Completed, &it.CreatedAt); err != nil {
			logger.Error(ctx, "Repository scan item failed", "error", err)
			return nil, apperr.Store("scan item", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("list items", err)
	}
	return items, nil
}

// Add inserts a new, uncompleted item and returns it with its assigned id.
func (r *Items) Add(ctx context.Context, name string) (models.Item, error) {
	name, err := ValidateName(name)
	if err != nil {
		return models.Item{}, err
	}
	it := models.Item{
		Name:      name,
		Completed: false,
		CreatedAt: r.now().UTC().Truncate(time.Microsecond),
	}
	err = r.db.QueryRowContext(ctx,
		r.dialect.Rebind(`INSERT INTO items (name, completed, created_at) VALUES (?, ?, ?) RETURNING id`),
		it.Name, it.Completed, it.CreatedAt).Scan(&it.ID)
	if err != nil {
		logger.Error(ctx, "Repository Add failed", "error", err)
		return models.Item{}, apperr.Store("add item", err)
	}
	return it, nil
}

// Update applies the provided fields to item id. An unknown id is a no-op.
func (r *Items) Update(ctx context.Context, id int64, f UpdateFields) error {
	var (
		sets []string
		args []interface{}
	)
	if f.Name != nil {
		name, err := ValidateName(*f.Name)
		if err != nil {
			return err
		}
		sets = append(sets, "name = ?")
		args = append(args, name)
	}
	if f.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *f.Completed)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	q := r.dialect.Rebind(`UPDATE items SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		logger.Error(ctx, "Repository Update failed", "error", err, "id", id)
		return apperr.Store("update item", err)
	}
	return nil
}

// Toggle flips the completed flag of item id. An unknown id is a no-op.
func (r *Items) Toggle(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		r.dialect.Rebind(`UPDATE items SET completed = NOT completed WHERE id = ?`), id)
	if err != nil {
		logger.Error(ctx, "Repository Toggle failed", "error", err, "id", id)
		return apperr.Store("toggle item", err)
	}
	return nil
}

// Delete removes item id. An unknown id is a no-op.
func (r *Items) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM items WHERE id = ?`), id)
	if err != nil {
		logger.Error(ctx, "Repository Delete failed", "error", err, "id", id)
		return apperr.Store("delete item", err)
	}
	return nil
}

// ClearCompleted removes every completed item and reports how many went.
func (r *Items) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM items WHERE completed = ?`), true)
	if err != nil {
		logger.Error(ctx, "Repository ClearCompleted failed", "error", err)
		return 0, apperr.Store("clear completed", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Ping checks the underlying connection.
func (r *Items) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
