package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/table-reservation/internal/model"
)

const tableColumns = `t.id, t.table_number, t.capacity, t.description, t.image_url, t.is_active, t.created_at, t.updated_at, t.deleted_at`

// TableRepo manages restaurant_tables.  Every read ignores soft-deleted rows.
type TableRepo struct{ db *sqlx.DB }

func NewTableRepo(db *sqlx.DB) *TableRepo { return &TableRepo{db: db} }

// List returns live tables ordered by table number.
func (r *TableRepo) List(ctx context.Context) ([]model.Table, error) {
	out := []model.Table{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+tableColumns+` FROM restaurant_tables t WHERE t.deleted_at IS NULL ORDER BY t.table_number, t.id`)
	return out, err
}

func (r *TableRepo) GetByID(ctx context.Context, id uint64) (*model.Table, error) {
	var t model.Table
	err := r.db.GetContext(ctx, &t,
		`SELECT `+tableColumns+` FROM restaurant_tables t WHERE t.id = ? AND t.deleted_at IS NULL`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ExistsByNumber reports whether another live table (id != excludeID) uses number.
func (r *TableRepo) ExistsByNumber(ctx context.Context, number string, excludeID uint64) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok,
		`SELECT EXISTS(SELECT 1 FROM restaurant_tables WHERE table_number = ? AND deleted_at IS NULL AND id <> ?)`,
		number, excludeID)
	return ok, err
}

func (r *TableRepo) Create(ctx context.Context, t *model.Table) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO restaurant_tables (table_number, capacity, description, image_url, is_active) VALUES (?,?,?,?,?)`,
		t.TableNumber, t.Capacity, t.Description, t.ImageURL, t.IsActive)
	if err != nil {
		if key, dup := duplicateKey(err); dup && key == keyTableNumber {
			return ErrTableNumberExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// Update writes every mutable column of t.
func (r *TableRepo) Update(ctx context.Context, t *model.Table) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE restaurant_tables SET table_number = ?, capacity = ?, description = ?, image_url = ?, is_active = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		t.TableNumber, t.Capacity, t.Description, t.ImageURL, t.IsActive, t.ID)
	if err != nil {
		if key, dup := duplicateKey(err); dup && key == keyTableNumber {
			return ErrTableNumberExists
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTableNotFound
	}
	return nil
}

// SoftDelete marks a table deleted unless a confirmed booking references it.
// The check and the write are one statement, so a booking committed
// concurrently either blocks the delete or is blocked by it.
func (r *TableRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE restaurant_tables t SET t.deleted_at = UTC_TIMESTAMP(3)
		 WHERE t.id = ? AND t.deleted_at IS NULL
		   AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.table_id = t.id AND b.status = 'confirmed')`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	var live bool
	if err := r.db.GetContext(ctx, &live,
		`SELECT EXISTS(SELECT 1 FROM restaurant_tables WHERE id = ? AND deleted_at IS NULL)`, id); err != nil {
		return err
	}
	if !live {
		return ErrTableNotFound
	}
	return ErrTableInUse
}

// ListAvailable returns live tables without a confirmed booking at date/slot.
func (r *TableRepo) ListAvailable(ctx context.Context, date, slot string) ([]model.Table, error) {
	out := []model.Table{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT `+tableColumns+` FROM restaurant_tables t
		 WHERE t.deleted_at IS NULL
		   AND NOT EXISTS (
		       SELECT 1 FROM bookings b
		       WHERE b.table_id = t.id AND b.booking_date = ? AND b.time_slot = ? AND b.status = 'confirmed')
		 ORDER BY t.table_number, t.id`, date, slot)
	return out, err
}
