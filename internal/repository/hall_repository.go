package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/reeltime/internal/model"
)

// HallRepo stores halls and their seat layouts.
type HallRepo struct{ db *sqlx.DB }

func NewHallRepo(db *sqlx.DB) *HallRepo { return &HallRepo{db: db} }

const hallColumns = `id, admin_id, name, capacity, layout, created_at, updated_at`

// Create inserts a hall.  Names are unique per admin.
func (r *HallRepo) Create(ctx context.Context, h *model.Hall) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO halls (admin_id, name, capacity, layout) VALUES (?, ?, ?, ?)`,
		h.AdminID, h.Name, h.Capacity, h.Layout)
	if isDuplicate(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

func (r *HallRepo) GetByID(ctx context.Context, id uint64) (model.Hall, error) {
	var h model.Hall
	err := r.db.GetContext(ctx, &h, `SELECT `+hallColumns+` FROM halls WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return h, ErrHallNotFound
	}
	return h, err
}

func (r *HallRepo) ListByAdmin(ctx context.Context, adminID uint64) ([]model.Hall, error) {
	var out []model.Hall
	err := r.db.SelectContext(ctx, &out, `SELECT `+hallColumns+` FROM halls WHERE admin_id = ? ORDER BY name`, adminID)
	return out, err
}
