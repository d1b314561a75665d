package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/randosoru/apiserver/types"
)

// FormRepository handles persistence for forms and their boss slots.
type FormRepository struct {
	db *sql.DB
}

func NewFormRepository(db *sql.DB) *FormRepository {
	return &FormRepository{db: db}
}

func (r *FormRepository) Get(ctx context.Context, id string) (types.Form, error) {
	const query = `
		SELECT id, owner_id, month, title, description, status, created_at
		FROM forms
		WHERE id = $1`
	var form types.Form
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&form.ID,
		&form.OwnerID,
		&form.Month,
		&form.Title,
		&form.Description,
		&form.Status,
		&form.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Form{}, ErrNotFound
		}
		return types.Form{}, err
	}
	return form, nil
}

func (r *FormRepository) Create(ctx context.Context, form types.Form) (types.Form, error) {
	form.CreatedAt = time.Now()

	const query = `
		INSERT INTO forms (id, owner_id, month, title, description, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		form.ID,
		form.OwnerID,
		form.Month,
		form.Title,
		form.Description,
		form.Status,
		form.CreatedAt,
	); err != nil {
		return types.Form{}, err
	}
	return form, nil
}

func (r *FormRepository) Update(ctx context.Context, form types.Form) (types.Form, error) {
	const query = `
		UPDATE forms
		SET month = $1,
			title = $2,
			description = $3,
			status = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(
		ctx,
		query,
		form.Month,
		form.Title,
		form.Description,
		form.Status,
		form.ID,
	)
	if err != nil {
		return types.Form{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Form{}, err
	}
	if affected == 0 {
		return types.Form{}, ErrNotFound
	}
	return form, nil
}

func (r *FormRepository) ListBossSlots(ctx context.Context, formID string) ([]types.BossSlot, error) {
	const query = `
		SELECT form_id, boss, name, image, hp1, hp2, hp3, hp4
		FROM boss_slots
		WHERE form_id = $1
		ORDER BY boss`
	rows, err := r.db.QueryContext(ctx, query, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []types.BossSlot
	for rows.Next() {
		var slot types.BossSlot
		if err := rows.Scan(
			&slot.FormID,
			&slot.Boss,
			&slot.Name,
			&slot.Image,
			&slot.HP[0],
			&slot.HP[1],
			&slot.HP[2],
			&slot.HP[3],
		); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// UpsertBossSlot inserts a slot or updates it in place when one already
// exists for (form, boss).
func (r *FormRepository) UpsertBossSlot(ctx context.Context, slot types.BossSlot) error {
	const query = `
		INSERT INTO boss_slots (form_id, boss, name, image, hp1, hp2, hp3, hp4)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (form_id, boss) DO UPDATE
		SET name = EXCLUDED.name,
			image = EXCLUDED.image,
			hp1 = EXCLUDED.hp1,
			hp2 = EXCLUDED.hp2,
			hp3 = EXCLUDED.hp3,
			hp4 = EXCLUDED.hp4`
	_, err := r.db.ExecContext(
		ctx,
		query,
		slot.FormID,
		slot.Boss,
		slot.Name,
		slot.Image,
		slot.HP[0],
		slot.HP[1],
		slot.HP[2],
		slot.HP[3],
	)
	return err
}

// SetBossImage stores the object key of an uploaded boss image, creating
// the slot if needed.
func (r *FormRepository) SetBossImage(ctx context.Context, formID string, boss int, image string) error {
	const query = `
		INSERT INTO boss_slots (form_id, boss, image)
		VALUES ($1, $2, $3)
		ON CONFLICT (form_id, boss) DO UPDATE
		SET image = EXCLUDED.image`
	_, err := r.db.ExecContext(ctx, query, formID, boss, image)
	return err
}
