package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/preset"
)

const (
	listPresetsSQL = `SELECT id, name, payment_methods, subscriptions, qr_payment, updated_at
		FROM presets ORDER BY id`

	getPresetByIDSQL = `SELECT id, name, payment_methods, subscriptions, qr_payment, updated_at
		FROM presets WHERE id = $1`

	insertPresetSQL = `INSERT INTO presets (id, name, payment_methods, subscriptions, qr_payment, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`

	updatePresetSQL = `UPDATE presets SET
			name = $2,
			payment_methods = $3,
			subscriptions = $4,
			qr_payment = $5,
			updated_at = NOW()
		WHERE id = $1`

	deletePresetSQL = `DELETE FROM presets WHERE id = $1`
)

var _ preset.Repository = (*PresetRepository)(nil)

// PresetRepository implements preset.Repository backed by PostgreSQL.
// Subscriptions are stored as a JSONB array.
type PresetRepository struct {
	pool *pgxpool.Pool
}

// NewPresetRepository returns a PresetRepository that uses the given pool.
func NewPresetRepository(pool *pgxpool.Pool) *PresetRepository {
	return &PresetRepository{pool: pool}
}

// List returns all stored presets ordered by ID.
func (r *PresetRepository) List(ctx context.Context) ([]preset.Preset, error) {
	rows, err := r.pool.Query(ctx, listPresetsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing presets: %w", err)
	}
	return pgx.CollectRows(rows, scanPreset)
}

// GetByID returns a single preset by its identifier.
// Returns preset.ErrNotFound when no matching preset exists.
func (r *PresetRepository) GetByID(ctx context.Context, id string) (*preset.Preset, error) {
	rows, err := r.pool.Query(ctx, getPresetByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting preset %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPreset)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, preset.ErrNotFound
		}
		return nil, fmt.Errorf("getting preset %q: %w", id, err)
	}
	return &p, nil
}

// Create stores a new preset.
func (r *PresetRepository) Create(ctx context.Context, p *preset.Preset) error {
	subs, err := json.Marshal(p.Subscriptions)
	if err != nil {
		return fmt.Errorf("encoding subscriptions for preset %q: %w", p.ID, err)
	}

	_, err = r.pool.Exec(ctx, insertPresetSQL,
		p.ID, p.Name, p.PaymentMethods, subs, p.QRPayment,
	)
	if err != nil {
		return fmt.Errorf("creating preset %q: %w", p.ID, err)
	}
	return nil
}

// Update replaces an existing preset.
// Returns preset.ErrNotFound when no matching preset exists.
func (r *PresetRepository) Update(ctx context.Context, p *preset.Preset) error {
	subs, err := json.Marshal(p.Subscriptions)
	if err != nil {
		return fmt.Errorf("encoding subscriptions for preset %q: %w", p.ID, err)
	}

	tag, err := r.pool.Exec(ctx, updatePresetSQL,
		p.ID, p.Name, p.PaymentMethods, subs, p.QRPayment,
	)
	if err != nil {
		return fmt.Errorf("updating preset %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return preset.ErrNotFound
	}
	return nil
}

// Delete removes a preset.
// Returns preset.ErrNotFound when no matching preset exists.
func (r *PresetRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deletePresetSQL, id)
	if err != nil {
		return fmt.Errorf("deleting preset %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return preset.ErrNotFound
	}
	return nil
}

func scanPreset(row pgx.CollectableRow) (preset.Preset, error) {
	var (
		p    preset.Preset
		subs []byte
	)
	err := row.Scan(&p.ID, &p.Name, &p.PaymentMethods, &subs, &p.QRPayment, &p.UpdatedAt)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal(subs, &p.Subscriptions); err != nil {
		return p, fmt.Errorf("decoding subscriptions for preset %q: %w", p.ID, err)
	}
	return p, nil
}
