package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
)

// FieldRepo implements ports.FieldRepository with pgx. Vertices are stored as jsonb.
type FieldRepo struct {
	db *DB
}

// NewFieldRepo creates a new FieldRepo.
func NewFieldRepo(db *DB) *FieldRepo {
	return &FieldRepo{db: db}
}

const insertField = `
	INSERT INTO fields (id, name, vertices, area_m2, perimeter_m, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name, vertices = EXCLUDED.vertices,
	    area_m2 = EXCLUDED.area_m2, perimeter_m = EXCLUDED.perimeter_m`

// Save inserts or replaces a field.
func (r *FieldRepo) Save(ctx context.Context, f *domain.SavedField) error {
	vs, err := json.Marshal(f.Vertices)
	if err != nil {
		return fmt.Errorf("marshal vertices: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, insertField, f.ID, f.Name, vs, f.AreaM2, f.PerimeterM, f.CreatedAt)
	return err
}

// SaveBatch inserts many fields using pgx.Batch.
func (r *FieldRepo) SaveBatch(ctx context.Context, fields []domain.SavedField) error {
	batch := &pgx.Batch{}
	for _, f := range fields {
		vs, err := json.Marshal(f.Vertices)
		if err != nil {
			return fmt.Errorf("marshal vertices for %s: %w", f.ID, err)
		}
		batch.Queue(insertField, f.ID, f.Name, vs, f.AreaM2, f.PerimeterM, f.CreatedAt)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range fields {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByID returns a field by id.
func (r *FieldRepo) GetByID(ctx context.Context, id string) (*domain.SavedField, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, vertices, area_m2, perimeter_m, created_at
		FROM fields WHERE id = $1
	`, id)
	f, err := scanField(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

// List returns all fields, newest first.
func (r *FieldRepo) List(ctx context.Context) ([]domain.SavedField, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, vertices, area_m2, perimeter_m, created_at
		FROM fields
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	fields, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.SavedField, error) {
		f, err := scanField(row)
		if err != nil {
			return domain.SavedField{}, err
		}
		return *f, nil
	})
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = []domain.SavedField{}
	}
	return fields, nil
}

// Delete removes a field by id.
func (r *FieldRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM fields WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanField(row pgx.Row) (*domain.SavedField, error) {
	var (
		f  domain.SavedField
		vs []byte
	)
	if err := row.Scan(&f.ID, &f.Name, &vs, &f.AreaM2, &f.PerimeterM, &f.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(vs, &f.Vertices); err != nil {
		return nil, fmt.Errorf("decode vertices for %s: %w", f.ID, err)
	}
	return &f, nil
}
