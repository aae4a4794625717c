package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/promotions/internal/ir"
)

// ErrNotFound is returned when a promotion id does not exist.
var ErrNotFound = errors.New("promotion not found")

const selectPromotion = `
	SELECT id, name, when_json, then_json, times, active, version, created_at, updated_at
	FROM promotions`

// Find returns the active promotions in insertion order.
//
// A promotion is active unless its active column is explicitly 0. When
// filter.ID is set only that promotion is considered.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) Find(ctx context.Context, filter ir.PromotionFilter) ([]ir.Promotion, error) {
	query := selectPromotion + `
	WHERE (active IS NULL OR active != 0)`
	var args []any
	if filter.ID != "" {
		query += ` AND id = ?`
		args = append(args, filter.ID)
	}
	query += `
	ORDER BY seq ASC`

	return s.queryPromotions(ctx, query, args...)
}

// List returns every promotion, active or not, in insertion order.
func (s *Store) List(ctx context.Context) ([]ir.Promotion, error) {
	return s.queryPromotions(ctx, selectPromotion+`
	ORDER BY seq ASC`)
}

// Get returns the promotion with the given id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (ir.Promotion, error) {
	return getPromotion(ctx, s.db, id)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getPromotion(ctx context.Context, q queryer, id string) (ir.Promotion, error) {
	row := q.QueryRowContext(ctx, selectPromotion+`
	WHERE id = ?`, id)

	p, err := scanPromotion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Promotion{}, fmt.Errorf("get promotion %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.Promotion{}, fmt.Errorf("get promotion %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) queryPromotions(ctx context.Context, query string, args ...any) ([]ir.Promotion, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query promotions: %w", err)
	}
	defer rows.Close()

	promotions := []ir.Promotion{}
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		promotions = append(promotions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotions: %w", err)
	}

	return promotions, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPromotion(sc scanner) (ir.Promotion, error) {
	var (
		p                    ir.Promotion
		whenJSON, thenJSON   string
		active               sql.NullBool
		createdAt, updatedAt string
	)
	err := sc.Scan(&p.ID, &p.Name, &whenJSON, &thenJSON, &p.Times, &active, &p.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Promotion{}, err
		}
		return ir.Promotion{}, fmt.Errorf("scan promotion: %w", err)
	}

	if p.When, err = unmarshalWhen(whenJSON); err != nil {
		return ir.Promotion{}, fmt.Errorf("promotion %s: %w", p.ID, err)
	}
	if p.Then, err = unmarshalThen(thenJSON); err != nil {
		return ir.Promotion{}, fmt.Errorf("promotion %s: %w", p.ID, err)
	}
	p.Active = activeFromColumn(active)
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return ir.Promotion{}, fmt.Errorf("promotion %s: %w", p.ID, err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return ir.Promotion{}, fmt.Errorf("promotion %s: %w", p.ID, err)
	}
	return p, nil
}
