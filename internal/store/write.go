package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/promotions/internal/ir"
)

// VersionConflictError is returned when an update names a version that is
// no longer current.
type VersionConflictError struct {
	ID       string
	Expected int
	Actual   int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("promotion %s: version conflict (expected %d, current %d)", e.ID, e.Expected, e.Actual)
}

// IsVersionConflict returns true if err is a VersionConflictError.
func IsVersionConflict(err error) bool {
	var ve *VersionConflictError
	return errors.As(err, &ve)
}

// SavePromotion inserts or replaces a promotion definition by id.
//
// A new id is appended after all existing promotions. Saving an existing id
// keeps its position; when the content hash changes the version is bumped
// and updated_at refreshed, otherwise the call is a no-op.
//
// Returns the stored record.
func (s *Store) SavePromotion(ctx context.Context, p ir.Promotion) (ir.Promotion, error) {
	if p.ID == "" {
		return ir.Promotion{}, fmt.Errorf("save promotion: id is required")
	}

	hash, err := ir.PromotionHash(p)
	if err != nil {
		return ir.Promotion{}, fmt.Errorf("save promotion %s: %w", p.ID, err)
	}
	whenJSON, err := marshalWhen(p.When)
	if err != nil {
		return ir.Promotion{}, fmt.Errorf("save promotion %s: %w", p.ID, err)
	}
	thenJSON, err := marshalThen(p.Then)
	if err != nil {
		return ir.Promotion{}, fmt.Errorf("save promotion %s: %w", p.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.Promotion{}, fmt.Errorf("save promotion %s: begin: %w", p.ID, err)
	}
	defer tx.Rollback()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT content_hash FROM promotions WHERE id = ?`, p.ID).Scan(&current)
	now := formatTime(s.now())

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO promotions
			(id, name, when_json, then_json, times, active, version, content_hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
		`, p.ID, p.Name, whenJSON, thenJSON, p.Times, activeValue(p.Active), hash, now, now)
		if err != nil {
			return ir.Promotion{}, fmt.Errorf("save promotion %s: insert: %w", p.ID, err)
		}
		slog.Debug("promotion inserted", "id", p.ID, "hash", hash)

	case err != nil:
		return ir.Promotion{}, fmt.Errorf("save promotion %s: lookup: %w", p.ID, err)

	case current == hash:
		slog.Debug("promotion unchanged", "id", p.ID)

	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE promotions
			SET name = ?, when_json = ?, then_json = ?, times = ?, active = ?,
			    version = version + 1, content_hash = ?, updated_at = ?
			WHERE id = ?
		`, p.Name, whenJSON, thenJSON, p.Times, activeValue(p.Active), hash, now, p.ID)
		if err != nil {
			return ir.Promotion{}, fmt.Errorf("save promotion %s: update: %w", p.ID, err)
		}
		slog.Debug("promotion updated", "id", p.ID, "hash", hash)
	}

	saved, err := getPromotion(ctx, tx, p.ID)
	if err != nil {
		return ir.Promotion{}, err
	}
	if err := tx.Commit(); err != nil {
		return ir.Promotion{}, fmt.Errorf("save promotion %s: commit: %w", p.ID, err)
	}
	return saved, nil
}

// UpdateAction is one change applied by UpdatePromotion.
type UpdateAction interface {
	apply(p *ir.Promotion) error
}

// ChangeName renames a promotion.
type ChangeName struct {
	Name string
}

func (a ChangeName) apply(p *ir.Promotion) error {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return fmt.Errorf("changeName: name must not be empty")
	}
	p.Name = name
	return nil
}

// ChangeActive activates or deactivates a promotion.
type ChangeActive struct {
	Active bool
}

func (a ChangeActive) apply(p *ir.Promotion) error {
	p.Active = ir.Bool(a.Active)
	return nil
}

// UpdatePromotion applies actions to the promotion with the given id.
//
// expectedVersion guards against lost updates: when it is non-zero and does
// not match the stored version a VersionConflictError is returned and
// nothing changes. Pass zero to skip the check.
//
// The version is bumped once per call, whatever the number of actions.
func (s *Store) UpdatePromotion(ctx context.Context, id string, expectedVersion int, actions ...UpdateAction) (ir.Promotion, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.Promotion{}, fmt.Errorf("update promotion %s: begin: %w", id, err)
	}
	defer tx.Rollback()

	p, err := getPromotion(ctx, tx, id)
	if err != nil {
		return ir.Promotion{}, err
	}
	if expectedVersion != 0 && p.Version != expectedVersion {
		return ir.Promotion{}, &VersionConflictError{ID: id, Expected: expectedVersion, Actual: p.Version}
	}

	for _, action := range actions {
		if err := action.apply(&p); err != nil {
			return ir.Promotion{}, fmt.Errorf("update promotion %s: %w", id, err)
		}
	}

	hash, err := ir.PromotionHash(p)
	if err != nil {
		return ir.Promotion{}, fmt.Errorf("update promotion %s: %w", id, err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE promotions
		SET name = ?, active = ?, version = version + 1, content_hash = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`, p.Name, activeValue(p.Active), hash, formatTime(s.now()), id, p.Version)
	if err != nil {
		return ir.Promotion{}, fmt.Errorf("update promotion %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ir.Promotion{}, fmt.Errorf("update promotion %s: %w", id, err)
	}
	if n != 1 {
		return ir.Promotion{}, &VersionConflictError{ID: id, Expected: p.Version, Actual: -1}
	}

	updated, err := getPromotion(ctx, tx, id)
	if err != nil {
		return ir.Promotion{}, err
	}
	if err := tx.Commit(); err != nil {
		return ir.Promotion{}, fmt.Errorf("update promotion %s: commit: %w", id, err)
	}

	slog.Info("promotion updated", "id", id, "version", updated.Version)
	return updated, nil
}

// SetActive activates or deactivates a promotion without a version check.
func (s *Store) SetActive(ctx context.Context, id string, active bool) (ir.Promotion, error) {
	return s.UpdatePromotion(ctx, id, 0, ChangeActive{Active: active})
}

// Delete removes a promotion. Returns ErrNotFound if the id does not exist.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM promotions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete promotion %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete promotion %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete promotion %s: %w", id, ErrNotFound)
	}
	return nil
}
