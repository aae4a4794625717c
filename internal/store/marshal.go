package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/promotions/internal/ir"
)

// timeLayout is the storage format of audit timestamps.
const timeLayout = time.RFC3339Nano

// marshalWhen converts the guard to JSON TEXT, keeping clause order.
func marshalWhen(w ir.When) (string, error) {
	if w == nil {
		w = ir.When{}
	}
	data, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("marshal when: %w", err)
	}
	return string(data), nil
}

// marshalThen converts the action list to JSON TEXT.
func marshalThen(as ir.Actions) (string, error) {
	if as == nil {
		as = ir.Actions{}
	}
	data, err := json.Marshal(as)
	if err != nil {
		return "", fmt.Errorf("marshal then: %w", err)
	}
	return string(data), nil
}

func unmarshalWhen(data string) (ir.When, error) {
	var w ir.When
	if err := json.Unmarshal([]byte(data), &w); err != nil {
		return nil, fmt.Errorf("unmarshal when: %w", err)
	}
	return w, nil
}

func unmarshalThen(data string) (ir.Actions, error) {
	var as ir.Actions
	if err := json.Unmarshal([]byte(data), &as); err != nil {
		return nil, fmt.Errorf("unmarshal then: %w", err)
	}
	return as, nil
}

// activeValue maps the tri-state active flag to a nullable column.
func activeValue(active *bool) sql.NullBool {
	if active == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *active, Valid: true}
}

func activeFromColumn(v sql.NullBool) *bool {
	if !v.Valid {
		return nil
	}
	return ir.Bool(v.Bool)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
