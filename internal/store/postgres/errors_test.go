package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"warehouse-backend/internal/store"
)

func TestTranslate(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"record not found", gorm.ErrRecordNotFound, store.ErrNotFound},
		{"wrapped record not found", fmt.Errorf("take: %w", gorm.ErrRecordNotFound), store.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "uq_stored_in_rack"}, store.ErrConflict},
		{"foreign key", &pgconn.PgError{Code: "23503"}, store.ErrConstraint},
		{"check", &pgconn.PgError{Code: "23514", ConstraintName: "chk_warehouses_budget"}, store.ErrConstraint},
		{"serialization", &pgconn.PgError{Code: "40001"}, store.ErrSerialization},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, store.ErrSerialization},
		{"passthrough", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			if tt.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestTranslate_KeepsConstraintName(t *testing.T) {
	err := translate(&pgconn.PgError{Code: "23505", ConstraintName: "uq_stored_in_rack"})
	assert.Contains(t, err.Error(), "uq_stored_in_rack")
}
