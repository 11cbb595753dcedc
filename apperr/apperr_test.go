package apperr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestFromStorage(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{name: "record_not_found", in: gorm.ErrRecordNotFound, want: ErrNotFound},
		{name: "duplicated_key", in: gorm.ErrDuplicatedKey, want: ErrConflict},
		{name: "sqlite_unique", in: errors.New("constraint failed: UNIQUE constraint failed: orders.code (2067)"), want: ErrConflict},
		{name: "postgres_unique", in: errors.New(`ERROR: duplicate key value violates unique constraint "idx_orders_code"`), want: ErrConflict},
		{name: "deadline", in: context.DeadlineExceeded, want: ErrStorageUnavailable},
		{name: "anything_else", in: errors.New("connection refused"), want: ErrStorageUnavailable},
		{name: "already_classified", in: Invalid("email", "is required"), want: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, FromStorage(tt.in), tt.want)
		})
	}
}

func TestFromStorage_Nil(t *testing.T) {
	assert.NoError(t, FromStorage(nil))
}

func TestValidationError(t *testing.T) {
	err := Invalid("phone", "phone is required")
	assert.EqualError(t, err, "phone: phone is required")
	assert.ErrorIs(t, err, ErrInvalidInput)

	var ve ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Equal(t, "phone", ve.Field)
}
