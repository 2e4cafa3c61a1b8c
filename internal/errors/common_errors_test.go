package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name        string
		appError    *AppError
		wantMessage string
	}{
		{
			name:        "error without cause",
			appError:    NewAppValidationError("sampling rate must be 100 or 500"),
			wantMessage: "[VALIDATION] sampling rate must be 100 or 500",
		},
		{
			name:        "error with cause",
			appError:    NewParsingError("row 3 scp_codes", fmt.Errorf("bad literal")),
			wantMessage: "[PARSING] row 3 scp_codes: bad literal",
		},
		{
			name:        "not found with attached cause",
			appError:    NewNotFoundError("records100/00001_lr.hea").WithCause(fs.ErrNotExist),
			wantMessage: "[NOT_FOUND] records100/00001_lr.hea not found: file does not exist",
		},
		{
			name:        "conflict",
			appError:    NewConflictError("pipeline already running"),
			wantMessage: "[CONFLICT] pipeline already running",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMessage, tt.appError.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	err := fmt.Errorf("load ecg 5: %w", NewNotFoundError("x.dat").WithCause(fs.ErrNotExist))

	assert.True(t, errors.Is(err, fs.ErrNotExist))

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, ErrTypeNotFound, appErr.Type)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewParsingError("bad row", nil).WithContext("ecg_id", 12).WithContext("row", 4)

	assert.Equal(t, 12, err.Context["ecg_id"])
	assert.Equal(t, 4, err.Context["row"])
}

func TestIsType(t *testing.T) {
	inner := NewNotFoundError("a.dat").WithCause(fs.ErrNotExist)
	outer := NewParsingError("decode record", inner)

	assert.True(t, IsType(outer, ErrTypeParsing))
	assert.True(t, IsType(outer, ErrTypeNotFound))
	assert.False(t, IsType(outer, ErrTypeConfig))
	assert.False(t, IsType(fmt.Errorf("plain"), ErrTypeParsing))
	assert.False(t, IsType(nil, ErrTypeParsing))
}
