package csvimport

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowError_Error(t *testing.T) {
	assert.Equal(t, "row 3: price must be greater than 0",
		RowError{Row: 3, Message: "price must be greater than 0"}.Error())
	assert.Equal(t, "row 4, column 'sku': bad", RowError{Row: 4, Column: "sku", Message: "bad"}.Error())
}

func TestRowErrors(t *testing.T) {
	empty := NewRowErrors(0)
	assert.Zero(t, empty.Total())
	assert.False(t, empty.Truncated())
	assert.Empty(t, empty.Kept())

	c := NewRowErrors(DefaultMaxErrors)
	for i := 0; i < 150; i++ {
		code := ErrCodeImportValidation
		if i%2 == 1 {
			code = ErrCodeImportRowProcessing
		}
		c.Add(i+2, code, "name is required")
	}

	require.Len(t, c.Kept(), 100)
	assert.Equal(t, 150, c.Total())
	assert.True(t, c.Truncated())
	assert.Equal(t, 2, c.Kept()[0].Row)
	assert.Equal(t, 101, c.Kept()[99].Row)
	assert.Equal(t, map[string]int{ErrCodeImportValidation: 50, ErrCodeImportRowProcessing: 50}, c.ByCode())
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrEmptyFile, ErrCodeImportEmptyFile},
		{ErrInvalidEncoding, ErrCodeImportInvalidEncoding},
		{fmt.Errorf("decode: %w", ErrMissingHeader), ErrCodeImportMissingHeader},
		{ErrMalformedContent, ErrCodeImportCSVParsing},
		{ErrFileTooLarge, ErrCodeImportFileTooLarge},
	}
	for _, tt := range tests {
		assert.True(t, IsDecodeError(tt.err), tt.err.Error())
		assert.Equal(t, tt.want, ErrorCode(tt.err), tt.err.Error())
	}

	other := errors.New("disk on fire")
	assert.False(t, IsDecodeError(other))
	assert.Equal(t, ErrCodeImportInvalidFile, ErrorCode(other))
}
