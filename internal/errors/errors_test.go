package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesFromCode(t *testing.T) {
	err := New(ErrCodeStoreClosed, "store closed", nil)

	assert.Equal(t, CategoryCatalog, err.Category)
	assert.Equal(t, SeverityError, err.Severity)
	assert.True(t, err.Retryable)
	assert.Equal(t, "[ERR_201_STORE_CLOSED] store closed", err.Error())
}

func TestCategoryDerivation(t *testing.T) {
	tests := []struct {
		code string
		want Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeStoreClosed, CategoryCatalog},
		{ErrCodeItemInvalid, CategoryCatalog},
		{ErrCodeQueryCancelled, CategoryQuery},
		{ErrCodeQueryTimeout, CategoryQuery},
		{ErrCodeInternal, CategoryInternal},
		{"bogus", CategoryInternal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, categoryFromCode(tt.code), tt.code)
	}
}

func TestIs_MatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", StoreClosedError("snapshot on closed store"))

	assert.True(t, stderrors.Is(err, New(ErrCodeStoreClosed, "", nil)))
	assert.False(t, stderrors.Is(err, New(ErrCodeQueryTimeout, "", nil)))
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(ErrCodeConfigInvalid, cause)

	require.NotNil(t, err)
	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.True(t, stderrors.Is(err, cause))
}

func TestWrap_NilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, IsRetryable(StoreClosedError("closed")))
	assert.True(t, IsRetryable(TimeoutError("slow", nil)))
	assert.False(t, IsRetryable(ConfigError("bad cap", nil)))
	assert.False(t, IsRetryable(stderrors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestCancelledOutcome(t *testing.T) {
	err := CancelledError("superseded", nil)

	assert.True(t, IsCancelled(err))
	assert.Equal(t, SeverityWarning, err.Severity, "cancellation is a normal outcome, not a failure")
	assert.False(t, IsCancelled(stderrors.New("plain")))
}
