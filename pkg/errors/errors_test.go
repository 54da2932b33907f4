package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesSentinel(t *testing.T) {
	err := Clone(ErrDuplicateSubmission, "challenge already completed")
	assert.True(t, errors.Is(err, ErrDuplicateSubmission))
	assert.False(t, errors.Is(err, ErrItemNotFound))
	assert.Equal(t, http.StatusConflict, FromError(err).Status)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(fmt.Errorf("load facts: %w", context.DeadlineExceeded)))
	assert.True(t, IsTransient(&pq.Error{Code: "08006"}))
	assert.False(t, IsTransient(&pq.Error{Code: "23505"}))
	assert.False(t, IsTransient(errors.New("boom")))
	assert.False(t, IsTransient(nil))
}

func TestFromErrorClassifiesTransient(t *testing.T) {
	appErr := FromError(context.DeadlineExceeded)
	assert.Equal(t, ErrTransientStorage.Code, appErr.Code)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Status)

	appErr = FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
}

func TestStorageWrap(t *testing.T) {
	assert.Equal(t, ErrTransientStorage.Code, Storage(context.DeadlineExceeded, "load").Code)
	assert.Equal(t, ErrInternal.Code, Storage(errors.New("syntax"), "load").Code)
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
}
