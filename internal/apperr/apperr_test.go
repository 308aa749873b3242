package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsKindAndMessage(t *testing.T) {
	base := E("store.GetItem", NotFound, "Item not found")
	wrapped := Wrap("catalog.Get", base)

	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.Equal(t, "Item not found", Message(wrapped))
	assert.True(t, errors.Is(wrapped, base))
	assert.Contains(t, wrapped.Error(), "catalog.Get")
}

func TestUnclassifiedErrorsAreInternal(t *testing.T) {
	err := Wrap("orders.Create", errors.New("connection reset"))

	assert.Equal(t, Internal, KindOf(err))
	assert.Equal(t, "Server error", Message(err))
	assert.Equal(t, http.StatusInternalServerError, Status(KindOf(err)))
	assert.Nil(t, Wrap("noop", nil))
}

func TestKindOfThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", E("auth.Resolve", Auth, "Token is not valid"))
	assert.True(t, Is(err, Auth))
	assert.False(t, Is(nil, Auth))
}

func TestStatusTable(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{Validation, http.StatusBadRequest},
		{Auth, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{NotFound, http.StatusNotFound},
		{Reference, http.StatusBadRequest},
		{Conflict, http.StatusBadRequest},
		{InsufficientStock, http.StatusBadRequest},
		{Unavailable, http.StatusServiceUnavailable},
		{Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.kind))
		})
	}
}
