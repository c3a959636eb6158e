package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsKind(t *testing.T) {
	err := fmt.Errorf("create: %w", New(Conflict, "table is not available"))

	assert.True(t, errors.Is(err, Conflict))
	assert.False(t, errors.Is(err, NotFound))
	assert.Equal(t, Conflict, KindOf(err))
	assert.Equal(t, http.StatusConflict, KindOf(err).Status())
}

func TestKindOf_Unclassified(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("boom")))
	assert.Equal(t, NotFound, KindOf(fmt.Errorf("lookup: %w", NotFound)))
}

func TestInternalErr_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := InternalErr(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error", err.Message)
	assert.Equal(t, http.StatusInternalServerError, err.Kind.Status())
}
