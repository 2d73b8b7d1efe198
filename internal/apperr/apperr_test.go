package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		Validation:          400,
		InvalidState:        400,
		InsufficientBalance: 400,
		NotAuthorized:       403,
		NotFound:            404,
		Conflict:            409,
		ReaderUnavailable:   409,
		RateLimitExceeded:   429,
		Transient:           500,
		Internal:            500,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), "kind=%s", kind)
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, Internal, KindOf(errors.New("raw error")))
	assert.Equal(t, NotFound, KindOf(New(NotFound, "missing")))
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("db exploded")
	wrapped := Wrap(Transient, "load failed", cause)
	assert.ErrorIs(t, wrapped, cause)
}

func TestWithTagAppearsInErrorString(t *testing.T) {
	err := New(RateLimitExceeded, "too many requests").WithTag("payment")
	assert.Contains(t, err.Error(), "payment")
	assert.Equal(t, "payment", err.Tag)
}
