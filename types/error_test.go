package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusHTTPMapping(t *testing.T) {
	t.Parallel()

	cases := map[Status]int{
		StatusOK:                200,
		StatusCancelled:         499,
		StatusInvalidArgument:   400,
		StatusDeadlineExceeded:  504,
		StatusNotFound:          404,
		StatusAlreadyExists:     409,
		StatusPermissionDenied:  403,
		StatusUnauthenticated:   401,
		StatusResourceExhausted: 429,
		StatusAborted:           409,
		StatusUnimplemented:     501,
		StatusInternal:          500,
		StatusUnavailable:       503,
		StatusDataLoss:          500,
	}
	for status, want := range cases {
		assert.Equal(t, want, status.HTTPStatus(), "status %s", status)
	}
	assert.Equal(t, 500, Status("BOGUS").HTTPStatus())
	assert.False(t, Status("BOGUS").Valid())
	assert.True(t, StatusAborted.Valid())
}

func TestErrorChain(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := NewError(StatusUnavailable, "model %q unreachable", "m1").WithCause(cause)

	assert.Equal(t, `[UNAVAILABLE] model "m1" unreachable: connection refused`, err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, StatusUnavailable, StatusOf(err))
	assert.Equal(t, 503, err.HTTPStatus())

	wrapped := fmt.Errorf("calling model: %w", err)
	assert.Equal(t, StatusUnavailable, StatusOf(wrapped))
}

func TestStatusOfUnclassified(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusOK, StatusOf(nil))
	assert.Equal(t, StatusUnknown, StatusOf(errors.New("plain")))
}

func TestAsError(t *testing.T) {
	t.Parallel()

	fe := NewError(StatusNotFound, "missing")
	assert.Same(t, fe, AsError(fe))

	converted := AsError(errors.New("boom"))
	assert.Equal(t, StatusInternal, converted.Status)
	assert.Equal(t, "boom", converted.Message)
}

func TestErrorWireShape(t *testing.T) {
	t.Parallel()

	err := NewError(StatusInvalidArgument, "bad input").
		WithCause(errors.New("field x")).
		WithDetails(map[string]any{"field": "x"})

	b, merr := json.Marshal(err)
	require.NoError(t, merr)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(b, &wire))
	assert.Equal(t, "INVALID_ARGUMENT", wire["status"])
	assert.Equal(t, "bad input: field x", wire["message"])
	assert.Equal(t, map[string]any{"field": "x"}, wire["details"])
	assert.NotContains(t, wire, "cause")
}
