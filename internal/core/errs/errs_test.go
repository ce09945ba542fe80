package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	plain := New(ValidationFailed, "bad window arg")
	assert.Equal(t, "[validation_failed] bad window arg", plain.Error())

	underlying := errors.New("connection refused")
	wrapped := Wrap(ConnectionUnavailable, "dial postgres", underlying)
	assert.Equal(t, "[connection_unavailable] dial postgres: connection refused", wrapped.Error())
}

func TestErrorUnwrap(t *testing.T) {
	underlying := errors.New("boom")
	wrapped := Wrap(Io, "read source", underlying)

	require.ErrorIs(t, wrapped, underlying)
}

func TestIsRetriable(t *testing.T) {
	retriable := []ErrorKind{ConnectionUnavailable, Io, SendError}
	for _, k := range retriable {
		assert.Truef(t, k.IsRetriable(), "%s should be retriable", k)
	}

	nonRetriable := []ErrorKind{
		Configuration, InvalidParameter, ExtensionNotFound, InitializationFailed,
		ValidationFailed, UnsupportedFormat, MissingParameter, MappingFailed,
		ProcessorError, Runtime, Serialization, Other,
	}
	for _, k := range nonRetriable {
		assert.Falsef(t, k.IsRetriable(), "%s should not be retriable", k)
	}
}

func TestWithDetail(t *testing.T) {
	err := New(MappingFailed, "bad json").WithDetail("stream", "Errors").WithDetail("attempt", 1)

	assert.Equal(t, "Errors", err.Details["stream"])
	assert.Equal(t, 1, err.Details["attempt"])
}
