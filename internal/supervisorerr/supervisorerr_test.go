package supervisorerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_MessageIncludesServerAndKind(t *testing.T) {
	err := New(KindNotFound, "my-server", "no such server")
	assert.Contains(t, err.Error(), "my-server")
	assert.Contains(t, err.Error(), string(KindNotFound))
}

func TestWrap_UnwrapsToOriginalCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindSpawnFailed, "svc", cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestIs_MatchesByKind(t *testing.T) {
	err := New(KindTimeout, "svc", "tool call timed out")
	target := New(KindTimeout, "other-svc", "different message")
	assert.True(t, errors.Is(err, target))

	other := New(KindPortInUse, "svc", "port busy")
	assert.False(t, errors.Is(err, other))
}
