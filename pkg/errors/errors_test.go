package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndKindOf(t *testing.T) {
	err := New(KindTimeout, "health check %q gave up after %d attempts", "kibana", 30)
	assert.Equal(t, KindTimeout, KindOf(err))
	assert.Equal(t, `Timeout: health check "kibana" gave up after 30 attempts`, err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(cause, KindPhaseFailed, "starting elasticsearch")
	require.NotNil(t, err)
	assert.Equal(t, KindPhaseFailed, KindOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestWrapNilCause(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindPhaseFailed, "noop"))
}

func TestKindOfWalksChain(t *testing.T) {
	inner := New(KindBundleMissing, "volume absent")
	outer := fmt.Errorf("export failed: %w", inner)
	assert.Equal(t, KindBundleMissing, KindOf(outer))
	assert.True(t, IsKind(outer, KindBundleMissing))
	assert.False(t, IsKind(outer, KindTimeout))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestIsMatchesByKindOnly(t *testing.T) {
	a := New(KindUserCancelled, "aborted by user")
	b := New(KindUserCancelled, "different message")
	assert.True(t, a.Is(b))
	assert.False(t, a.Is(New(KindPhaseFailed, "aborted by user")))
	assert.False(t, a.Is(fmt.Errorf("aborted by user")))
}
