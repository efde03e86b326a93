package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGet_InitializesOnce(t *testing.T) {
	l1 := Get()
	require.NotNil(t, l1)

	Init("production")
	require.Same(t, l1, Get(), "Init after Get must not replace the logger")
	require.NotNil(t, Named("pipeline"))
}

func TestOrNop(t *testing.T) {
	require.NotNil(t, OrNop(nil))

	l := Get()
	require.Same(t, l, OrNop(l))

	// A no-op logger must be safe to use.
	OrNop(nil).Infow("discarded", "k", "v")
}
