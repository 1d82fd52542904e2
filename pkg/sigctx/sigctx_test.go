package sigctx_test

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/niksmo/chatshop/pkg/sigctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyContextFrom(t *testing.T) {
	t.Run("ParentCancel", func(t *testing.T) {
		parent, cancelParent := context.WithCancel(t.Context())
		ctx, stop := sigctx.NotifyContextFrom(parent)
		defer stop()

		cancelParent()
		<-ctx.Done()
		assert.ErrorIs(t, ctx.Err(), context.Canceled)
	})

	t.Run("Signal", func(t *testing.T) {
		ctx, stop := sigctx.NotifyContextFrom(t.Context())
		defer stop()

		require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			t.Fatal("context is not cancelled by SIGTERM")
		}
	})
}
