// Package sigctx derives contexts cancelled by termination signals.
package sigctx

import (
	"context"
	"os/signal"
	"syscall"
)

// NotifyContext is cancelled on SIGINT, SIGTERM or SIGQUIT.
func NotifyContext() (context.Context, context.CancelFunc) {
	return NotifyContextFrom(context.Background())
}

// NotifyContextFrom is [NotifyContext] with an explicit parent.
func NotifyContextFrom(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
}
