package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Interrupted returns a copy of parent that is cancelled on SIGINT or SIGTERM.
func Interrupted(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
