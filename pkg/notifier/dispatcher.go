package notifier

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Sender hands a rendered message to the outside world
type Sender interface {
	Send(ctx context.Context, m *Message) error
}

// Dispatcher delivers messages, or prints them to Out when DryRun is set
type Dispatcher struct {
	DryRun bool
	Out    io.Writer
	Logger *zap.Logger
}

// NewDispatcher creates a dispatcher printing dry runs to stdout
func NewDispatcher(dryRun bool, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{DryRun: dryRun, Out: os.Stdout, Logger: logger}
}

// Send delivers m, or prints it in dry-run mode. Delivery errors are returned as is.
func (d *Dispatcher) Send(ctx context.Context, m *Message) error {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if d.DryRun {
		out := d.Out
		if out == nil {
			out = os.Stdout
		}
		logger.Debug("Dry run, printing message",
			zap.String("kind", string(m.Kind)),
			zap.Strings("to", m.To))
		if _, err := fmt.Fprintln(out, m.String()); err != nil {
			return fmt.Errorf("failed to print %s message: %w", m.Kind, err)
		}
		return nil
	}

	logger.Info("Sending message",
		zap.String("kind", string(m.Kind)),
		zap.String("to", strings.Join(m.To, ", ")))

	return m.Deliver(ctx)
}
