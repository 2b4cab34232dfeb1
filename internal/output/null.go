package output

import (
	"context"
	"fmt"
	"sync"

	"github.com/leandrodaf/midibridge/sdk/contracts"
)

// NullOpener opens log-only outputs. It is the backend used when no device is configured.
type NullOpener struct {
	Logger contracts.Logger
}

// Open returns a NullOutput. It fails only when ctx is already done.
func (o NullOpener) Open(ctx context.Context, name string, opts ...contracts.OutputOption) (contracts.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		name = string(contracts.NullBackend)
	}
	out := &NullOutput{name: name, logger: o.Logger}
	o.Logger.Info("Null output opened", o.Logger.Field().String("name", name))
	if contracts.ApplyOutputOptions(opts...).Autoreset {
		_ = out.Reset()
	}
	return out, nil
}

// NullOutput logs each message for diagnostics and performs no audio action.
type NullOutput struct {
	name   string
	logger contracts.Logger
	mu     sync.Mutex
	closed bool
}

func (n *NullOutput) Name() string { return n.name }
func (n *NullOutput) IsInput() bool { return false }
func (n *NullOutput) IsOutput() bool { return true }

// Send logs msg. It fails only after Close.
func (n *NullOutput) Send(msg contracts.Message, timestamp uint64) error {
	if n.isClosed() {
		return fmt.Errorf("%w: send on closed output %q", contracts.ErrInvalidState, n.name)
	}
	n.logger.Info(msg.String(),
		n.logger.Field().String("type", string(msg.Type)),
		n.logger.Field().Uint64("timestamp", timestamp))
	return nil
}

// Panic logs the request.
func (n *NullOutput) Panic() error {
	if n.isClosed() {
		return fmt.Errorf("%w: panic on closed output %q", contracts.ErrInvalidState, n.name)
	}
	n.logger.Info("All sounds off", n.logger.Field().String("name", n.name))
	return nil
}

// Reset logs the request.
func (n *NullOutput) Reset() error {
	if n.isClosed() {
		return fmt.Errorf("%w: reset on closed output %q", contracts.ErrInvalidState, n.name)
	}
	n.logger.Info("All notes off, reset all controllers", n.logger.Field().String("name", n.name))
	return nil
}

// Close marks the output closed.
func (n *NullOutput) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		n.logger.Info("Null output closed", n.logger.Field().String("name", n.name))
	}
	return nil
}

func (n *NullOutput) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}
