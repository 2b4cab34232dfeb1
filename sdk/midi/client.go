package midi

import (
	"context"
	"fmt"

	"github.com/leandrodaf/midibridge/internal/output"
	"github.com/leandrodaf/midibridge/sdk/contracts"
)

// NewDispatcher creates an Uninitialized dispatcher with the specified options.
//
// opts ...contracts.Option: A variadic list of option functions to customize the configuration.
//
// Returns:
//   - *Dispatcher: A dispatcher ready to be bound to a backend.
//   - error: An error, if any occurred while applying the options.
func NewDispatcher(opts ...contracts.Option) (*Dispatcher, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	return newDispatcher(options.Logger), nil
}

// Open creates a dispatcher and binds it to the backend selected by the
// options (contracts.WithBackend, default contracts.NullBackend).
//
// Returns:
//   - *Dispatcher: A Bound dispatcher.
//   - error: contracts.ErrDeviceUnavailable when the device or engine cannot be acquired,
//     contracts.ErrMalformedRequest for an invalid request.
func Open(ctx context.Context, opts ...contracts.Option) (*Dispatcher, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	opener, err := NewOpener(&options)
	if err != nil {
		return nil, err
	}
	d := newDispatcher(options.Logger)
	if err := d.BindOpen(ctx, opener, options.PortName, options.Output...); err != nil {
		return nil, err
	}
	return d, nil
}

// NewOpener returns the Opener for options.Backend. The port backend uses
// options.PortDriver when set and the platform driver otherwise.
func NewOpener(options *contracts.ClientOptions) (contracts.Opener, error) {
	switch options.Backend {
	case contracts.NullBackend, "":
		return output.NullOpener{Logger: options.Logger}, nil
	case contracts.SynthBackend:
		return output.SynthOpener{Engine: options.Synthesizer, Logger: options.Logger}, nil
	case contracts.PortBackend:
		if options.PortDriver != nil {
			return output.PortOpener{Driver: options.PortDriver, Logger: options.Logger}, nil
		}
		// The driver is created lazily so that a missing platform driver
		// surfaces as ErrDeviceUnavailable from Open.
		return contracts.OpenerFunc(func(ctx context.Context, name string, opts ...contracts.OutputOption) (contracts.Output, error) {
			drv, err := NewPortDriver(options)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", contracts.ErrDeviceUnavailable, err)
			}
			return output.PortOpener{Driver: drv, Logger: options.Logger, OwnsDriver: true}.Open(ctx, name, opts...)
		}), nil
	}
	return nil, fmt.Errorf("%w: unknown backend %q", contracts.ErrMalformedRequest, options.Backend)
}
