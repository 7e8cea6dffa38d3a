package notify

import "time"

// Option applies a configuration option to the Decider.
type Option func(*Decider)

// WithRenderer sets the per-participant line renderer.
func WithRenderer(r Renderer) Option {
	return func(d *Decider) {
		if r != nil {
			d.renderer = r
		}
	}
}

// WithActiveWindow sets how recent team activity must be for standings to be
// attached.
func WithActiveWindow(w time.Duration) Option {
	return func(d *Decider) {
		d.activeWindow = w
	}
}

// WithHeader sets an optional first line for every notification.
func WithHeader(header string) Option {
	return func(d *Decider) {
		d.header = header
	}
}
