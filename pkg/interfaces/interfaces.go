// Package interfaces defines the core interfaces used throughout the application.
package interfaces

// RateLimiter limits notification frequency.
type RateLimiter interface {
	Allow() bool
}

// InputObserver sees every chunk forwarded from the real stdin to the child.
type InputObserver interface {
	OnInput(data []byte)
}

// OutputObserver is consulted after every non-empty chunk relayed from the
// child to the real stdout. It reports whether a notification fired.
type OutputObserver interface {
	OnOutput() bool
}

// TrafficObserver watches both directions of the relay.
type TrafficObserver interface {
	InputObserver
	OutputObserver
}
