// Package delivery defines the contract every delivery mechanism implements.
package delivery

import "context"

// Delivery is a long-running entry point such as an HTTP server or an
// interactive shell. Serve blocks until the delivery finishes or fails.
type Delivery interface {
	Serve(ctx context.Context) error
}
