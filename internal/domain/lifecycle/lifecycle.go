// Package lifecycle holds shared constants for application startup and
// shutdown coordination.
package lifecycle

import "time"

// DefaultTimeout bounds graceful shutdown of a delivery.
const DefaultTimeout = 10 * time.Second
