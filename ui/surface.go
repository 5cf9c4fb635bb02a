package ui

import (
	"io"

	"trafficdash/coordinator"
)

// Surface is a renderer the coordinator can drive plus the lifecycle hooks
// main needs. Implementations must accept Render from the coordinator
// goroutine while their own input loop runs.
type Surface interface {
	coordinator.Renderer
	WaitReady()
	Stop()
	// Done is closed when the user asks to quit.
	Done() <-chan struct{}
	SystemWriter() io.Writer
}
