package coordinator

import (
	"context"
	"errors"
	"log"

	"trafficdash/poller"
)

// Renderer draws render commands. Render is called from the coordinator
// goroutine and must not block on user input.
type Renderer interface {
	Render(cmd RenderCommand)
}

type eventKind int

const (
	eventSelect eventKind = iota
	eventBack
)

type event struct {
	kind        eventKind
	index       int
	fingerprint uint64
}

const eventQueueSize = 16

// Coordinator owns the Model and serialises poll results and user events
// on one goroutine.
type Coordinator struct {
	model    Model
	renderer Renderer
	metrics  *Metrics
	events   chan event
}

// New wires a coordinator to its renderer. window labels the aggregate
// subtitle (e.g. "5s").
func New(renderer Renderer, metrics *Metrics, window string) (*Coordinator, error) {
	if renderer == nil {
		return nil, errors.New("coordinator: renderer is required")
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Coordinator{
		model:    NewModel(window),
		renderer: renderer,
		metrics:  metrics,
		events:   make(chan event, eventQueueSize),
	}, nil
}

// Select queues a click on bar group index of the frame whose labels hash to
// fingerprint (Projection.LabelsFingerprint). It never blocks; a saturated
// queue drops the click.
func (c *Coordinator) Select(index int, fingerprint uint64) {
	c.enqueue(event{kind: eventSelect, index: index, fingerprint: fingerprint})
}

// Back queues a back request.
func (c *Coordinator) Back() {
	c.enqueue(event{kind: eventBack})
}

func (c *Coordinator) enqueue(ev event) {
	select {
	case c.events <- ev:
	default:
		log.Printf("coordinator: event queue full; dropping input")
	}
}

// Metrics exposes the counters shown in the footer.
func (c *Coordinator) Metrics() *Metrics { return c.metrics }

// Run renders the initial state then applies results and events until ctx
// is done or results is closed. The model is only touched here.
func (c *Coordinator) Run(ctx context.Context, results <-chan poller.Result) Model {
	c.render(c.model.Render())
	for {
		select {
		case <-ctx.Done():
			return c.model
		case res, ok := <-results:
			if !ok {
				return c.model
			}
			c.handlePoll(res)
		case ev := <-c.events:
			c.handleEvent(ev)
		}
	}
}

func (c *Coordinator) handlePoll(res poller.Result) {
	next, out := c.model.OnPoll(res)
	c.model = next
	c.metrics.ObservePoll(res.Duration(), res.Err != nil)
	if out.PollErr != nil {
		log.Printf("poller: %s error: %v", poller.ErrorKind(out.PollErr), out.PollErr)
	}
	if out.Reconciled {
		c.metrics.Reconciled()
		log.Printf("view: client %s no longer reported; back to main view", out.Dropped)
	}
	if out.Render {
		c.render(out.Cmd)
	}
}

func (c *Coordinator) handleEvent(ev event) {
	var (
		next Model
		out  Outcome
	)
	switch ev.kind {
	case eventSelect:
		next, out = c.model.OnSelect(ev.index, ev.fingerprint)
	case eventBack:
		next, out = c.model.OnBack()
	default:
		return
	}
	c.model = next
	if out.Render {
		c.render(out.Cmd)
	}
}

func (c *Coordinator) render(cmd RenderCommand) {
	cmd.Stats = c.metrics.Snapshot()
	c.renderer.Render(cmd)
}
