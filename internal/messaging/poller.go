package messaging

import (
	"context"
	"log"
	"time"

	"github.com/gravitypharm/gravistock/internal/models"
)

// Poller periodically checks the request table and surfaces each item at
// most once per process. The fetch functions are idempotent, so a crashed
// process simply re-surfaces unacknowledged items after restart.
type Poller struct {
	svc      *Service
	interval time.Duration
	hub      bool
	handler  func(models.StationRequest)
	seen     map[string]models.RequestStatus
	cancel   context.CancelFunc
}

// NewPoller builds a poller. Hub pollers watch pending requests; satellite
// pollers watch responses addressed back to their station. The handler runs
// on the poller goroutine.
func NewPoller(svc *Service, interval time.Duration, hub bool, handler func(models.StationRequest)) *Poller {
	return &Poller{
		svc:      svc,
		interval: interval,
		hub:      hub,
		handler:  handler,
		seen:     make(map[string]models.RequestStatus),
	}
}

// Start launches the polling loop
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx)
}

// Stop halts the loop. Safe to call before Start.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

func (p *Poller) poll() {
	var (
		reqs []models.StationRequest
		err  error
	)
	if p.hub {
		reqs, err = p.svc.PendingForHub()
	} else {
		reqs, err = p.svc.ResponsesFor(p.svc.station)
	}
	if err != nil {
		log.Printf("messaging: poll failed: %v", err)
		return
	}
	for _, req := range reqs {
		// surface again when the same request comes back in a new status,
		// e.g. a re-opened id, but never twice for the same status
		if prev, ok := p.seen[req.ID]; ok && prev == req.Status {
			continue
		}
		p.seen[req.ID] = req.Status
		if p.handler != nil {
			p.handler(req)
		}
	}
}
