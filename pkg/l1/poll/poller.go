// Package poll reads registers periodically and publishes the results.
package poll

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/tmc.go/pkg/l0/tmc"
	"github.com/robotalks/tmc.go/pkg/l1/report"
)

// Target is a register to poll.
type Target struct {
	Device   uint8
	Register tmc.Register
}

// Poller enqueues a read of every target each interval. A round is skipped
// while reads from the previous one are still queued, so a slow or stuck bus
// doesn't accumulate tickets.
type Poller struct {
	// first for 64-bit alignment of atomic access
	rounds  uint64
	skipped uint64

	Channel  *tmc.Channel
	Targets  []Target
	Interval time.Duration
	Source   string
	Sink     report.Sink

	outstanding int32
}

// Run implements Runnable.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Poll()
		}
	}
}

// Poll starts one round. It returns false when the round is skipped.
func (p *Poller) Poll() bool {
	if p.pending() > 0 {
		atomic.AddUint64(&p.skipped, 1)
		glog.V(2).Infof("poll: round skipped, %d reads outstanding", p.pending())
		return false
	}
	atomic.AddUint64(&p.rounds, 1)
	for _, target := range p.Targets {
		p.addPending(1)
		if _, err := p.Channel.Read(target.Device, target.Register, tmc.HandleTicketFunc(p.handle)); err != nil {
			p.addPending(-1)
			glog.Warningf("poll %s@%d: %v", target.Register, target.Device, err)
		}
	}
	return true
}

// Stats returns the number of rounds started and skipped. It is safe to
// call while Run is polling.
func (p *Poller) Stats() (rounds, skipped uint64) {
	return atomic.LoadUint64(&p.rounds), atomic.LoadUint64(&p.skipped)
}

func (p *Poller) handle(t *tmc.Ticket) {
	defer p.addPending(-1)
	if p.Sink == nil {
		return
	}
	if err := p.Sink.Publish(report.FromTicket(p.Source, p.Channel.ID(), t)); err != nil {
		glog.Warningf("poll publish %s: %v", t.Register(), err)
	}
}

func (p *Poller) pending() int32 {
	return atomic.LoadInt32(&p.outstanding)
}

func (p *Poller) addPending(n int32) {
	atomic.AddInt32(&p.outstanding, n)
}
