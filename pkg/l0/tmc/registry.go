package tmc

import (
	"fmt"
	"sort"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/tmc.go/pkg/framework"
)

// Registry holds the channels of a driver instance by id.
type Registry struct {
	channels map[int]*Channel
	lock     sync.RWMutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[int]*Channel)}
}

// Open creates channel id over periph and configures the peripheral.
// A peripheral implementing InterruptSource gets its completion wired to
// the channel.
func (r *Registry) Open(id int, periph Peripheral, opts ...Option) (*Channel, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, ok := r.channels[id]; ok {
		return nil, ErrChannelInUse
	}
	ch := NewChannel(id, periph, opts...)
	if err := periph.Configure(ch.baud); err != nil {
		return nil, fmt.Errorf("configure channel %d: %w", id, err)
	}
	if src, ok := periph.(InterruptSource); ok {
		src.SetInterruptHandler(ch.OnCompletion)
	}
	r.channels[id] = ch
	glog.Infof("channel %d opened at %d baud", id, ch.baud)
	return ch, nil
}

// Channel returns an opened channel.
func (r *Registry) Channel(id int) (*Channel, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if ch := r.channels[id]; ch != nil {
		return ch, nil
	}
	return nil, ErrNoChannel
}

// IDs returns the ids of opened channels in ascending order.
func (r *Registry) IDs() []int {
	r.lock.RLock()
	ids := make([]int, 0, len(r.channels))
	for id := range r.channels {
		ids = append(ids, id)
	}
	r.lock.RUnlock()
	sort.Ints(ids)
	return ids
}

// OnCompletion dispatches a completion interrupt to channel id.
func (r *Registry) OnCompletion(id int, flags StatusFlags) error {
	ch, err := r.Channel(id)
	if err != nil {
		return err
	}
	ch.OnCompletion(flags)
	return nil
}

// Service reads the peripheral status of channel id and dispatches it.
func (r *Registry) Service(id int) error {
	ch, err := r.Channel(id)
	if err != nil {
		return err
	}
	ch.Service()
	return nil
}

// OnIdleTick dispatches an idle tick to channel id.
func (r *Registry) OnIdleTick(id int) error {
	ch, err := r.Channel(id)
	if err != nil {
		return err
	}
	ch.OnIdleTick()
	return nil
}

// OnIdleTickAll dispatches an idle tick to every channel.
func (r *Registry) OnIdleTickAll() {
	r.lock.RLock()
	channels := make([]*Channel, 0, len(r.channels))
	for _, ch := range r.channels {
		channels = append(channels, ch)
	}
	r.lock.RUnlock()
	for _, ch := range channels {
		ch.OnIdleTick()
	}
}

// Close tears down channel id. It fails with ErrChannelBusy while tickets
// are queued on the channel.
func (r *Registry) Close(id int) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	ch := r.channels[id]
	if ch == nil {
		return ErrNoChannel
	}
	if err := ch.close(); err != nil {
		return err
	}
	if src, ok := ch.periph.(InterruptSource); ok {
		src.SetInterruptHandler(nil)
	}
	delete(r.channels, id)
	glog.Infof("channel %d closed", id)
	return nil
}

// CloseAll closes every channel, aggregating failures.
func (r *Registry) CloseAll() error {
	errs := &framework.AggregatedError{}
	for _, id := range r.IDs() {
		if err := r.Close(id); err != nil {
			errs.Add(fmt.Errorf("channel %d: %w", id, err))
		}
	}
	return errs.Aggregate()
}
