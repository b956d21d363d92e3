package mqtt

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"

	"github.com/robotalks/tmc.go/pkg/l0/tmc"
	"github.com/robotalks/tmc.go/pkg/l1/report"
)

// Topic actions.
const (
	ActionSet = "set"
	ActionGet = "get"
)

// DefaultName is the topic root of a Bridge.
const DefaultName = "tmc"

// Bridge exposes the channels of a Registry on MQTT.
//
// Reports are published to <name>/<channel>/<device>/<REGISTER>.
// A message to .../<REGISTER>/set writes the payload (decimal or 0x hex)
// and .../<REGISTER>/get reads the register. Both publish a report once
// the access completes.
type Bridge struct {
	Queue    *Queue
	Registry *tmc.Registry
	Name     string
	Source   string

	subs []*Subscription
}

// NewBridge creates a Bridge.
func NewBridge(q *Queue, reg *tmc.Registry, source string) *Bridge {
	return &Bridge{Queue: q, Registry: reg, Name: DefaultName, Source: source}
}

// Topic returns the report topic of a register.
func (b *Bridge) Topic(channel int, device uint8, reg tmc.Register) string {
	return fmt.Sprintf("%s/%d/%d/%s", b.Name, channel, device, reg)
}

// ParseTopic splits a request topic relative to the queue prefix.
func (b *Bridge) ParseTopic(topic string) (channel int, device uint8, reg tmc.Register, action string, err error) {
	items := strings.Split(topic, "/")
	if len(items) != 5 || items[0] != b.Name {
		err = fmt.Errorf("invalid topic %q", topic)
		return
	}
	if channel, err = strconv.Atoi(items[1]); err != nil {
		err = fmt.Errorf("invalid channel in %q: %w", topic, err)
		return
	}
	dev, err := strconv.ParseUint(items[2], 0, 8)
	if err != nil {
		err = fmt.Errorf("invalid device in %q: %w", topic, err)
		return
	}
	device = uint8(dev)
	if reg, err = tmc.ParseRegister(items[3]); err != nil {
		return
	}
	action = items[4]
	return
}

// Publish implements report.Sink. It doesn't wait for the broker.
func (b *Bridge) Publish(r *report.Report) error {
	data, err := r.Encode()
	if err != nil {
		return err
	}
	b.Queue.Pub(b.Topic(r.Channel, r.Device, r.Register), data)
	return nil
}

// Start subscribes the request topics.
func (b *Bridge) Start() {
	b.subs = append(b.subs,
		b.Queue.Sub(b.Name+"/+/+/+/"+ActionSet, b.handleRequest),
		b.Queue.Sub(b.Name+"/+/+/+/"+ActionGet, b.handleRequest),
	)
}

// Stop unsubscribes the request topics.
func (b *Bridge) Stop() {
	for _, sub := range b.subs {
		if err := sub.Close(); err != nil {
			glog.Warningf("unsubscribe: %v", err)
		}
	}
	b.subs = nil
}

// Run implements Runnable.
func (b *Bridge) Run(ctx context.Context) error {
	b.Start()
	if err := b.Queue.ConnectWait(ctx); err != nil {
		return err
	}
	defer b.Queue.Close()
	<-ctx.Done()
	b.Stop()
	return ctx.Err()
}

func (b *Bridge) handleRequest(topic string, payload []byte) {
	if err := b.Request(topic, payload); err != nil {
		glog.Warningf("request %q dropped: %v", topic, err)
	}
}

// Request performs the register access requested on topic.
func (b *Bridge) Request(topic string, payload []byte) error {
	chID, device, reg, action, err := b.ParseTopic(topic)
	if err != nil {
		return err
	}
	ch, err := b.Registry.Channel(chID)
	if err != nil {
		return err
	}
	done := tmc.HandleTicketFunc(func(t *tmc.Ticket) {
		if err := b.Publish(report.FromTicket(b.Source, chID, t)); err != nil {
			glog.Warningf("publish %s: %v", t.Register(), err)
		}
	})
	switch action {
	case ActionSet:
		value, err := strconv.ParseUint(strings.TrimSpace(string(payload)), 0, 32)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", payload, err)
		}
		glog.V(2).Infof("SET ch%d dev%d %s=0x%08x", chID, device, reg, value)
		_, err = ch.WriteWith(device, reg, uint32(value), done)
		return err
	case ActionGet:
		glog.V(2).Infof("GET ch%d dev%d %s", chID, device, reg)
		_, err = ch.Read(device, reg, done)
		return err
	}
	return fmt.Errorf("unknown action %q", action)
}
