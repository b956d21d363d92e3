package report

import (
	"github.com/robotalks/tmc.go/pkg/framework"
)

// Sink consumes reports.
type Sink interface {
	Publish(*Report) error
}

// SinkFunc is func form of Sink.
type SinkFunc func(*Report) error

// Publish implements Sink.
func (f SinkFunc) Publish(r *Report) error {
	return f(r)
}

// MultiSink publishes to every Sink in order.
type MultiSink []Sink

// Publish implements Sink. All sinks get the report even if some fail.
func (s MultiSink) Publish(r *Report) error {
	errs := &framework.AggregatedError{}
	for _, sink := range s {
		errs.Add(sink.Publish(r))
	}
	return errs.Aggregate()
}
