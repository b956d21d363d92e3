package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/tmc.go/pkg/framework"
	"github.com/robotalks/tmc.go/pkg/l0/tmc"
	"github.com/robotalks/tmc.go/pkg/l1/comm"
	"github.com/robotalks/tmc.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/tmc.go/pkg/l1/comm/stream"
	ws "github.com/robotalks/tmc.go/pkg/l1/comm/websocket"
	"github.com/robotalks/tmc.go/pkg/l1/env"
	"github.com/robotalks/tmc.go/pkg/l1/poll"
	"github.com/robotalks/tmc.go/pkg/l1/report"
)

var (
	recordFile string
)

func init() {
	env.SetupFlags()
	flag.StringVar(&recordFile, "record", recordFile, "Append length-prefixed reports to this file.")
}

func httpServer(addr string, hub *ws.Hub) framework.Runnable {
	mux := http.NewServeMux()
	mux.Handle("/reports", hub.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	return framework.RunFunc(func(ctx context.Context) error {
		return framework.RunWithContextCancel(ctx, func() {
			server.Close()
		}, server.ListenAndServe)
	})
}

func main() {
	flag.Parse()
	defer glog.Flush()
	conf := env.Default()

	targets, err := conf.PollRegisters()
	if err != nil {
		glog.Exit(err)
	}

	reg := tmc.NewRegistry()
	ch, port := conf.MustOpenChannel(reg)
	defer port.Close()

	runner := framework.NewRunner().HandleSignals()
	runner.Go(
		framework.NamedRun("port", port),
		framework.NamedRun("ticker", &tmc.IdleTicker{Registry: reg, Period: conf.TickPeriod}),
	)

	var sinks report.MultiSink
	if conf.MQTTBrokerURL != "" {
		bridge := mqtt.NewBridge(conf.MustNewQueue(), reg, conf.Source())
		sinks = append(sinks, bridge)
		runner.Go(framework.NamedRun("mqtt", bridge))
	}
	if conf.HTTPAddr != "" {
		hub := ws.NewHub()
		sinks = append(sinks, hub)
		runner.Go(framework.NamedRun("http", httpServer(conf.HTTPAddr, hub)))
	}
	if recordFile != "" {
		f, err := os.OpenFile(recordFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			glog.Exit(err)
		}
		recorder := comm.NewPacketSink(stream.New(f))
		defer recorder.Close()
		sinks = append(sinks, recorder)
	}

	if len(targets) > 0 {
		poller := &poll.Poller{
			Channel:  ch,
			Interval: conf.PollInterval,
			Source:   conf.Source(),
			Sink:     sinks,
		}
		for _, r := range targets {
			poller.Targets = append(poller.Targets, poll.Target{Device: conf.DeviceAddr(), Register: r})
		}
		runner.Go(framework.NamedRun("poller", poller))
	}

	glog.Infof("channel %d on %s, %d registers polled", ch.ID(), conf.Port, len(targets))
	if err := runner.Wait(); err != nil {
		glog.Error(err)
	}
	if err := reg.CloseAll(); err != nil {
		glog.Warning(err)
	}
}
