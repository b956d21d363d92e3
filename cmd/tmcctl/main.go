package main

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/tmc.go/pkg/cli/sh"
	"github.com/robotalks/tmc.go/pkg/l0/tmc"
	"github.com/robotalks/tmc.go/pkg/l1/env"
)

func init() {
	env.SetupFlags()
}

func main() {
	flag.Parse()
	conf := env.Default()

	reg := tmc.NewRegistry()
	ch, port := conf.MustOpenChannel(reg)
	defer port.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go port.Run(ctx)
	go (&tmc.IdleTicker{Registry: reg, Period: conf.TickPeriod}).Run(ctx)

	sh.New(ch, conf.DeviceAddr()).Run(flag.Args()...)

	cancel()
	if err := reg.CloseAll(); err != nil {
		glog.Warning(err)
	}
	glog.Flush()
}
