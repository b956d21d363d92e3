package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"

	"golang.org/x/net/websocket"

	"github.com/robotalks/tmc.go/pkg/framework"
	"github.com/robotalks/tmc.go/pkg/l1/comm"
	"github.com/robotalks/tmc.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/tmc.go/pkg/l1/comm/stream"
	ws "github.com/robotalks/tmc.go/pkg/l1/comm/websocket"
	"github.com/robotalks/tmc.go/pkg/l1/env"
	"github.com/robotalks/tmc.go/pkg/l1/report"
)

var (
	wsURL      string
	replayFile string
)

func init() {
	env.SetupFlags()
	flag.StringVar(&wsURL, "ws", wsURL, "Websocket report stream URL, e.g. ws://localhost:8080/reports.")
	flag.StringVar(&replayFile, "replay", replayFile, "Print reports recorded in a file, - for stdin.")
}

func printReport(r *report.Report) {
	log.Println(r.String())
}

func readReports(r comm.PacketReader) error {
	for {
		rep, err := comm.ReadReport(r)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		printReport(rep)
	}
}

func replay(name string) error {
	var f io.ReadWriteCloser = os.Stdin
	if name != "-" {
		file, err := os.Open(name)
		if err != nil {
			return err
		}
		f = file
	}
	defer f.Close()
	return readReports(stream.New(f))
}

func watchWebsocket(ctx context.Context, url string) error {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return err
	}
	return framework.RunWithContextCloser(ctx, conn, func() error {
		return readReports(ws.New(conn))
	})
}

func watchMQTT(ctx context.Context, conf *env.Config) error {
	q, err := conf.NewQueue()
	if err != nil {
		return err
	}
	q.Sub(mqtt.DefaultName+"/#", func(topic string, payload []byte) {
		rep, err := report.Decode(payload)
		if err != nil {
			log.Printf("%s: bad report: %v", topic, err)
			return
		}
		log.Printf("%s: %s", topic, rep)
	})
	if err := q.ConnectWait(ctx); err != nil {
		return err
	}
	defer q.Close()
	<-ctx.Done()
	return ctx.Err()
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)
	conf := env.Default()

	if replayFile != "" {
		if err := replay(replayFile); err != nil {
			log.Fatalln(err)
		}
		return
	}

	runner := framework.NewRunner().HandleSignals()
	if wsURL != "" {
		runner.Go(framework.NamedRun("websocket", framework.RunFunc(func(ctx context.Context) error {
			return watchWebsocket(ctx, wsURL)
		})))
	} else {
		runner.Go(framework.NamedRun("mqtt", framework.RunFunc(func(ctx context.Context) error {
			return watchMQTT(ctx, conf)
		})))
	}
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
