// Package websocket streams reports to websocket clients.
package websocket

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/tmc.go/pkg/l1/comm"
	"github.com/robotalks/tmc.go/pkg/l1/report"
)

// DefaultClientBacklog is the number of reports buffered per client.
const DefaultClientBacklog = 64

// Hub fans reports out to connected clients. A client which can't keep up
// loses reports instead of slowing down the others.
type Hub struct {
	Backlog int

	lock    sync.Mutex
	clients map[*client]struct{}
	dropped uint64
}

type client struct {
	w      comm.PacketWriter
	sendCh chan []byte
}

// NewHub creates a Hub.
func NewHub() *Hub {
	return &Hub{Backlog: DefaultClientBacklog, clients: make(map[*client]struct{})}
}

// Handler returns the http.Handler accepting clients.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		conn.PayloadType = websocket.BinaryFrame
		glog.V(2).Infof("websocket client %s connected", conn.Request().RemoteAddr)
		h.Serve(New(conn))
		glog.V(2).Infof("websocket client %s disconnected", conn.Request().RemoteAddr)
	})
}

// Serve streams reports to rw until either side fails, then closes rw.
// Packets received from rw are discarded; reading only detects the client
// going away.
func (h *Hub) Serve(rw comm.PacketReadWriter) {
	defer rw.Close()
	backlog := h.Backlog
	if backlog <= 0 {
		backlog = DefaultClientBacklog
	}
	c := &client{w: rw, sendCh: make(chan []byte, backlog)}
	h.lock.Lock()
	h.clients[c] = struct{}{}
	h.lock.Unlock()

	goneCh := make(chan struct{})
	go func() {
		defer close(goneCh)
		for {
			if _, err := rw.ReadPacket(); err != nil {
				return
			}
		}
	}()

	defer h.remove(c)
	for {
		select {
		case pkt := <-c.sendCh:
			if err := c.w.WritePacket(pkt); err != nil {
				return
			}
		case <-goneCh:
			return
		}
	}
}

// Publish implements report.Sink.
func (h *Hub) Publish(r *report.Report) error {
	pkt, err := r.Encode()
	if err != nil {
		return err
	}
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		select {
		case c.sendCh <- pkt:
		default:
			h.dropped++
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Dropped returns the number of reports dropped for slow clients.
func (h *Hub) Dropped() uint64 {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.dropped
}

func (h *Hub) remove(c *client) {
	h.lock.Lock()
	delete(h.clients, c)
	h.lock.Unlock()
}
