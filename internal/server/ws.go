package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Subscribers only receive; anything they send is read and discarded.
	wsReadLimit   = 512
	wsPongWait    = 60 * time.Second
	wsPingPeriod  = wsPongWait * 2 / 5
	wsWriteWait   = 10 * time.Second
	wsOutbox      = 64
	wsFanoutQueue = 256
)

// wsMessage is the envelope for every frame pushed to subscribers.
type wsMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func marshalWS(t string, v any) []byte {
	b, _ := json.Marshal(wsMessage{Type: t, Data: v})
	return b
}

// hub fans book and status frames out to every subscriber. A subscriber whose
// outbox is full is dropped rather than allowed to stall the others.
type hub struct {
	subs   map[*subscriber]struct{}
	join   chan *subscriber
	leave  chan *subscriber
	fanout chan []byte
	logger *slog.Logger

	// snapshot builds the frame a subscriber sees as soon as it joins.
	snapshot func() []byte
}

type subscriber struct {
	conn   *websocket.Conn
	outbox chan []byte
}

func newHub(logger *slog.Logger, snapshot func() []byte) *hub {
	return &hub{
		subs:     map[*subscriber]struct{}{},
		join:     make(chan *subscriber),
		leave:    make(chan *subscriber),
		fanout:   make(chan []byte, wsFanoutQueue),
		logger:   logger,
		snapshot: snapshot,
	}
}

func (h *hub) run() {
	for {
		select {
		case s := <-h.join:
			h.subs[s] = struct{}{}
			if h.snapshot != nil {
				s.outbox <- h.snapshot()
			}
		case s := <-h.leave:
			h.drop(s)
		case frame := <-h.fanout:
			for s := range h.subs {
				select {
				case s.outbox <- frame:
				default:
					h.logger.Warn("ws subscriber too slow; disconnecting",
						slog.String("remote", s.conn.RemoteAddr().String()))
					h.drop(s)
				}
			}
		}
	}
}

func (h *hub) drop(s *subscriber) {
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.outbox)
	}
}

// send queues frame for every subscriber without blocking the caller. The
// frame is lost when the fan-out queue is backed up.
func (h *hub) send(frame []byte) {
	select {
	case h.fanout <- frame:
	default:
		h.logger.Warn("ws fan-out queue full; dropping frame")
	}
}

var upgrader = websocket.Upgrader{
	HandshakeTimeout:  wsWriteWait,
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

func (h *hub) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade", slog.String("err", err.Error()))
		return
	}
	s := &subscriber{conn: conn, outbox: make(chan []byte, wsOutbox)}
	h.join <- s
	go s.push()
	go s.drain(h)
}

// drain discards inbound frames so pongs and close frames get processed, and
// leaves the hub once the peer goes away.
func (s *subscriber) drain(h *hub) {
	defer func() {
		h.leave <- s
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(wsReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// push writes queued frames and keepalive pings until the outbox is closed or
// a write fails.
func (s *subscriber) push() {
	ping := time.NewTicker(wsPingPeriod)
	defer func() {
		ping.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-s.outbox:
			if !ok {
				_ = s.write(websocket.CloseMessage, nil)
				return
			}
			if err := s.write(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *subscriber) write(kind int, payload []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return s.conn.WriteMessage(kind, payload)
}
