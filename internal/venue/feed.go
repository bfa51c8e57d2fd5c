package venue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"orderbook-aggregator/internal/depth"
	"orderbook-aggregator/internal/metrics"
	"orderbook-aggregator/internal/state"
)

const (
	minBackoff   = time.Second
	maxBackoff   = 30 * time.Second
	readTimeout  = 60 * time.Second
	pingInterval = 25 * time.Second
)

// Feed streams one venue into the ingestion queue, reconnecting with
// exponential backoff until ctx is cancelled or the consumer goes away.
type Feed struct {
	adapter Adapter
	tx      *depth.Sender
	st      *state.State
	log     *slog.Logger
	dialer  *websocket.Dialer

	// onStatus is called on every connectivity change; may be nil.
	onStatus func(v depth.Venue, connected bool)
}

func NewFeed(a Adapter, tx *depth.Sender, st *state.State, logger *slog.Logger, onStatus func(depth.Venue, bool)) *Feed {
	return &Feed{
		adapter:  a,
		tx:       tx,
		st:       st,
		log:      logger.With(slog.String("venue", a.Venue().String())),
		dialer:   &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		onStatus: onStatus,
	}
}

// Run blocks until the feed stops. The feed's Sender is closed on return.
func (f *Feed) Run(ctx context.Context) {
	defer f.tx.Close()
	venue := f.adapter.Venue()

	backoff := minBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		ws, err := f.open(ctx)
		if err != nil {
			f.log.Warn("ws open", slog.String("err", err.Error()), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		f.setConnected(true)
		backoff = minBackoff
		f.log.Info("connected", slog.String("url", f.adapter.URL()))

		err = f.readLoop(ctx, ws)
		f.setConnected(false)
		if errors.Is(err, depth.ErrQueueClosed) {
			f.log.Info("aggregator gone; feed stopping")
			return
		}
		if ctx.Err() != nil {
			return
		}
		f.log.Warn("ws dropped", slog.String("err", err.Error()))
		metrics.WSReconnectsTotal.WithLabelValues(venue.String()).Inc()
		if !sleep(ctx, backoff) {
			return
		}
	}
}

func (f *Feed) setConnected(c bool) {
	v := f.adapter.Venue()
	f.st.SetConnected(v, c)
	if f.onStatus != nil {
		f.onStatus(v, c)
	}
}

func (f *Feed) open(ctx context.Context) (*websocket.Conn, error) {
	ws, _, err := f.dialer.DialContext(ctx, f.adapter.URL(), nil)
	if err != nil {
		return nil, err
	}
	if sub := f.adapter.Subscribe(); sub != nil {
		if err := ws.WriteMessage(websocket.TextMessage, sub); err != nil {
			_ = ws.Close()
			return nil, fmt.Errorf("subscribe: %w", err)
		}
	}
	return ws, nil
}

func (f *Feed) readLoop(ctx context.Context, ws *websocket.Conn) error {
	defer ws.Close()

	// Unblock ReadMessage on shutdown.
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })
	defer stop()

	ws.SetReadLimit(1 << 20)
	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	venue := f.adapter.Venue()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return fmt.Errorf("ws read: %w", err)
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		snap, ok := f.adapter.Convert(data)
		if !ok {
			metrics.FramesIgnoredTotal.WithLabelValues(venue.String()).Inc()
			continue
		}
		if err := f.tx.Send(snap); err != nil {
			return err
		}
		f.st.MarkSnapshot(venue, time.Now())
		metrics.SnapshotsTotal.WithLabelValues(venue.String()).Inc()
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
