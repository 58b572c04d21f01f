package progress

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// writeWait bounds a single frame write to a subscriber.
	writeWait = 5 * time.Second

	// frameBuffer is how many frames a subscriber may fall behind
	// before it is disconnected.
	frameBuffer = 256
)

// Hub fans transcription progress out to websocket subscribers. Each
// subscriber registers under a session id; reports for a session reach
// every connection registered under that id and nobody else. Delivery
// never blocks the reporter: each subscriber has its own buffered
// queue and writer, and a peer that stops reading loses only its own
// feed.
type Hub struct {
	mu       sync.Mutex
	sessions map[string][]*subscriber
	upgrader websocket.Upgrader
}

// subscriber owns one websocket connection. writePump is the only
// goroutine that writes to conn; gorilla allows one concurrent writer.
type subscriber struct {
	conn   *websocket.Conn
	frames chan frame
}

func NewHub() *Hub {
	return &Hub{
		sessions: map[string][]*subscriber{},
		upgrader: websocket.Upgrader{
			// Cross-origin policy lives in the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe upgrades the request and registers the connection under
// session until the peer disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, session string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	sub := &subscriber{conn: conn, frames: make(chan frame, frameBuffer)}
	h.mu.Lock()
	h.sessions[session] = append(h.sessions[session], sub)
	h.mu.Unlock()

	go h.writePump(session, sub)
	go h.readPump(session, sub)

	return nil
}

// Sink returns a Sink that broadcasts to the session's subscribers.
// A session with no subscribers discards reports.
func (h *Hub) Sink(session string) Sink {
	return Func(func(v float64) {
		h.broadcast(session, v)
	})
}

type frame struct {
	Progress float64 `json:"progress"`
}

func (h *Hub) broadcast(session string, v float64) {
	h.mu.Lock()
	var stalled []*subscriber
	for _, sub := range h.sessions[session] {
		select {
		case sub.frames <- frame{Progress: v}:
		default:
			stalled = append(stalled, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range stalled {
		log.Warn().Str("session", session).Msg("dropping stalled progress subscriber")
		h.drop(session, sub)
	}
}

// writePump drains the subscriber's queue onto the wire. Any write
// failure, timeouts included, disconnects the subscriber.
func (h *Hub) writePump(session string, sub *subscriber) {
	for f := range sub.frames {
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteJSON(f); err != nil {
			log.Warn().Err(err).Str("session", session).Msg("dropping progress subscriber")
			break
		}
	}
	h.drop(session, sub)
}

// readPump blocks on the read side so peer disconnects are noticed
// even when no progress is flowing.
func (h *Hub) readPump(session string, sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			break
		}
	}
	h.drop(session, sub)
}

// drop disconnects one subscriber. Closing the connection unblocks a
// writePump stuck mid-write; whichever caller actually removes the
// subscriber also closes its queue, ending writePump's drain. Frames
// are only enqueued under mu, so the close cannot race a send.
func (h *Hub) drop(session string, sub *subscriber) {
	sub.conn.Close()

	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.sessions[session]
	for i, s := range subs {
		if s == sub {
			h.sessions[session] = append(subs[:i], subs[i+1:]...)
			close(sub.frames)
			break
		}
	}
	if len(h.sessions[session]) == 0 {
		delete(h.sessions, session)
	}
}
