package observer

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"hivetick.ai/internal/sched/core"
)

// Server streams tick digests to read-only websocket observers. Slow
// observers get latest-wins delivery; they never backpressure the tick loop.
type Server struct {
	log *log.Logger

	mu   sync.Mutex
	subs map[chan []byte]struct{}

	upgrader websocket.Upgrader
}

func NewServer(logger *log.Logger) *Server {
	return &Server{
		log:  logger,
		subs: map[chan []byte]struct{}{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Publish fans the digest out to every observer.
func (s *Server) Publish(res core.TickResult) {
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs {
		sendLatest(ch, b)
	}
}

// Handler serves /v1/observe. Incoming frames are drained and ignored; the
// stream is one-way.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		out := make(chan []byte, 8)
		s.mu.Lock()
		s.subs[out] = struct{}{}
		s.mu.Unlock()
		defer func() {
			s.mu.Lock()
			delete(s.subs, out)
			s.mu.Unlock()
		}()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case b := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
		}
	}
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
