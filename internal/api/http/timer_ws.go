// internal/api/http/timer_ws.go
package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mind-engage/examhub/internal/attempt"
	"github.com/mind-engage/examhub/internal/exam"
)

const (
	msgTimerUpdate = "timer_update"
	msgTimeUp      = "time_up"
	msgSubmitted   = "submitted"
	msgPong        = "pong"
)

type wsMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// TimerHub fans submitted attempts out to the timer streams watching them.
// Register Notify with Engine.OnSubmit.
type TimerHub struct {
	mu   sync.Mutex
	subs map[string]map[chan exam.Attempt]struct{}
}

func NewTimerHub() *TimerHub {
	return &TimerHub{subs: map[string]map[chan exam.Attempt]struct{}{}}
}

func (h *TimerHub) subscribe(attemptID string) chan exam.Attempt {
	ch := make(chan exam.Attempt, 1)
	h.mu.Lock()
	if h.subs[attemptID] == nil {
		h.subs[attemptID] = map[chan exam.Attempt]struct{}{}
	}
	h.subs[attemptID][ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *TimerHub) unsubscribe(attemptID string, ch chan exam.Attempt) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[attemptID], ch)
	if len(h.subs[attemptID]) == 0 {
		delete(h.subs, attemptID)
	}
}

func (h *TimerHub) Notify(a exam.Attempt, _ attempt.Trigger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[a.ID] {
		select {
		case ch <- a:
		default:
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware guards the HTTP surface
	},
}

// GET /attempts/{attemptID}/timer streams the countdown once per tick. The
// timer is recomputed from the current exam on every tick. At zero it sends
// time_up, submits through the engine and sends submitted.
func TimerStreamHandler(eng *attempt.Engine, hub *TimerHub, tick time.Duration) http.HandlerFunc {
	if tick <= 0 {
		tick = time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		v := viewer(r)
		a, t, err := eng.TimerOf(r.Context(), id, v)
		if err != nil {
			writeError(w, err)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[TimerStream] upgrade %s: %v", id, err)
			return
		}
		defer conn.Close()

		if a.Submitted() {
			_ = conn.WriteJSON(wsMessage{Type: msgSubmitted, Payload: a})
			return
		}

		submitted := hub.subscribe(id)
		defer hub.unsubscribe(id, submitted)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pings := make(chan struct{}, 1)
		go readLoop(conn, cancel, pings)

		send := func(typ string, payload interface{}) bool {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			return conn.WriteJSON(wsMessage{Type: typ, Payload: payload}) == nil
		}
		update := func() bool {
			return send(msgTimerUpdate, newTimerView(t, eng.Now()))
		}

		if !update() {
			return
		}
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-pings:
				if !send(msgPong, "pong") {
					return
				}
			case final := <-submitted:
				send(msgSubmitted, final)
				return
			case <-ticker.C:
				_, cur, err := eng.TimerOf(ctx, id, v)
				if err != nil {
					log.Printf("[TimerStream] refresh %s: %v", id, err)
					return
				}
				t = cur
				if !t.Expired(eng.Now()) {
					if !update() {
						return
					}
					continue
				}
				if !send(msgTimeUp, map[string]interface{}{"remaining_sec": 0}) {
					return
				}
				final, done, err := eng.AutoSubmit(ctx, id, attempt.TriggerTimer)
				if err != nil {
					log.Printf("[TimerStream] auto-submit %s: %v", id, err)
					return
				}
				if !done && !final.Submitted() {
					continue
				}
				send(msgSubmitted, final)
				return
			}
		}
	}
}

// readLoop drains client frames, answers pings and reports disconnects.
func readLoop(conn *websocket.Conn, cancel context.CancelFunc, pings chan<- struct{}) {
	defer cancel()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[TimerStream] read: %v", err)
			}
			return
		}
		var msg wsMessage
		if json.Unmarshal(data, &msg) == nil && msg.Type == "ping" {
			select {
			case pings <- struct{}{}:
			default:
			}
		}
	}
}
