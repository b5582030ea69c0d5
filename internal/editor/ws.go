package editor

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/formula-canvas/internal/formula"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
	"github.com/ziadkadry99/formula-canvas/internal/gesture"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientMessage is the incoming WebSocket message format.
type clientMessage struct {
	Type    string          `json:"type"` // "pointer", "drop", "zoom", "analyze" or "state"
	Kind    PointerKind     `json:"kind,omitempty"`
	Event   gesture.Event   `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	X       float64         `json:"x,omitempty"`
	Y       float64         `json:"y,omitempty"`
	Factor  float64         `json:"factor,omitempty"`
}

// serverMessage is the outgoing WebSocket message format.
type serverMessage struct {
	Type    string           `json:"type"` // "state", "outcome" or "error"
	State   *State           `json:"state,omitempty"`
	Outcome *gesture.Outcome `json:"outcome,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// handleWebSocket streams a session: pointer and editor events come in,
// the full state goes out after every change. Only the writer goroutine
// writes to the connection.
func handleWebSocket(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Session(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, formula.ErrNotFound) {
			http.Error(w, "formula not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("editor: websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		changes, stop := s.Watch()
		defer stop()
		out := make(chan serverMessage, 8)
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			writeLoop(conn, s, changes, out)
			conn.Close()
		}()
		send := func(msg serverMessage) bool {
			select {
			case out <- msg:
				return true
			case <-writerDone:
				return false
			}
		}

		st := s.State()
		send(serverMessage{Type: "state", State: &st})

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("editor: websocket read: %v", err)
				}
				break
			}

			var msg clientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Printf("editor: ignoring malformed websocket message: %v", err)
				send(serverMessage{Type: "error", Error: "invalid message format"})
				continue
			}
			if reply, ok := dispatch(r, s, msg); ok && !send(reply) {
				break
			}
		}
		close(out)
		<-writerDone
	}
}

func dispatch(r *http.Request, s *Session, msg clientMessage) (serverMessage, bool) {
	switch msg.Type {
	case "pointer":
		o := s.HandlePointer(msg.Kind, msg.Event)
		return serverMessage{Type: "outcome", Outcome: &o}, true
	case "drop":
		s.Drop(r.Context(), msg.Payload, geometry.Pt(msg.X, msg.Y))
	case "zoom":
		s.Zoom(msg.Factor, geometry.Pt(msg.X, msg.Y))
	case "analyze":
		s.Analyze()
	case "state":
		st := s.State()
		return serverMessage{Type: "state", State: &st}, true
	default:
		log.Printf("editor: ignoring websocket message type %q", msg.Type)
		return serverMessage{Type: "error", Error: "unknown message type: " + msg.Type}, true
	}
	return serverMessage{}, false
}

func writeLoop(conn *websocket.Conn, s *Session, changes <-chan struct{}, out <-chan serverMessage) {
	for {
		select {
		case msg, ok := <-out:
			if !ok {
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("editor: websocket write: %v", err)
				return
			}
		case _, ok := <-changes:
			if !ok {
				return
			}
			st := s.State()
			if err := conn.WriteJSON(serverMessage{Type: "state", State: &st}); err != nil {
				log.Printf("editor: websocket write: %v", err)
				return
			}
		}
	}
}
