package editor

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/formula-canvas/internal/canvas"
	"github.com/ziadkadry99/formula-canvas/internal/formula"
	"github.com/ziadkadry99/formula-canvas/internal/geometry"
	"github.com/ziadkadry99/formula-canvas/internal/gesture"
)

// RegisterRoutes mounts the canvas API under /api/formulas/{id}/canvas.
func RegisterRoutes(r chi.Router, m *Manager) {
	r.Route("/api/formulas/{id}/canvas", func(r chi.Router) {
		r.Get("/", withSession(m, handleState))
		r.Post("/pointer", withSession(m, handlePointer))
		r.Post("/drop", withSession(m, handleDrop))
		r.Put("/selection", withSession(m, handleSelect))
		r.Delete("/nodes/{nodeID}", withSession(m, handleDeleteNode))
		r.Put("/nodes/{nodeID}/amount", withSession(m, handleSetAmount))
		r.Post("/nodes/{nodeID}/expand", withSession(m, handleExpand))
		r.Post("/connections", withSession(m, handleConnect))
		r.Put("/connections/{connID}", withSession(m, handleUpdateConnection))
		r.Delete("/connections/{connID}", withSession(m, handleDeleteConnection))
		r.Post("/groups", withSession(m, handleCreateGroup))
		r.Put("/groups/{groupID}", withSession(m, handleUpdateGroup))
		r.Delete("/groups/{groupID}", withSession(m, handleDeleteGroup))
		r.Post("/groups/{groupID}/collapse", withSession(m, handleCollapse))
		r.Post("/outputs", withSession(m, handleAddOutput))
		r.Post("/zoom", withSession(m, handleZoom))
		r.Post("/bridge", withSession(m, handleBridge))
		r.Post("/analyze", withSession(m, handleAnalyze))
	})
}

// RegisterStream mounts the pointer stream at /ws/canvas/{id}. It must not
// sit behind a request timeout.
func RegisterStream(r chi.Router, m *Manager) {
	r.Get("/ws/canvas/{id}", handleWebSocket(m))
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *Session)

func withSession(m *Manager, h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Session(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, formula.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "formula not found"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		h(w, r, s)
	}
}

// opResponse reports whether an operation changed anything, with the
// resulting state.
type opResponse struct {
	Applied bool  `json:"applied"`
	State   State `json:"state"`
}

func respond(w http.ResponseWriter, s *Session, applied bool) {
	writeJSON(w, http.StatusOK, opResponse{Applied: applied, State: s.State()})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func handleState(w http.ResponseWriter, r *http.Request, s *Session) {
	writeJSON(w, http.StatusOK, s.State())
}

type pointerRequest struct {
	Kind  PointerKind   `json:"kind" validate:"required,oneof=down move up cancel"`
	Event gesture.Event `json:"event"`
}

func handlePointer(w http.ResponseWriter, r *http.Request, s *Session) {
	var req pointerRequest
	if !decode(w, r, &req) {
		return
	}
	out := s.HandlePointer(req.Kind, req.Event)
	writeJSON(w, http.StatusOK, struct {
		Outcome gesture.Outcome `json:"outcome"`
		State   State           `json:"state"`
	}{out, s.State()})
}

type dropRequest struct {
	Payload json.RawMessage `json:"payload"`
	X       float64         `json:"x"`
	Y       float64         `json:"y"`
}

func handleDrop(w http.ResponseWriter, r *http.Request, s *Session) {
	var req dropRequest
	if !decode(w, r, &req) {
		return
	}
	_, ok := s.Drop(r.Context(), req.Payload, geometry.Pt(req.X, req.Y))
	respond(w, s, ok)
}

type selectRequest struct {
	Nodes []canvas.NodeID `json:"nodes"`
	Group canvas.GroupID  `json:"group"`
}

func handleSelect(w http.ResponseWriter, r *http.Request, s *Session) {
	var req selectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Group != "" {
		respond(w, s, s.SelectGroup(req.Group))
		return
	}
	s.Select(req.Nodes)
	respond(w, s, true)
}

func handleDeleteNode(w http.ResponseWriter, r *http.Request, s *Session) {
	respond(w, s, s.DeleteNode(r.Context(), canvas.NodeID(chi.URLParam(r, "nodeID"))))
}

type amountRequest struct {
	Amount float64 `json:"amount" validate:"gte=0"`
}

func handleSetAmount(w http.ResponseWriter, r *http.Request, s *Session) {
	var req amountRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.SetAmount(r.Context(), canvas.NodeID(chi.URLParam(r, "nodeID")), req.Amount); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	respond(w, s, true)
}

func handleExpand(w http.ResponseWriter, r *http.Request, s *Session) {
	_, ok := s.ExpandAccord(canvas.NodeID(chi.URLParam(r, "nodeID")))
	respond(w, s, ok)
}

type connectRequest struct {
	Source   canvas.NodeID         `json:"source" validate:"required"`
	Target   canvas.NodeID         `json:"target" validate:"required"`
	Kind     canvas.ConnectionKind `json:"kind" validate:"omitempty,oneof=blend boost suppress"`
	Strength *float64              `json:"strength"`
}

func handleConnect(w http.ResponseWriter, r *http.Request, s *Session) {
	var req connectRequest
	if !decode(w, r, &req) {
		return
	}
	strength := s.opts.DefaultStrength
	if req.Strength != nil {
		strength = *req.Strength
	}
	_, ok := s.Connect(req.Source, req.Target, req.Kind, strength)
	respond(w, s, ok)
}

type updateConnectionRequest struct {
	Kind     canvas.ConnectionKind `json:"kind" validate:"required,oneof=blend boost suppress"`
	Strength float64               `json:"strength"`
}

func handleUpdateConnection(w http.ResponseWriter, r *http.Request, s *Session) {
	var req updateConnectionRequest
	if !decode(w, r, &req) {
		return
	}
	respond(w, s, s.UpdateConnection(canvas.ConnectionID(chi.URLParam(r, "connID")), req.Kind, req.Strength))
}

func handleDeleteConnection(w http.ResponseWriter, r *http.Request, s *Session) {
	respond(w, s, s.DeleteConnection(canvas.ConnectionID(chi.URLParam(r, "connID"))))
}

type groupRequest struct {
	Label   string          `json:"label"`
	Members []canvas.NodeID `json:"members"`
}

func handleCreateGroup(w http.ResponseWriter, r *http.Request, s *Session) {
	var req groupRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Members) > 0 {
		s.Select(req.Members)
	}
	_, ok := s.CreateGroupFromSelection(req.Label)
	respond(w, s, ok)
}

type updateGroupRequest struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

func handleUpdateGroup(w http.ResponseWriter, r *http.Request, s *Session) {
	var req updateGroupRequest
	if !decode(w, r, &req) {
		return
	}
	id := canvas.GroupID(chi.URLParam(r, "groupID"))
	applied := false
	if req.Label != "" {
		applied = s.RenameGroup(id, req.Label) || applied
	}
	if req.Color != "" {
		applied = s.SetGroupColor(id, req.Color) || applied
	}
	respond(w, s, applied)
}

func handleDeleteGroup(w http.ResponseWriter, r *http.Request, s *Session) {
	respond(w, s, s.DeleteGroup(canvas.GroupID(chi.URLParam(r, "groupID"))))
}

func handleCollapse(w http.ResponseWriter, r *http.Request, s *Session) {
	_, ok := s.CollapseGroup(canvas.GroupID(chi.URLParam(r, "groupID")))
	respond(w, s, ok)
}

type outputRequest struct {
	Label string   `json:"label"`
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
}

func handleAddOutput(w http.ResponseWriter, r *http.Request, s *Session) {
	var req outputRequest
	if !decode(w, r, &req) {
		return
	}
	var at *geometry.Point
	if req.X != nil && req.Y != nil {
		p := geometry.Pt(*req.X, *req.Y)
		at = &p
	}
	_, ok := s.AddOutput(req.Label, at)
	respond(w, s, ok)
}

type zoomRequest struct {
	Factor  float64 `json:"factor"`
	AnchorX float64 `json:"anchor_x"`
	AnchorY float64 `json:"anchor_y"`
	Step    string  `json:"step" validate:"omitempty,oneof=in out"`
}

func handleZoom(w http.ResponseWriter, r *http.Request, s *Session) {
	var req zoomRequest
	if !decode(w, r, &req) {
		return
	}
	switch {
	case req.Step != "":
		s.ZoomStep(req.Step == "in")
	case req.Factor > 0:
		s.Zoom(req.Factor, geometry.Pt(req.AnchorX, req.AnchorY))
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "factor or step is required"})
		return
	}
	respond(w, s, true)
}

func handleBridge(w http.ResponseWriter, r *http.Request, s *Session) {
	_, err := s.Bridge(r.Context())
	switch {
	case errors.Is(err, ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "similarity index unavailable"})
	case errors.Is(err, ErrNeedTwoNodes), errors.Is(err, ErrNoCandidate):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		respond(w, s, true)
	}
}

func handleAnalyze(w http.ResponseWriter, r *http.Request, s *Session) {
	writeJSON(w, http.StatusAccepted, s.Analyze())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
