package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/michaelbrown/playground/internal/present"
	"github.com/michaelbrown/playground/internal/runner"
	"github.com/michaelbrown/playground/internal/verdict"
)

// wsIncoming is a message from the client. A run message may carry the
// current editor contents and language.
type wsIncoming struct {
	Type     string  `json:"type"`
	Code     *string `json:"code,omitempty"`
	Language string  `json:"language,omitempty"`
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type     string            `json:"type"`
	Content  string            `json:"content,omitempty"`
	RunID    string            `json:"run_id,omitempty"`
	View     *present.View     `json:"view,omitempty"`
	Verdicts []verdict.Verdict `json:"verdicts,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	aw, ok := s.workspaces.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "workspace not found", http.StatusNotFound)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := s.logger.With(zap.String("workspace", aw.ID))

	// Read loop
	for {
		var msg wsIncoming
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		if msg.Type != "run" {
			s.wsWriteJSON(conn, wsOutgoing{Type: "error", Content: "invalid message"})
			continue
		}

		s.processRun(conn, aw, msg)
	}
}

func (s *Server) processRun(conn *websocket.Conn, aw *ActiveWorkspace, msg wsIncoming) {
	if msg.Language != "" && msg.Language != string(aw.Language()) {
		if err := aw.SetLanguage(msg.Language); err != nil {
			s.wsWriteJSON(conn, wsOutgoing{Type: "error", Content: err.Error()})
			return
		}
	}
	if msg.Code != nil {
		if err := aw.SetCode(*msg.Code); err != nil {
			s.wsWriteJSON(conn, wsOutgoing{Type: "error", Content: err.Error()})
			return
		}
	}

	// Mutex for thread-safe writes to the WebSocket connection
	var wsMu sync.Mutex

	progress := s.progressHook(func(snap runner.Snapshot) {
		view := present.FromSnapshot(snap)
		wsMu.Lock()
		s.wsWriteJSON(conn, wsOutgoing{Type: "progress", RunID: snap.RunID, View: &view})
		wsMu.Unlock()
	})

	verdicts, err := aw.Run(context.Background(), progress)

	wsMu.Lock()
	defer wsMu.Unlock()

	if err != nil {
		s.wsWriteJSON(conn, wsOutgoing{Type: "error", Content: err.Error()})
		return
	}

	view := present.Build(verdicts, -1, len(verdicts))
	out := wsOutgoing{Type: "done", View: &view, Verdicts: verdicts}
	if snap, ok := aw.Runner().Last(); ok {
		out.RunID = snap.RunID
	}
	s.wsWriteJSON(conn, out)
}

func (s *Server) wsWriteJSON(conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error("websocket marshal failed", zap.Error(err))
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Debug("websocket write failed", zap.Error(err))
	}
}
