package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/zen-systems/foodgate/pkg/chat"
	"github.com/zen-systems/foodgate/pkg/food"
	"github.com/zen-systems/foodgate/pkg/search"
)

// wsDone is the terminal frame closing one message's reply.
type wsDone struct {
	Done    bool         `json:"done"`
	Model   string       `json:"model"`
	Type    string       `json:"type"`
	Results []food.Place `json:"results"`
}

// handleWS runs the streaming chat loop: read one JSON message, stream the
// whole reply as text frames, send the terminal JSON frame, repeat. A
// message is fully drained before the next one is read, so two replies
// never interleave.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	for {
		var req chat.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		if err := s.handleWSMessage(r, conn, req); err != nil {
			return
		}
	}
}

func (s *Server) handleWSMessage(r *http.Request, conn *websocket.Conn, req chat.Request) error {
	if req.Message == "" {
		return conn.WriteJSON(map[string]string{"error": "Empty message"})
	}
	if req.City == "" {
		req.City = "ha_noi"
	}

	res, err := s.orch.AskStream(r.Context(), req, func(chunk string) error {
		return conn.WriteMessage(websocket.TextMessage, []byte(chunk))
	})
	if err != nil {
		// Client errors are reported in-band; a failed write ends the
		// session.
		if writeErr := conn.WriteJSON(map[string]string{"error": wsErrorText(err)}); writeErr != nil {
			return writeErr
		}
		return nil
	}
	s.metrics.tiers.WithLabelValues(res.Model).Inc()
	return conn.WriteJSON(wsDone{Done: true, Model: res.Model, Type: res.Type, Results: nonNil(res.Results)})
}

func wsErrorText(err error) string {
	if errors.Is(err, search.ErrUnknownCity) {
		return err.Error()
	}
	return "internal error"
}
