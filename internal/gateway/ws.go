package gateway

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"
)

// handleChatWS serves GET /ws/chat. Each text frame carries a
// chatRequest; the server answers every frame with a chatResponse, so
// one connection drives a whole conversation. Malformed frames get an
// error frame and the connection stays open.
func (g *Gateway) handleChatWS() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			g.logger.Error("websocket accept failed", "error", err)
			return
		}
		defer func() {
			_ = conn.Close(websocket.StatusInternalError, "unexpected close")
		}()

		g.trackChatSocket(conn)
		defer g.untrackChatSocket(conn)

		g.logger.Debug("chat socket opened", "remote", r.RemoteAddr)
		g.chatLoop(r, conn)
		g.logger.Debug("chat socket closed", "remote", r.RemoteAddr)
	}
}

func (g *Gateway) chatLoop(r *http.Request, conn *websocket.Conn) {
	ctx := r.Context()

	// The first turn may create the session; later frames without a
	// session id stay on it.
	var sessionID string

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var req chatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			g.writeFrame(ctx, conn, errorResponse{Error: "invalid frame: " + err.Error()})
			continue
		}
		if req.Message == "" {
			g.writeFrame(ctx, conn, errorResponse{Error: "message is required"})
			continue
		}
		if req.SessionID == "" {
			req.SessionID = sessionID
		}

		resp := g.runTurn(r, req)
		sessionID = resp.SessionID

		if !g.writeFrame(ctx, conn, resp) {
			return
		}
	}
}

// writeFrame marshals v and writes it as one text frame. Returns false
// when the connection is gone.
func (g *Gateway) writeFrame(ctx context.Context, conn *websocket.Conn, v any) bool {
	data, err := json.Marshal(v)
	if err != nil {
		g.logger.Error("marshal frame failed", "error", err)
		return true
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		g.logger.Debug("write frame failed", "error", err)
		return false
	}
	return true
}
