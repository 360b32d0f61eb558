package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func dialChat(t *testing.T, addr string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+addr+"/ws/chat", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn, out any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
}

func TestChatWS_RoundTrip(t *testing.T) {
	t.Parallel()

	_, addr := startedGateway(t, AuthConfig{})
	conn := dialChat(t, addr)

	sendFrame(t, conn, chatRequest{Message: "Hi"})

	var resp chatResponse
	readFrame(t, conn, &resp)

	if resp.Response != "hello" {
		t.Errorf("response = %q, want %q", resp.Response, "hello")
	}
	if resp.SessionID == "" {
		t.Error("session_id is empty")
	}
	if resp.ConversationCount != 1 {
		t.Errorf("conversation_count = %d, want 1", resp.ConversationCount)
	}
}

func TestChatWS_SessionSticksToConnection(t *testing.T) {
	t.Parallel()

	_, addr := startedGateway(t, AuthConfig{})
	conn := dialChat(t, addr)

	sendFrame(t, conn, chatRequest{Message: "first"})
	var first chatResponse
	readFrame(t, conn, &first)

	// No session id on the second frame: it stays on the session the
	// first turn created.
	sendFrame(t, conn, chatRequest{Message: "second"})
	var second chatResponse
	readFrame(t, conn, &second)

	if second.SessionID != first.SessionID {
		t.Errorf("session changed across frames: %q vs %q", second.SessionID, first.SessionID)
	}
	if second.ConversationCount != 2 {
		t.Errorf("conversation_count = %d, want 2", second.ConversationCount)
	}
}

func TestChatWS_MalformedFrameKeepsConnection(t *testing.T) {
	t.Parallel()

	_, addr := startedGateway(t, AuthConfig{})
	conn := dialChat(t, addr)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	var errFrame errorResponse
	readFrame(t, conn, &errFrame)
	if errFrame.Error == "" {
		t.Error("expected an error frame for a malformed payload")
	}

	// The connection still serves turns.
	sendFrame(t, conn, chatRequest{Message: "still here"})
	var resp chatResponse
	readFrame(t, conn, &resp)
	if resp.Response != "hello" {
		t.Errorf("response = %q after error frame", resp.Response)
	}
}

func TestChatWS_EmptyMessageRejected(t *testing.T) {
	t.Parallel()

	_, addr := startedGateway(t, AuthConfig{})
	conn := dialChat(t, addr)

	sendFrame(t, conn, chatRequest{})

	var errFrame errorResponse
	readFrame(t, conn, &errFrame)
	if errFrame.Error != "message is required" {
		t.Errorf("error = %q, want the validation message", errFrame.Error)
	}
}

func TestChatWS_StopClosesConnection(t *testing.T) {
	t.Parallel()

	g, addr := startedGateway(t, AuthConfig{})
	conn := dialChat(t, addr)

	// One round trip so the server has registered the socket.
	sendFrame(t, conn, chatRequest{Message: "Hi"})
	var resp chatResponse
	readFrame(t, conn, &resp)

	if err := g.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	if _, _, err := conn.Read(ctx); err == nil {
		t.Error("Read succeeded after Stop, want a closed connection")
	}
}
