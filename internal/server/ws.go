package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/ntsa-buddy/internal/ai"
	"github.com/p-n-ai/ntsa-buddy/internal/study"
)

// Websocket frame types sent to the client.
const (
	frameChunk = "chunk"
	frameDone  = "done"
	frameError = "error"
)

// maxWSHistory bounds the turns a connection keeps as chat context.
const maxWSHistory = 20

type wsInbound struct {
	Message string               `json:"message"`
	History []study.HistoryEntry `json:"history,omitempty"`
}

type wsFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// handleChatWS streams instructor replies over a websocket. Each inbound
// message yields chunk frames followed by one done frame carrying the whole
// reply, or an error frame. The connection remembers the conversation
// unless the client sends its own history.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	// Chat connections outlive the server's per-request deadlines.
	rc := http.NewResponseController(w)
	rc.SetReadDeadline(time.Time{})
	rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originHosts(s.origins),
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	if s.bodyLimit > 0 {
		conn.SetReadLimit(s.bodyLimit)
	}

	ctx := r.Context()
	client := clientID(r)
	var history []study.HistoryEntry

	for {
		var in wsInbound
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			if status := websocket.CloseStatus(err); status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				slog.Debug("websocket read ended", "error", err)
			}
			return
		}

		if strings.TrimSpace(in.Message) == "" {
			if err := wsjson.Write(ctx, conn, wsFrame{Type: frameError, Text: "Message is required"}); err != nil {
				return
			}
			continue
		}
		if in.History != nil {
			history = in.History
		}

		reply, err := s.streamReply(ctx, conn, client, in.Message, history)
		if err != nil {
			return
		}
		if reply == "" {
			continue
		}

		history = append(history,
			study.HistoryEntry{Role: "user", Text: in.Message},
			study.HistoryEntry{Role: "model", Text: reply},
		)
		if len(history) > maxWSHistory {
			history = history[len(history)-maxWSHistory:]
		}
	}
}

// streamReply forwards one reply to the client. It returns the full reply,
// or "" when the instructor failed and an error frame was sent. A non-nil
// error means the connection is unusable.
func (s *Server) streamReply(ctx context.Context, conn *websocket.Conn, client, message string, history []study.HistoryEntry) (string, error) {
	ch, err := s.study.ChatStream(ctx, client, message, history)
	if err != nil {
		return "", wsjson.Write(ctx, conn, wsFrame{Type: frameError, Text: streamErrorText(err)})
	}

	var reply strings.Builder
	for chunk := range ch {
		switch {
		case chunk.Error != nil:
			slog.Error("instructor stream failed", "error", chunk.Error)
			return "", wsjson.Write(ctx, conn, wsFrame{Type: frameError, Text: msgChatFailed})
		case chunk.Done:
			return reply.String(), wsjson.Write(ctx, conn, wsFrame{Type: frameDone, Text: reply.String()})
		default:
			reply.WriteString(chunk.Content)
			if err := wsjson.Write(ctx, conn, wsFrame{Type: frameChunk, Text: chunk.Content}); err != nil {
				return "", err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", errors.New("instructor stream closed without completion")
}

func streamErrorText(err error) string {
	if errors.Is(err, ai.ErrBudgetExceeded) {
		return msgBudgetExceeded
	}
	slog.Error("instructor stream failed to start", "error", err)
	return msgChatFailed
}

// originHosts turns allowed origins into websocket origin patterns.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
