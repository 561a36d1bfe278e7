package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"ctchen222/rally-tracker/internal/api/response"
	"ctchen222/rally-tracker/internal/events"
	"ctchen222/rally-tracker/internal/room"
	"ctchen222/rally-tracker/pkg/proto"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	heartbeatInterval = 10 * time.Second
	writeWait         = 5 * time.Second
)

// Connection is an interface that abstracts the websocket connection.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	ReadMessage() (int, []byte, error)
	Close() error
}

// stream is one client following a match. The client receives the current
// state, every event published for the match and the replies to the
// commands it sends.
type stream struct {
	conn    Connection
	room    *room.Room
	replies chan *proto.ServerToClientMessage
}

// handleStream upgrades the connection and relays the match channel to the
// client until either side goes away.
func (s *Server) handleStream(c *gin.Context) {
	matchID := c.Param("id")
	ctx, span := tracer.Start(c.Request.Context(), "server.handleStream", trace.WithAttributes(
		attribute.String("match.id", matchID),
	))
	defer span.End()

	r, err := s.hub.Get(matchID)
	if err != nil {
		response.ErrorResponse(c, http.StatusNotFound, err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.WarnContext(ctx, "failed to upgrade connection", "match.id", matchID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to upgrade connection")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	published, unsubscribe := s.events.Subscribe(ctx, matchID)
	defer func() {
		if err := unsubscribe(); err != nil {
			slog.WarnContext(ctx, "failed to unsubscribe", "match.id", matchID, "error", err)
		}
	}()

	st := &stream{conn: conn, room: r, replies: make(chan *proto.ServerToClientMessage, 8)}
	go st.readPump(ctx, cancel)
	st.writePump(ctx, published)
	slog.InfoContext(ctx, "stream closed", "match.id", matchID)
}

// readPump applies the commands sent by the client and queues the replies.
func (st *stream) readPump(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()
	for {
		_, msg, err := st.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.WarnContext(ctx, "stream connection error", "match.id", st.room.ID, "error", err)
			}
			return
		}
		reply := st.room.HandleMessage(ctx, msg)
		select {
		case st.replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

// writePump is the only writer of the connection.
func (st *stream) writePump(ctx context.Context, published <-chan string) {
	ticker := time.NewTicker(heartbeatInterval)
	defer func() {
		ticker.Stop()
		st.conn.Close()
	}()

	if err := st.write(proto.StateMessage(st.room.View())); err != nil {
		slog.WarnContext(ctx, "failed to send initial state", "match.id", st.room.ID, "error", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			_ = st.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return

		case payload, ok := <-published:
			if !ok {
				return
			}
			var ev events.Event
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				slog.WarnContext(ctx, "dropping undecodable event", "match.id", st.room.ID, "error", err)
				continue
			}
			if err := st.write(&proto.ServerToClientMessage{Type: proto.TypeEvent, Event: &ev}); err != nil {
				return
			}

		case reply := <-st.replies:
			if err := st.write(reply); err != nil {
				return
			}

		case <-ticker.C:
			if err := st.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				slog.WarnContext(ctx, "failed to send ping, assuming disconnect", "match.id", st.room.ID, "error", err)
				return
			}
		}
	}
}

func (st *stream) write(msg *proto.ServerToClientMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return st.conn.WriteMessage(websocket.TextMessage, data)
}
