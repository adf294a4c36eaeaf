package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/identity"
	"relaychat/internal/app/live"
	"relaychat/internal/app/message"
	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 8192

	// sendBuffer is the number of outbound frames queued per connection.
	sendBuffer = 256

	// CloseCodeSessionEnded is sent when the session signs out, resets its password, or expires.
	CloseCodeSessionEnded = 4001
)

var errSendQueueFull = errors.New("client send queue full")

// client is one WebSocket connection of a session.
type client struct {
	gateway *Gateway
	conn    *websocket.Conn
	session *identity.Session
	loc     *time.Location

	// a buffered channel used to queue frames waiting to be sent to the client.
	send chan []byte

	// closing carries the close frame that ends the write pump.
	closing   chan []byte
	closeOnce sync.Once

	stream *message.Stream
	tasks  sync.WaitGroup
	logger zerolog.Logger
}

func newClient(g *Gateway, conn *websocket.Conn, session *identity.Session, loc *time.Location) *client {
	if loc == nil {
		loc = time.UTC
	}

	return &client{
		gateway: g,
		conn:    conn,
		session: session,
		loc:     loc,
		send:    make(chan []byte, sendBuffer),
		closing: make(chan []byte, 1),
		logger: logx.Component("WSClient").With().
			Str("uid", session.CurrentUser().ID).
			Str("session_id", session.ID).
			Logger(),
	}
}

// run wires the subscriptions of the connection and blocks in the read pump.
func (c *client) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)

	c.stream = c.gateway.feed.NewStream(ctx, c.session, c.loc)
	dms := c.gateway.registry.WatchDirectMessages(ctx, c.session)

	var pumps sync.WaitGroup
	pumps.Add(4)
	go func() { defer pumps.Done(); c.writePump(ctx) }()
	go func() { defer pumps.Done(); c.forwardDMs(ctx, dms.C()) }()
	go func() { defer pumps.Done(); c.forwardViews(ctx) }()
	go func() { defer pumps.Done(); c.watchSession(ctx) }()

	c.logger.Info().Msg("WebSocket client connected.")

	c.readPump(ctx)

	cancel()
	dms.Cancel()
	c.stream.Close()
	c.tasks.Wait()
	pumps.Wait()

	c.logger.Info().Msg("WebSocket client disconnected.")
}

// readPump handles reading frames from the WebSocket connection.
// It handles heartbeats (Pong), frame parsing, and returns when the connection closes.
func (c *client) readPump(ctx context.Context) {
	defer func() {
		if err := c.conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
			c.logger.Debug().Err(err).Msg("Connection close error in readPump.")
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline.")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away).")
			}
			return
		}

		c.processInbound(ctx, data)
	}
}

// processInbound dispatches one client frame. Chat selection is applied in order; writes run
// concurrently so a slow moderation call does not stall the read loop.
func (c *client) processInbound(ctx context.Context, data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON.")
		c.sendNotice("", errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	switch frame.Type {
	case TypeOpenChat:
		var p OpenChatPayload
		if !c.decode(frame, &p) {
			return
		}
		if err := c.stream.Open(ctx, p.ChatID); err != nil {
			c.sendNotice(frame.TempID, err)
		}

	case TypeSendText:
		var p SendTextPayload
		if !c.decode(frame, &p) {
			return
		}
		c.goTask(func() {
			msg, err := c.gateway.composer.Submit(ctx, c.session, p.ChatID, p.Text)
			c.reply(frame.TempID, msg.ID, err)
		})

	case TypeEditText:
		var p EditTextPayload
		if !c.decode(frame, &p) {
			return
		}
		c.goTask(func() {
			_, err := c.gateway.editor.Edit(ctx, c.session, p.ChatID, p.MessageID, p.Text)
			c.reply(frame.TempID, p.MessageID, err)
		})

	case TypeDeleteMessage:
		var p DeleteMessagePayload
		if !c.decode(frame, &p) {
			return
		}
		c.goTask(func() {
			err := c.gateway.editor.Delete(ctx, c.session, p.ChatID, p.MessageID)
			c.reply(frame.TempID, p.MessageID, err)
		})

	default:
		c.logger.Warn().Str("frame_type", string(frame.Type)).Msg("Client sent unsupported frame type.")
		c.sendNotice(frame.TempID, errs.NewError(errs.ErrInvalidParams))
	}
}

func (c *client) decode(frame Frame, dst any) bool {
	if err := json.Unmarshal(frame.Payload, dst); err != nil {
		c.logger.Warn().Err(err).Str("frame_type", string(frame.Type)).Msg("Client sent invalid payload.")
		c.sendNotice(frame.TempID, errs.NewError(errs.ErrInvalidParams))
		return false
	}
	return true
}

func (c *client) goTask(fn func()) {
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		fn()
	}()
}

// reply confirms a command or reports its failure.
func (c *client) reply(tempID, id string, err error) {
	if err != nil {
		c.sendNotice(tempID, err)
		return
	}
	if tempID == "" {
		return
	}
	c.sendFrame(TypeConfirm, tempID, ConfirmPayload{TempID: tempID, ID: id})
}

func (c *client) forwardDMs(ctx context.Context, snaps <-chan live.Snapshot[[]chat.Descriptor]) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			if snap.Err != nil {
				c.sendNotice("", errs.Wrap(errs.ErrLoadFailed, snap.Err))
				continue
			}
			c.sendFrame(TypeDMList, "", DMListPayload{DMs: snap.Data})
		}
	}
}

func (c *client) forwardViews(ctx context.Context) {
	views := c.stream.Views()
	for {
		select {
		case <-ctx.Done():
			return
		case view, ok := <-views:
			if !ok {
				return
			}
			c.sendFrame(TypeMessages, "", view)
		}
	}
}

// watchSession pushes the current user on connect and after every profile change, and closes
// the connection when the session ends.
func (c *client) watchSession(ctx context.Context) {
	for {
		changed := c.session.Changed()
		c.sendFrame(TypeSession, "", SessionPayload{User: c.session.CurrentUser()})

		select {
		case <-ctx.Done():
			return
		case <-changed:
		case <-c.session.Done():
			c.kick("session ended")
			return
		}
	}
}

// kick asks the write pump to send a close frame and stop.
func (c *client) kick(reason string) {
	c.closeOnce.Do(func() {
		c.logger.Info().Int("close_code", CloseCodeSessionEnded).Str("reason", reason).Msg("Closing WebSocket.")
		c.closing <- websocket.FormatCloseMessage(CloseCodeSessionEnded, reason)
	})
}

// writePump handles writing frames from the send channel to the WebSocket connection.
func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in writePump.")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case data := <-c.send:
			if !c.write(websocket.TextMessage, data) {
				return
			}

		case closeMsg := <-c.closing:
			c.drain()
			c.write(websocket.CloseMessage, closeMsg)
			return

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// drain flushes frames queued before a close request.
func (c *client) drain() {
	for {
		select {
		case data := <-c.send:
			if !c.write(websocket.TextMessage, data) {
				return
			}
		default:
			return
		}
	}
}

// write sends one frame and reports whether the pump should continue.
func (c *client) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline.")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing frame.")
		return false
	}

	return true
}

// sendFrame marshals payload and queues it without blocking.
func (c *client) sendFrame(t FrameType, tempID string, payload any) {
	frame, err := newFrame(t, tempID, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("frame_type", string(t)).Msg("Error marshaling frame payload.")
		return
	}

	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error().Err(err).Str("frame_type", string(t)).Msg("Error marshaling frame.")
		return
	}

	if err := c.enqueue(data); err != nil {
		c.logger.Warn().Err(err).Int("queue_len", len(c.send)).Str("frame_type", string(t)).Msg("Dropping frame.")
	}
}

func (c *client) enqueue(data []byte) error {
	select {
	case c.send <- data:
		return nil
	default:
		return errSendQueueFull
	}
}

// sendNotice reports err to the client with its table message.
func (c *client) sendNotice(tempID string, err error) {
	customErr := errs.From(err)
	if customErr.Cause != nil {
		c.logger.Warn().Err(customErr.Cause).Int("code", customErr.Code).Msg("Command failed.")
	}

	c.sendFrame(TypeNotice, tempID, NoticePayload{
		Code:    customErr.Code,
		Kind:    string(customErr.Kind),
		Message: customErr.Message,
	})
}
