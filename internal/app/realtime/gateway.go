package realtime

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"relaychat/internal/app/chat"
	"relaychat/internal/app/identity"
	"relaychat/internal/app/message"
)

// Gateway owns the services a connection drives.
type Gateway struct {
	registry *chat.Registry
	feed     *message.Feed
	composer *message.Composer
	editor   *message.Editor
}

// NewGateway creates a Gateway.
func NewGateway(registry *chat.Registry, feed *message.Feed, composer *message.Composer, editor *message.Editor) *Gateway {
	return &Gateway{
		registry: registry,
		feed:     feed,
		composer: composer,
		editor:   editor,
	}
}

// Serve runs an upgraded connection for session until either side closes it or the
// session ends. Day separators are computed in loc. Serve blocks.
func (g *Gateway) Serve(ctx context.Context, conn *websocket.Conn, session *identity.Session, loc *time.Location) {
	client := newClient(g, conn, session, loc)
	client.run(ctx)
}
