package roomrt

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// Upgrader is shared by every websocket endpoint (lobby/game/replay join).
// CheckOrigin accepts every origin; the HTTP surface's CORS middleware is
// configured to allow all origins as well.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}
