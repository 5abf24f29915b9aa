package handler

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	ws "github.com/stemsi/paradox-backend/internal/websocket"
)

func newPingTicker() *time.Ticker {
	return time.NewTicker(ws.PingPeriod)
}

// readActions decodes client messages onto incoming until the connection
// fails, then closes closed. The writer side owns every write to conn.
func readActions(conn *websocket.Conn, incoming chan<- ws.RequestEnvelope, closed chan<- struct{}, log zerolog.Logger) {
	defer close(closed)
	ws.KeepAlive(conn)

	for {
		var msg ws.RequestEnvelope
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if ws.IsUnexpectedClose(err) {
				log.Warn().Err(err).Msg("unexpected close")
			}
			return
		}
		select {
		case incoming <- msg:
		case <-time.After(ws.PingPeriod):
			log.Warn().Str("action", string(msg.Action)).Msg("dropping action, writer stalled")
		}
	}
}
