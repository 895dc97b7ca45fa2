package controllers

import (
	"net/http"
	"strconv"
	"time"

	"nutrition/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
)

type RealtimeController struct {
	RT  *services.RealtimeHub
	Log *zap.Logger
}

func NewRealtimeController(rt *services.RealtimeHub, log *zap.Logger) *RealtimeController {
	if log == nil {
		log = zap.NewNop()
	}
	return &RealtimeController{RT: rt, Log: log}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // tighten behind a proxy if needed
}

// GET /api/nutrition/events?food_id=1
func (rc *RealtimeController) FoodEventsWS(c *gin.Context) {
	var filter int64
	if v := c.Query("food_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			badRequest(c, "invalid food_id")
			return
		}
		filter = id
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		rc.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	sub := rc.RT.Subscribe(filter)

	go rc.writeLoop(conn, sub)

	// read loop ends on client close/error
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			rc.RT.Unsubscribe(sub)
			return
		}
	}
}

// writeLoop is the only writer on conn.
func (rc *RealtimeController) writeLoop(conn *websocket.Conn, sub *services.Subscriber) {
	t := time.NewTicker(pingInterval)
	defer func() {
		t.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case msg, ok := <-sub.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				rc.RT.Unsubscribe(sub)
				return
			}
		case <-t.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				rc.RT.Unsubscribe(sub)
				return
			}
		}
	}
}
