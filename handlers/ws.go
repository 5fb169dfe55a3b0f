package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from arbitrary origins behind the proxy
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the connection and runs its read loop. Each connection
// gets one reader goroutine; all replies and broadcasts go through the
// registry, which serializes writes per connection.
func ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	if !gate.IsEnabled() {
		// 1011: the distinguished maintenance close the clients key off
		deadline := time.Now().Add(time.Second)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "Service closed for maintenance"),
			deadline)
		conn.Close()
		return
	}

	registry := liveService.Registry()
	registry.Admit(conn)
	log.Println("Client connected")

	defer func() {
		registry.Forget(conn)
		conn.Close()
		log.Println("Client disconnected")
	}()

	for {
		msgType, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		liveService.HandleMessage(conn, raw)
	}
}
