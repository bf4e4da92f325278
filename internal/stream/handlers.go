package stream

import (
	"strconv"

	"backend-lanewatch/internal/auth"
	"backend-lanewatch/internal/render"
	"backend-lanewatch/pkg/e"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

const localFeedKey = "feed_key"

// RegisterRoutes mounts the live report feed. Each connection receives the
// reports created by the authenticated user.
func RegisterRoutes(r fiber.Router, hub *Hub, authMiddleware fiber.Handler) {
	r.Get("/ws", authMiddleware, func(c *fiber.Ctx) error {
		userID := auth.UserID(c)
		if userID <= 0 {
			return render.Error(c, e.ErrUnauthorized)
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		c.Locals(localFeedKey, strconv.FormatInt(userID, 10))
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		key, _ := c.Locals(localFeedKey).(string)
		client := hub.Register(key)
		defer hub.Unregister(client)

		done := make(chan struct{})
		go func() {
			for msg := range client.Send {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					break
				}
			}
			close(done)
		}()

		for {
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
		hub.Unregister(client)
		<-done
	}))
}
