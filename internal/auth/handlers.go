package auth

import (
	"backend-lanewatch/internal/render"
	"backend-lanewatch/pkg/e"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the account endpoints. throttle guards login
// against credential stuffing and may be nil.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, throttle fiber.Handler) {
	if throttle == nil {
		throttle = func(c *fiber.Ctx) error { return c.Next() }
	}

	r.Post("/create", func(c *fiber.Ctx) error {
		var req RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return render.Error(c, fiber.NewError(fiber.StatusBadRequest, "invalid payload"))
		}
		user, err := svc.Register(c.Context(), req)
		if err != nil {
			return render.Error(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	})

	r.Post("/login", throttle, func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return render.Error(c, ErrMissingCredentials)
		}
		resp, err := svc.Login(c.Context(), req)
		if err != nil {
			return render.Error(c, err)
		}
		return c.JSON(resp)
	})

	r.Get("/me", authMiddleware, func(c *fiber.Ctx) error {
		if UserID(c) <= 0 {
			return render.Error(c, e.ErrUnauthorized)
		}
		user, err := svc.CurrentUser(c.Context(), Username(c))
		if err != nil {
			return render.Error(c, err)
		}
		return c.JSON(user)
	})
}
