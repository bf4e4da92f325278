package report

import (
	"strconv"

	"backend-lanewatch/internal/auth"
	"backend-lanewatch/internal/render"

	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes mounts the report endpoints. throttle limits how fast a
// client can create reports and may be nil.
func RegisterRoutes(r fiber.Router, svc *Service, authMiddleware, throttle fiber.Handler) {
	if throttle == nil {
		throttle = func(c *fiber.Ctx) error { return c.Next() }
	}

	r.Post("/create", throttle, authMiddleware, func(c *fiber.Ctx) error {
		var req Report
		if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
			return render.Error(c, fiber.NewError(fiber.StatusBadRequest, "invalid payload"))
		}

		created, err := svc.CreateReport(c.Context(), auth.UserID(c), req)
		if err != nil {
			return render.Error(c, err)
		}
		c.Location("/reports/" + strconv.FormatInt(created.ID, 10))
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	r.Post("/getAll", authMiddleware, func(c *fiber.Ctx) error {
		reports, err := svc.ListReports(c.Context(), auth.UserID(c))
		if err != nil {
			return render.Error(c, err)
		}
		return c.JSON(reports)
	})
}
