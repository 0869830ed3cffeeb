package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"task-rewards-system/auth"
	"task-rewards-system/config"
	"task-rewards-system/middleware"
	"task-rewards-system/models"
	"task-rewards-system/session"
	"task-rewards-system/utils"
)

// SetupUserRoutes mounts the stats, voucher, reset, export and logout
// endpoints.
func SetupUserRoutes(app *fiber.App, manager *session.Manager, cfg *config.Config, authClient *auth.Client) {
	secured := app.Group("/s", middleware.UserContextMiddleware(authClient))

	secured.Get("/user/stats", func(c *fiber.Ctx) error {
		sess := manager.Ensure(userFromCtx(c))
		return c.JSON(fiber.Map{
			"stats":            sess.Stats.Stats(),
			"profile":          sess.Stats.Profile(),
			"remote_available": manager.RemoteAvailable(),
		})
	})

	secured.Get("/vouchers", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"vouchers": cfg.Vouchers})
	})

	secured.Get("/vouchers/redeemed", func(c *fiber.Ctx) error {
		user := userFromCtx(c)
		manager.Ensure(user)
		return c.JSON(fiber.Map{"vouchers": manager.RedeemedVouchers(c.Context(), user.UID)})
	})

	secured.Post("/vouchers/redeem", func(c *fiber.Ctx) error {
		type Req struct {
			VoucherID string `json:"voucher_id"`
			Title     string `json:"title"`
			Points    int    `json:"points"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		// Catalog entries win over caller-supplied cost; custom vouchers must
		// carry their own title and points.
		if entry, ok := cfg.FindVoucher(req.VoucherID); ok {
			req.Title = entry.Title
			req.Points = entry.Points
		} else if req.Title == "" || req.Points <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown voucher id and no title/points supplied"})
		}

		sess := manager.Ensure(userFromCtx(c))
		result := sess.Stats.RedeemVoucher(req.Points, req.VoucherID, req.Title)
		if !result.OK {
			status := fiber.StatusConflict
			if result.Reason == "sign in to redeem vouchers" {
				status = fiber.StatusUnauthorized
			}
			return c.Status(status).JSON(result)
		}
		return c.JSON(result)
	})

	secured.Post("/user/reset", func(c *fiber.Ctx) error {
		sess := manager.Ensure(userFromCtx(c))
		if err := sess.Stats.Reset(); err != nil {
			return taskError(c, err)
		}
		sess.Tasks.Reload()
		return c.JSON(fiber.Map{
			"message": "user data reset",
			"stats":   sess.Stats.Stats(),
		})
	})

	secured.Post("/user/export", func(c *fiber.Ctx) error {
		if !utils.ExportEnabled() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "export is not configured"})
		}
		user := userFromCtx(c)
		sess := manager.Ensure(user)

		snapshot := struct {
			Profile    *models.UserProfile      `json:"profile"`
			Tasks      []models.Task            `json:"tasks"`
			Completed  []models.Task            `json:"completedTasks"`
			Vouchers   []models.RedeemedVoucher `json:"redeemedVouchers"`
			ExportedAt time.Time                `json:"exportedAt"`
		}{
			Profile:    sess.Stats.Profile(),
			Tasks:      sess.Tasks.List(),
			Completed:  manager.CompletedTasks(c.Context(), user.UID),
			Vouchers:   manager.RedeemedVouchers(c.Context(), user.UID),
			ExportedAt: time.Now().UTC(),
		}

		payload, err := json.Marshal(snapshot)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build export", "cause": err.Error()})
		}

		key := fmt.Sprintf("exports/%s/%d.json", user.UID, time.Now().UTC().Unix())
		url, err := utils.UploadUserExport(key, payload)
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "export upload failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"url": url, "key": key})
	})

	secured.Post("/session/logout", func(c *fiber.Ctx) error {
		user := userFromCtx(c)
		manager.SignOut(user.UID)
		return c.JSON(fiber.Map{"message": "signed out"})
	})
}
