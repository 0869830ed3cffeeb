package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"task-rewards-system/auth"
	"task-rewards-system/config"
	"task-rewards-system/middleware"
	"task-rewards-system/models"
	"task-rewards-system/session"
	"task-rewards-system/store"
)

func userFromCtx(c *fiber.Ctx) auth.User {
	return auth.User{
		UID:         c.Locals("user_id").(string),
		Email:       c.Locals("user_email").(string),
		DisplayName: c.Locals("user_display_name").(string),
	}
}

// SetupTaskRoutes mounts the active-task endpoints. Reads serve straight from
// the session container's in-memory state — the same state the mutations
// update optimistically.
func SetupTaskRoutes(app *fiber.App, manager *session.Manager, cfg *config.Config, authClient *auth.Client) {
	secured := app.Group("/s", middleware.UserContextMiddleware(authClient))

	secured.Get("/tasks", func(c *fiber.Ctx) error {
		sess := manager.Ensure(userFromCtx(c))
		return c.JSON(fiber.Map{"tasks": sess.Tasks.List()})
	})

	secured.Post("/tasks", func(c *fiber.Ctx) error {
		type Req struct {
			Title   string `json:"title"`
			Type    string `json:"type"`
			Urgency string `json:"urgency"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.Title == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
		}
		if req.Urgency == "" {
			req.Urgency = "normal"
		}

		sess := manager.Ensure(userFromCtx(c))
		task, err := sess.Tasks.Add(models.TaskFields{
			Title:   req.Title,
			Points:  cfg.PointsFor(req.Urgency),
			Type:    req.Type,
			Urgency: req.Urgency,
		})
		if err != nil {
			return taskError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(task)
	})

	secured.Post("/tasks/:id/complete", func(c *fiber.Ctx) error {
		taskID := c.Params("id")
		sess := manager.Ensure(userFromCtx(c))

		// Credit the points the UI knows about before the task vanishes from
		// the in-memory list. Unknown ids complete as a no-op with no credit.
		points := 0
		known := false
		for _, t := range sess.Tasks.List() {
			if t.ID == taskID {
				points = t.Points
				known = true
				break
			}
		}

		if err := sess.Tasks.Complete(taskID); err != nil {
			return taskError(c, err)
		}

		stats := sess.Stats.Stats()
		if known {
			stats = sess.Stats.AddCompletedTask(points)
		}
		return c.JSON(fiber.Map{
			"completed": known,
			"points":    points,
			"stats":     stats,
		})
	})

	secured.Get("/tasks/completed", func(c *fiber.Ctx) error {
		user := userFromCtx(c)
		manager.Ensure(user)
		return c.JSON(fiber.Map{"tasks": manager.CompletedTasks(c.Context(), user.UID)})
	})

	secured.Post("/tasks/reload", func(c *fiber.Ctx) error {
		sess := manager.Ensure(userFromCtx(c))
		sess.Tasks.Reload()
		return c.JSON(fiber.Map{"tasks": sess.Tasks.List()})
	})
}

func taskError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": auth.FriendlyMessage(auth.CodeNotSignedIn),
		})
	case errors.Is(err, store.ErrPermissionDenied):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": auth.FriendlyMessage(auth.CodePermissionDenied),
		})
	case errors.Is(err, store.ErrUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Service temporarily unavailable. Try again in a few seconds.",
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
