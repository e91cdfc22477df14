package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/examark/examark-api/internal/utils"
)

// Roles recognised on JWT claims.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// RequireRole restricts a route to callers whose token carries one of the
// listed roles. It expects JWTProtected to have run first.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		role, ok := c.Locals("user_role").(string)
		if !ok || role == "" {
			return utils.SendError(c, fiber.StatusForbidden, "access denied")
		}
		if _, permitted := allowed[role]; !permitted {
			return utils.SendError(c, fiber.StatusForbidden, "access denied")
		}
		return c.Next()
	}
}
