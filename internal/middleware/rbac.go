package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-quiz/internal/models"
)

// Capability names the roles allowed to run a handler. An empty role list admits any authenticated caller.
type Capability struct {
	Roles []string
}

var (
	// Authenticated admits every logged-in identity.
	Authenticated = Capability{}
	// AdminOnly admits administrators.
	AdminOnly = Capability{Roles: []string{models.RoleAdmin}}
)

// Allowed reports whether the current caller holds the capability.
func Allowed(c *fiber.Ctx, capability Capability) bool {
	principal, ok := CurrentPrincipal(c)
	if !ok {
		return false
	}
	if len(capability.Roles) == 0 {
		return true
	}

	role := models.NormalizeRole(principal.Role)
	for _, candidate := range capability.Roles {
		if strings.EqualFold(strings.TrimSpace(candidate), role) {
			return true
		}
	}
	return false
}
