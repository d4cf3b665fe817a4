package user

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// GetUserIDFromCtx extracts the user_id claim from the JWT token stored
// in `c.Locals("user")`. Several packages share it.
func GetUserIDFromCtx(c *fiber.Ctx) (int, error) {
	claims, err := claimsFromCtx(c)
	if err != nil {
		return 0, err
	}
	if raw, ok := claims["user_id"]; ok {
		switch v := raw.(type) {
		case float64:
			return int(v), nil
		case int:
			return v, nil
		case int64:
			return int(v), nil
		case string:
			id, err := strconv.Atoi(v)
			if err != nil {
				return 0, fiber.ErrUnauthorized
			}
			return id, nil
		default:
			return 0, fiber.ErrUnauthorized
		}
	}
	return 0, fiber.ErrUnauthorized
}

// RequesterFromCtx resolves the caller's id, email and role from the token claims.
func RequesterFromCtx(c *fiber.Ctx) (Requester, error) {
	id, err := GetUserIDFromCtx(c)
	if err != nil {
		return Requester{}, err
	}
	claims, _ := claimsFromCtx(c)
	r := Requester{ID: id, Role: RoleUser}
	if email, ok := claims["email"].(string); ok {
		r.Email = email
	}
	if role, ok := claims["role"].(string); ok && Role(role) == RoleAdmin {
		r.Role = RoleAdmin
	}
	return r, nil
}

// AdminOnly rejects callers whose token does not carry the admin role.
func AdminOnly(c *fiber.Ctx) error {
	r, err := RequesterFromCtx(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
	}
	if !r.IsAdmin() {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": "Not authorized as admin"})
	}
	return c.Next()
}

// LoadAccount runs after token verification and looks the caller up on every
// request. A deleted account is rejected, and the email and role claims are
// replaced with the stored values so a demotion takes effect immediately.
func LoadAccount(s *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := GetUserIDFromCtx(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		}
		u, err := s.GetByID(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "User not found"})
			}
			return err
		}

		claims, _ := claimsFromCtx(c)
		claims["email"] = u.Email
		claims["role"] = string(u.Role)
		return c.Next()
	}
}

func claimsFromCtx(c *fiber.Ctx) (jwt.MapClaims, error) {
	u := c.Locals("user")
	if u == nil {
		return nil, fiber.ErrUnauthorized
	}
	tok, ok := u.(*jwt.Token)
	if !ok {
		return nil, fiber.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}
