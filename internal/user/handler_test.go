package user

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// helper to build an app with a simple "bootstrap" middleware that injects a
// jwt.Token into locals when the X-User-ID header is provided. This avoids
// pulling in the full jwtware middleware and keeps tests lightweight.
func makeAppWithUserHandler(uHandler *Handler) *fiber.App {
	app := fiber.New()
	uHandler.RegisterPublicRoutes(app)
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id, "role": c.Get("X-User-Role")}
				tok := &jwt.Token{Claims: claims}
				c.Locals("user", tok)
			}
		}
		return c.Next()
	})
	uHandler.RegisterProtectedRoutes(app)
	return app
}

func TestSignupLoginProfile(t *testing.T) {
	repo := NewInMemoryRepository(nil)
	handler := NewHandler(NewService(repo), "test-secret", time.Hour)
	app := makeAppWithUserHandler(handler)

	req := httptest.NewRequest("POST", "/auth/signup", strings.NewReader(`{"name":"Ada","email":"ada@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("signup request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 on signup, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if strings.Contains(string(b), "secret1") || strings.Contains(string(b), `"password"`) {
		t.Fatalf("signup response leaks password: %s", string(b))
	}

	// duplicate email is rejected
	req2 := httptest.NewRequest("POST", "/auth/signup", strings.NewReader(`{"name":"Ada","email":"ADA@example.com","password":"secret1"}`))
	req2.Header.Set("Content-Type", "application/json")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected 409 on duplicate signup, got %d", res2.StatusCode)
	}

	// wrong password
	req3 := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"email":"ada@example.com","password":"nope"}`))
	req3.Header.Set("Content-Type", "application/json")
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 on bad login, got %d", res3.StatusCode)
	}

	req4 := httptest.NewRequest("POST", "/auth/login", strings.NewReader(`{"email":"ada@example.com","password":"secret1"}`))
	req4.Header.Set("Content-Type", "application/json")
	res4, _ := app.Test(req4)
	if res4.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on login, got %d", res4.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
		User  User   `json:"user"`
	}
	if err := json.NewDecoder(res4.Body).Decode(&body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	parsed, err := jwt.Parse(body.Token, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("issued token does not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["role"] != "user" || int(claims["user_id"].(float64)) != body.User.ID {
		t.Fatalf("unexpected claims %v", claims)
	}

	// profile
	req5 := httptest.NewRequest("GET", "/auth/profile", nil)
	req5.Header.Set("X-User-ID", strconv.Itoa(body.User.ID))
	res5, _ := app.Test(req5)
	if res5.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on profile, got %d", res5.StatusCode)
	}
	b5, _ := io.ReadAll(res5.Body)
	if !strings.Contains(string(b5), "ada@example.com") {
		t.Fatalf("profile missing email: %s", string(b5))
	}
}

func TestSignup_ValidationFailed(t *testing.T) {
	handler := NewHandler(NewService(NewInMemoryRepository(nil)), "s", time.Hour)
	app := makeAppWithUserHandler(handler)

	req := httptest.NewRequest("POST", "/auth/signup", strings.NewReader(`{"name":"","email":"bad","password":"123"}`))
	req.Header.Set("Content-Type", "application/json")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	for _, field := range []string{"name", "email", "password"} {
		if !strings.Contains(string(b), `"`+field+`"`) {
			t.Fatalf("expected error for %s in %s", field, string(b))
		}
	}
}

func TestAdminRoutes(t *testing.T) {
	seed := []User{
		{ID: 1, Name: "Admin", Email: "admin@example.com", Role: RoleAdmin},
		{ID: 2, Name: "Reader", Email: "reader@example.com", Role: RoleUser},
	}
	repo := NewInMemoryRepository(seed)
	app := makeAppWithUserHandler(NewHandler(NewService(repo), "s", time.Hour))

	req := httptest.NewRequest("GET", "/users", nil)
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res.StatusCode)
	}

	req2 := httptest.NewRequest("GET", "/users", nil)
	req2.Header.Set("X-User-ID", "2")
	req2.Header.Set("X-User-Role", "user")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", res2.StatusCode)
	}

	req3 := httptest.NewRequest("DELETE", "/users/2", nil)
	req3.Header.Set("X-User-ID", "1")
	req3.Header.Set("X-User-Role", "admin")
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on admin delete, got %d", res3.StatusCode)
	}
	if _, err := repo.GetByEmail(context.Background(), "reader@example.com"); err != ErrNotFound {
		t.Fatalf("expected user to be deleted, got %v", err)
	}
}

func TestLoadAccount(t *testing.T) {
	seed := []User{
		{ID: 1, Name: "Admin", Email: "admin@example.com", Role: RoleAdmin},
		{ID: 2, Name: "Reader", Email: "reader@example.com", Role: RoleUser},
	}
	svc := NewService(NewInMemoryRepository(seed))
	handler := NewHandler(svc, "s", time.Hour)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id, "role": c.Get("X-User-Role")}
				c.Locals("user", &jwt.Token{Claims: claims})
			}
		}
		return c.Next()
	}, LoadAccount(svc))
	handler.RegisterProtectedRoutes(app)

	// a token still claiming admin after the account lost the role
	req := httptest.NewRequest("GET", "/users", nil)
	req.Header.Set("X-User-ID", "2")
	req.Header.Set("X-User-Role", "admin")
	res, _ := app.Test(req)
	if res.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected 403 for a stale admin claim, got %d", res.StatusCode)
	}

	req2 := httptest.NewRequest("DELETE", "/users/2", nil)
	req2.Header.Set("X-User-ID", "1")
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on admin delete with the stored role, got %d", res2.StatusCode)
	}

	req3 := httptest.NewRequest("GET", "/auth/profile", nil)
	req3.Header.Set("X-User-ID", "2")
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for a deleted account, got %d", res3.StatusCode)
	}
	b, _ := io.ReadAll(res3.Body)
	if !strings.Contains(string(b), "User not found") {
		t.Fatalf("unexpected body %s", string(b))
	}

	req4 := httptest.NewRequest("GET", "/auth/profile", nil)
	res4, _ := app.Test(req4)
	if res4.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", res4.StatusCode)
	}
}
