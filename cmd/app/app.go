package main

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/rs/zerolog/log"

	"github.com/wichananm65/bookstore-backend/internal/book"
	"github.com/wichananm65/bookstore-backend/internal/cart"
	"github.com/wichananm65/bookstore-backend/internal/category"
	"github.com/wichananm65/bookstore-backend/internal/config"
	"github.com/wichananm65/bookstore-backend/internal/db"
	"github.com/wichananm65/bookstore-backend/internal/notify"
	"github.com/wichananm65/bookstore-backend/internal/order"
	"github.com/wichananm65/bookstore-backend/internal/payment"
	"github.com/wichananm65/bookstore-backend/internal/user"
)

// stores holds one repository per aggregate, backed either by Postgres or memory.
type stores struct {
	users      user.Repository
	books      book.Repository
	categories category.Repository
	carts      cart.Repository
	orders     order.Repository
	db         *sql.DB
}

func (s stores) close() {
	if s.db != nil {
		s.db.Close()
	}
}

func (s stores) userService() *user.Service {
	return user.NewService(s.users)
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.InMemory() {
		log.Warn().Msg("DATABASE_URL is not set, using in-memory stores")
		return memoryStores(ctx, cfg)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return stores{}, err
	}
	if err := db.EnsureSchema(ctx, conn); err != nil {
		conn.Close()
		return stores{}, err
	}
	return stores{
		users:      user.NewPostgresRepository(conn),
		books:      book.NewPostgresRepository(conn),
		categories: category.NewPostgresRepository(conn),
		carts:      cart.NewPostgresRepository(conn),
		orders:     order.NewPostgresRepository(conn),
		db:         conn,
	}, nil
}

func memoryStores(ctx context.Context, cfg config.Config) (stores, error) {
	books := book.NewInMemoryRepository(seedBooks())
	carts := cart.NewInMemoryRepository()
	st := stores{
		users:      user.NewInMemoryRepository(nil),
		books:      books,
		categories: category.NewInMemoryRepository(books),
		carts:      carts,
		orders:     order.NewInMemoryRepository(books, carts),
	}
	if cfg.Admin.Email == "" && !cfg.Production() {
		if _, err := st.userService().EnsureAdmin(ctx, "Admin", devAdminEmail, devAdminPassword); err != nil {
			return stores{}, err
		}
		log.Info().Str("email", devAdminEmail).Msg("seeded development admin")
	}
	return st, nil
}

// newApp wires repositories into services and handlers and mounts every route
// under /api.
func newApp(cfg config.Config, st stores, events payment.EventLog) (*fiber.App, *payment.Service) {
	userService := st.userService()
	bookService := book.NewService(st.books)
	cartService := cart.NewService(st.carts, st.books)
	orderService := order.NewService(st.orders, cartService, st.books)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.SMTP.Host != "" {
		client, err := notify.NewSMTPClient(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password)
		if err != nil {
			log.Error().Err(err).Msg("smtp client setup failed, confirmations will only be logged")
		} else {
			notifier = notify.NewMailer(orderService, userService, client, cfg.SMTP.From)
		}
	}
	provider := payment.NewStripeProvider(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.Currency, cfg.ClientURL)
	paymentService := payment.NewService(orderService, provider, events, notifier)

	userHandler := user.NewHandler(userService, cfg.JWTSecret, cfg.JWTTTL)
	bookHandler := book.NewHandler(bookService)
	categoryHandler := category.NewHandler(category.NewService(st.categories))
	cartHandler := cart.NewHandler(cartService)
	orderHandler := order.NewHandler(orderService)
	paymentHandler := payment.NewHandler(paymentService)

	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Use(recover.New())
	setupCORS(app, cfg.ClientURL)
	app.Use(requestLogger)

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "UP", "timestamp": time.Now().UTC()})
	})
	userHandler.RegisterPublicRoutes(api)
	bookHandler.RegisterPublicRoutes(api)
	categoryHandler.RegisterPublicRoutes(api)
	paymentHandler.RegisterPublicRoutes(api)

	api.Use(jwtware.New(jwtware.Config{
		SigningKey:   []byte(cfg.JWTSecret),
		ErrorHandler: jwtError,
	}))
	api.Use(user.LoadAccount(userService))

	userHandler.RegisterProtectedRoutes(api)
	bookHandler.RegisterProtectedRoutes(api)
	cartHandler.RegisterProtectedRoutes(api)
	orderHandler.RegisterProtectedRoutes(api)
	paymentHandler.RegisterProtectedRoutes(api)

	return app, paymentService
}

func setupCORS(app *fiber.App, clientURL string) {
	app.Use(cors.New(cors.Config{
		AllowOrigins: clientURL,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
}

// requestLogger logs one line per request once the handler chain returns.
func requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else {
			status = fiber.StatusInternalServerError
		}
	}
	log.Debug().
		Str("method", c.Method()).
		Str("path", c.OriginalURL()).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("request")
	return err
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"message": fe.Message})
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Server error"})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not authorized, no token"})
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not authorized, token failed"})
}
