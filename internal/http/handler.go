package http

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chessagent/internal/a2a"
	"chessagent/internal/core"
	"chessagent/internal/delivery"
	"chessagent/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

const defaultRateLimit = 60 // req/min

// TaskReader answers tasks/get.
type TaskReader interface {
	TaskState(ctx context.Context, taskID string) (*a2a.Task, error)
}

// Pinger reports whether the session store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter reports whether the archive accepts writes.
type HealthReporter interface {
	IsHealthy() bool
}

// Options wires the HTTP surface. Archive, Metrics and JWTSecret are optional.
type Options struct {
	Delivery  delivery.Strategy
	Tasks     TaskReader
	Storage   Pinger
	Archive   HealthReporter
	Metrics   *metrics.Metrics
	Card      CardOptions
	JWTSecret []byte
	RateLimit int // requests per minute per client; 0 uses the default
	DevMode   bool
	Logger    zerolog.Logger
}

type HTTPHandler struct {
	delivery delivery.Strategy
	tasks    TaskReader
	storage  Pinger
	archive  HealthReporter
	card     CardOptions
	logger   zerolog.Logger
}

func NewHTTPHandler(opts Options) *HTTPHandler {
	card := opts.Card
	card.PushNotifications = opts.Delivery.PushNotifications()
	return &HTTPHandler{
		delivery: opts.Delivery,
		tasks:    opts.Tasks,
		storage:  opts.Storage,
		archive:  opts.Archive,
		card:     card,
		logger:   opts.Logger.With().Str("component", "http").Logger(),
	}
}

func NewFiberApp(opts Options) *fiber.App {
	h := NewHTTPHandler(opts)

	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          90 * time.Second,
		IdleTimeout:           60 * time.Second,
		DisableStartupMessage: true,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(requestMetrics(opts.Metrics))

	app.Get("/", h.Banner)
	app.Get("/health", h.Health)
	app.Get("/.well-known/agent.json", h.AgentCard)
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	maxReq := opts.RateLimit
	if maxReq <= 0 {
		maxReq = defaultRateLimit
	}
	if opts.DevMode {
		maxReq *= 2
	}

	rpc := []fiber.Handler{
		limiter.New(limiter.Config{
			Max:          maxReq,
			Expiration:   1 * time.Minute,
			KeyGenerator: clientKey,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(a2a.NewError(nil,
					core.NewInternal("Rate limit exceeded", fmt.Sprintf("%d requests per minute allowed", maxReq))))
			},
		}),
		contentTypeValidator,
	}
	if len(opts.JWTSecret) > 0 {
		rpc = append(rpc, AuthRequired(HS256Validator(opts.JWTSecret)))
	}
	rpc = append(rpc, h.HandleRPC)
	app.Post("/", rpc...)

	return app
}

// clientKey keys the limiter on the first X-Forwarded-For hop, falling back to the peer address.
func clientKey(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	return c.IP()
}

// contentTypeValidator rejects bodies that are not JSON
func contentTypeValidator(c *fiber.Ctx) error {
	contentType := strings.ToLower(strings.TrimSpace(c.Get(fiber.HeaderContentType)))
	if contentType == "" || strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
		return c.Next()
	}
	return c.Status(fiber.StatusUnsupportedMediaType).JSON(
		a2a.NewError(nil, core.NewContentTypeNotSupported(contentType)),
	)
}

// customErrorHandler answers framework errors with a JSON-RPC envelope
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	rpcErr := core.NewInternal("Internal error", nil)

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		switch code {
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
			rpcErr = core.NewMethodNotFound(c.Method() + " " + c.Path())
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
			rpcErr = core.NewInvalidRequest(e.Message)
		default:
			rpcErr = core.NewInternal(e.Message, nil)
		}
	}

	return c.Status(code).JSON(a2a.NewError(nil, rpcErr))
}

// Banner is the plain landing page.
func (h *HTTPHandler) Banner(c *fiber.Ctx) error {
	c.Type("html")
	return c.SendString("<p>Chess bot A2A</p>")
}

// Health reports storage reachability and archive status.
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	status := "healthy"
	storage := "ok"
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := h.storage.Ping(ctx); err != nil {
			storage = "unreachable"
			status = "degraded"
		}
	}

	archive := "disabled"
	if h.archive != nil {
		archive = "ok"
		if !h.archive.IsHealthy() {
			archive = "degraded"
		}
	}

	return c.JSON(fiber.Map{
		"status":  status,
		"time":    time.Now().Unix(),
		"storage": storage,
		"archive": archive,
	})
}

// AgentCard serves the discovery document.
func (h *HTTPHandler) AgentCard(c *fiber.Ctx) error {
	return c.JSON(BuildCard(c.BaseURL(), h.card))
}
