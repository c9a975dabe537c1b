// Package server assembles the fiber app: middleware, error rendering and
// routes.
package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"warehouse-backend/internal/audit"
	"warehouse-backend/internal/auth"
	"warehouse-backend/internal/config"
	"warehouse-backend/internal/store"
	"warehouse-backend/internal/transactions"
)

const ctxRequestIDKey = "request_id"

func New(cfg *config.Config, st store.Store, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "warehouse-backend",
		ErrorHandler: errorHandler(logger),
	})

	// recover sits inside the request logger so a panic still gets its access line
	app.Use(requestLogger(logger.Named("http")))
	app.Use(recover.New())

	origins := strings.Split(cfg.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods: "GET,POST,PUT,OPTIONS",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	if cfg.JWTSecret != "" {
		api.Use(auth.JWTMiddleware(cfg.JWTSecret))
	}

	incoming := transactions.NewIncomingService(st, logger)
	outgoing := transactions.NewOutgoingService(st, logger)
	transfer := transactions.NewTransferService(st, logger)
	ledger := transactions.NewLedgerService(st)

	api.Post("/incoming", transactions.CreateIncomingHandler(incoming))
	api.Get("/incoming", transactions.ListIncomingHandler(incoming))
	api.Get("/incoming/:id", transactions.GetIncomingHandler(incoming))
	api.Put("/incoming/:id", transactions.ModifyIncomingHandler(incoming))

	api.Post("/outgoing", transactions.CreateOutgoingHandler(outgoing))
	api.Get("/outgoing", transactions.ListOutgoingHandler(outgoing))
	api.Get("/outgoing/:id", transactions.GetOutgoingHandler(outgoing))
	api.Put("/outgoing/:id", transactions.ModifyOutgoingHandler(outgoing))

	api.Post("/transfers", transactions.CreateTransferHandler(transfer))
	api.Get("/transfers", transactions.ListTransfersHandler(transfer))
	api.Get("/transfers/:id", transactions.GetTransferHandler(transfer))
	api.Put("/transfers/:id", transactions.ModifyTransferHandler(transfer))

	api.Get("/transactions", transactions.ListTransactionsHandler(ledger))
	api.Get("/transactions/:id", transactions.GetTransactionHandler(ledger))

	api.Get("/audit-logs", audit.ListAuditLogsHandler(st))

	return app
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var te *transactions.Error
		if errors.As(err, &te) {
			return transactions.Failure(c, te)
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(transactions.Envelope{Error: &transactions.ErrorBody{
				Kind:    transactions.KindForStatus(fe.Code),
				Message: fe.Message,
			}})
		}

		logger.Error("unexpected error",
			zap.Any(ctxRequestIDKey, c.Locals(ctxRequestIDKey)),
			zap.String("path", c.Path()),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(transactions.Envelope{Error: &transactions.ErrorBody{
			Kind:    transactions.KindInternal,
			Message: "unexpected server error",
		}})
	}
}

// requestLogger tags every request with an X-Request-ID and writes one access
// log line once the response status is known.
func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		rid := c.Get(fiber.HeaderXRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, rid)
		c.Locals(ctxRequestIDKey, rid)

		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String(ctxRequestIDKey, rid),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		}
		if status >= fiber.StatusInternalServerError {
			logger.Warn("request", fields...)
		} else {
			logger.Info("request", fields...)
		}
		return nil
	}
}
