package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/payflowhq/payd/internal/adapter/handler"
	"github.com/payflowhq/payd/internal/adapter/storage"
	"github.com/payflowhq/payd/internal/core/config"
	"github.com/payflowhq/payd/internal/core/ledger"
	"github.com/payflowhq/payd/internal/core/worker"
)

func main() {
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbPool, err := storage.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("❌ Database connection failed", "error", err)
		os.Exit(1)
	}

	if err := storage.EnsureSchema(ctx, dbPool); err != nil {
		slog.Error("❌ Schema setup failed", "error", err)
		os.Exit(1)
	}

	accountRepo := storage.NewAccountRepository(dbPool)
	methodRepo := storage.NewPaymentMethodRepository(dbPool)
	ledgerStore := storage.NewLedgerStore(dbPool)
	engine := ledger.NewEngine(ledgerStore)

	accountHandler := &handler.AccountHandler{Repo: accountRepo}
	methodHandler := &handler.PaymentMethodHandler{Repo: methodRepo}
	transactionHandler := &handler.TransactionHandler{
		Engine:     engine,
		Accounts:   accountRepo,
		Jobs:       storage.NewJobQueue(dbPool),
		WebhookURL: cfg.WebhookURL,
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "payd",
		})
	})

	api := app.Group("/v1")

	api.Post("/accounts", accountHandler.CreateAccount)
	api.Get("/accounts", accountHandler.ListAccounts)
	api.Get("/accounts/:id", accountHandler.GetAccount)
	api.Patch("/accounts/:id", accountHandler.UpdateAccount)
	api.Get("/accounts/:id/transactions", transactionHandler.ListForAccount)
	api.Get("/accounts/:id/methods", methodHandler.ListForAccount)

	api.Post("/methods", methodHandler.CreatePaymentMethod)
	api.Get("/methods/:id", methodHandler.GetPaymentMethod)

	api.Post("/transfers", transactionHandler.CreateTransfer)
	api.Get("/transfers/:id", transactionHandler.GetTransaction)

	if cfg.WebhookURL != "" {
		worker.StartWebhookWorker(ctx, dbPool, cfg.WebhookSecret)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("🚀 Server starting", "env", cfg.Env, "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
	}()

	<-stop
	slog.Info("🛑 Shutting down server...")

	cancel()
	if err := app.Shutdown(); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	dbPool.Close()
	slog.Info("👋 Server exited")
}
