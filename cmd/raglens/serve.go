package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/raglens/raglens/internal/api/handlers"
	"github.com/raglens/raglens/internal/evaluation"
	"github.com/raglens/raglens/internal/metrics"
	"github.com/raglens/raglens/internal/middleware/ratelimit"
	"github.com/raglens/raglens/internal/middleware/security"
	"github.com/raglens/raglens/internal/retrieval"
	"github.com/raglens/raglens/pkg/logger"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}
			defer app.Close()

			corpus, err := app.loadCorpus()
			if err != nil {
				return err
			}

			searcher, err := app.searcher(cmd.Context(), corpus)
			if err != nil {
				return err
			}

			metrics.Init()

			engine := retrieval.NewEngine(app.db, searcher, app.llm, app.llm, app.cfg.Vector.TopK)
			evaluator := evaluation.NewEvaluator(app.db, app.llm)

			fiberApp := fiber.New(fiber.Config{
				ReadTimeout:  time.Duration(app.cfg.Server.ReadTimeout) * time.Second,
				WriteTimeout: time.Duration(app.cfg.Server.WriteTimeout) * time.Second,
				BodyLimit:    app.cfg.Server.BodyLimit,
			})

			limiter := ratelimit.New(ratelimit.Config{})
			defer limiter.Stop()

			fiberApp.Use(recover.New())
			fiberApp.Use(fiberlogger.New())
			fiberApp.Use(cors.New(cors.Config{
				AllowOrigins: "*",
				AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-API-Key",
				AllowMethods: "GET, POST, DELETE, OPTIONS",
			}))
			fiberApp.Use(security.HeadersMiddleware(security.HeadersConfig{}))
			fiberApp.Use(limiter.Middleware())

			queryHandler := handlers.NewQueryHandler(engine)
			feedbackHandler := handlers.NewFeedbackHandler(app.db)
			evaluateHandler := handlers.NewEvaluateHandler(evaluator, app.db)
			sessionHandler := handlers.NewSessionHandler(app.db, corpus)
			wsHandler := handlers.NewWebSocketHandler(evaluator)

			var invalidator handlers.EmbeddingInvalidator
			if app.redis != nil {
				invalidator = app.redis
			}
			cacheHandler := handlers.NewCacheHandler(invalidator)

			api := fiberApp.Group("/api/v1")

			api.Post("/query", queryHandler.HandleQuery)
			api.Get("/query/history", queryHandler.GetQueryHistory)

			api.Post("/feedback", feedbackHandler.SubmitFeedback)
			api.Get("/feedback/:id", feedbackHandler.GetFeedback)

			api.Post("/evaluations", evaluateHandler.RunEvaluation)
			api.Get("/evaluations/latest", evaluateHandler.GetLatestRun)
			api.Get("/evaluations/:run_id/queries/:query_id", evaluateHandler.GetJudgments)

			api.Get("/sessions/rag", sessionHandler.GetRAGSession)
			api.Post("/sessions", sessionHandler.CreateDatasetSession)

			api.Delete("/cache/embeddings", cacheHandler.FlushEmbeddings)

			api.Get("/health", func(c *fiber.Ctx) error {
				return c.JSON(fiber.Map{
					"status": "healthy",
					"time":   time.Now().Unix(),
				})
			})

			fiberApp.Get("/metrics", metrics.MetricsHandler())

			fiberApp.Use("/ws", func(c *fiber.Ctx) error {
				if websocket.IsWebSocketUpgrade(c) {
					return c.Next()
				}
				return fiber.ErrUpgradeRequired
			})
			fiberApp.Get("/ws/evaluate", websocket.New(wsHandler.HandleConnection))

			addr := fmt.Sprintf("%s:%d", app.cfg.Server.Host, app.cfg.Server.Port)
			logger.Info("Server starting", zap.String("address", addr))

			go func() {
				if err := fiberApp.Listen(addr); err != nil {
					logger.Fatal("Server failed to start", zap.Error(err))
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
			<-quit

			logger.Info("Server shutting down gracefully...")
			fiberApp.Shutdown()
			logger.Info("Server stopped")

			return nil
		},
	}
}
