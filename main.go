// File: serenity/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"serenity/config"
	"serenity/cron"
	"serenity/database"
	bookingRepo "serenity/database/repository/booking"
	"serenity/handlers"
	"serenity/middleware"
	"serenity/routes"
	"serenity/services/approval"
	ai "serenity/services/intelligence"
	"serenity/services/messaging"
	"serenity/services/tasks"
	"serenity/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitContextCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	bookings := bookingRepo.NewMongoBookingRepo()

	// outbound WhatsApp gateway.
	sender := messaging.NewUltraMsgSender(
		config.AppConfig.UltraMsgBaseURL,
		config.AppConfig.UltraMsgInstanceID,
		config.AppConfig.UltraMsgToken,
		logger,
	)

	// intent extraction: Gemini with a keyword fallback.
	ctxStore := ai.NewRedisContextStore(utils.GetContextCacheClient(), 30*time.Minute)
	fallback := ai.NewKeywordExtractor(nil)
	extractor, err := ai.NewGeminiExtractor(config.AppConfig.GeminiAPIKey, ctxStore, fallback)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize intent extractor: %v", err)
	}

	// reminder scheduling.
	reminderOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisReminderQueueDB,
	}
	reminders := tasks.NewAsynqReminderScheduler(
		reminderOpts,
		time.Duration(config.AppConfig.ReminderLeadMinutes)*time.Minute,
		logger,
	)
	defer reminders.Close()

	// approval core.
	coordinatorPhone := messaging.CleanPhone(config.AppConfig.CoordinatorPhone)
	senderRouter := approval.NewSenderRouter(coordinatorPhone, nil)
	composer := approval.NewComposer(config.AppConfig.ClinicName, config.AppConfig.ClientAckTemplate)
	workflow := &approval.DefaultApprovalWorkflow{
		Repo:      bookings,
		Sender:    sender,
		Extractor: extractor,
		Router:    senderRouter,
		Composer:  composer,
		Reminders: reminders,
		Logger:    logger,
	}

	// background reminder delivery.
	cron.InitReminderWorker(sender, composer)

	// Assemble the handler bundle.
	handlerBundle := &routes.HandlerBundle{
		Webhook: handlers.NewWebhookHandler(workflow, config.AppConfig.UltraMsgWebhookToken, logger),
		Booking: handlers.NewBookingHandler(bookings, logger),
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
