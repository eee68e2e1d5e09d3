package main

import (
	"context"
	"log"
	"os"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/course-chat/config"
	"github.com/example/course-chat/modules/activity"
	"github.com/example/course-chat/modules/api"
	"github.com/example/course-chat/modules/auth"
	"github.com/example/course-chat/modules/broadcast"
	"github.com/example/course-chat/modules/chat"
)

func main() {
	log.Println("=== Course Chat - Fiber WebSocket + EventBus ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	logger := app.Logger()

	tokens := auth.NewJWTManager(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})

	chatOpts := []chat.Option{
		chat.WithSendBuffer(cfg.SendBuffer),
		chat.WithMaxMessageLength(cfg.MaxMessageLength),
	}
	if cfg.RequireAuth {
		chatOpts = append(chatOpts, chat.WithAuthorization(auth.RequireAuthenticated))
	}

	// Create modules
	broadcastModule := broadcast.NewModule(logger)
	chatModule := chat.NewModule(broadcastModule.GetHub(), logger, chatOpts...)
	activityModule := activity.NewModule(logger)
	apiModule := api.NewModule(cfg, tokens, logger)

	// The hub and manager are in-process objects, not services, so they are
	// handed to the API module directly.
	apiModule.SetHub(broadcastModule.GetHub())
	apiModule.SetManager(chatModule.Manager())

	// Register modules with the framework.
	// - broadcast: room membership and fan-out
	// - chat: connection manager, emits membership and message events
	// - activity: consumes chat events, serves per-room tallies
	// - api: Fiber HTTP/WebSocket server, depends on activity
	app.Register(broadcastModule)
	app.Register(chatModule)
	app.Register(activityModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s):", cfg.Port)
	log.Println("  /ws/chat/:courseId/      - Join the chat room of a course")
	log.Println("  Send:    {\"message\": \"hello\"}")
	log.Println("  Receive: {\"message\": \"hello\", \"username\": \"...\", \"user_id\": \"...\"}")
	log.Println("  Auth:    Authorization: Bearer <jwt>, ?token=<jwt> or access_token cookie")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", cfg.Port)
	log.Println("  GET    /health               - Health check")
	log.Println("  GET    /api/v1/rooms         - List active rooms")
	log.Println("  GET    /api/v1/rooms/:id     - Room members and activity")
	log.Println("")
	if cfg.RequireAuth {
		log.Println("Anonymous connections are rejected (CHAT_REQUIRE_AUTH=true)")
	}
	log.Println("Press Ctrl+C to shutdown gracefully")
}
