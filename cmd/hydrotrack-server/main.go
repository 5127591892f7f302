package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hydrotrack/internal/api"
	"hydrotrack/internal/app"
	"hydrotrack/internal/assistant"
	"hydrotrack/internal/autolog"
	"hydrotrack/internal/config"
	"hydrotrack/internal/llm"
	"hydrotrack/internal/telegram"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 2. Open storage and load state
	rt, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer rt.Close()

	// 3. Assistant (optional)
	var (
		chat      *assistant.Conversation
		sessions  *telegram.SessionRepository
		chatModel llm.ChatClient
	)
	if chatModel, err = llm.NewChatClient(ctx, cfg); err != nil {
		log.Printf("Assistant disabled: %v", err)
	} else {
		defer chatModel.Close()
		newConversation := func() *assistant.Conversation {
			return assistant.New(chatModel, rt.Metrics, rt.Collectors, nil)
		}
		chat = newConversation()
		sessions = telegram.NewSessionRepository(newConversation, telegram.DefaultSessionTTL, nil)
	}

	// 4. HTTP API
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	api.NewHandler(rt.App, chat, rt.Collectors, rt.DataPath).Register(e)

	// 5. Telegram Bot (optional)
	if err := cfg.RequireTelegram(); err != nil {
		log.Printf("Telegram bot disabled: %v", err)
	} else {
		bot, err := telegram.NewBot(cfg, rt.App, sessions, rt.Metrics)
		if err != nil {
			log.Fatalf("Failed to initialize Telegram Bot: %v", err)
		}
		if bot.UsesWebhook() {
			e.POST("/webhook", echo.WrapHandler(bot.WebhookHandler()))
		} else {
			go bot.Poll(ctx)
		}
	}

	// 6. Background workers
	go autolog.NewRunner(rt.App, autolog.TickInterval).Run(ctx)
	if sessions != nil {
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if n := sessions.CleanupExpired(); n > 0 {
						log.Printf("Dropped %d idle chat sessions", n)
					}
				}
			}
		}()
	}

	// 7. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: e,
	}

	go func() {
		log.Printf("HydroTrack server listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")
	stop()

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
