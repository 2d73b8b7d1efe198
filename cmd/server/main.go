package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EmilynnJ/ccodeseer/internal/config"
	"github.com/EmilynnJ/ccodeseer/internal/handler"
	"github.com/EmilynnJ/ccodeseer/internal/infrastructure/cache"
	"github.com/EmilynnJ/ccodeseer/internal/infrastructure/database"
	"github.com/EmilynnJ/ccodeseer/internal/infrastructure/eventbus"
	"github.com/EmilynnJ/ccodeseer/internal/infrastructure/mq"
	"github.com/EmilynnJ/ccodeseer/internal/infrastructure/payment"
	"github.com/EmilynnJ/ccodeseer/internal/job"
	"github.com/EmilynnJ/ccodeseer/internal/middleware"
	"github.com/EmilynnJ/ccodeseer/internal/repository"
	"github.com/EmilynnJ/ccodeseer/internal/service"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	cfg := config.Load(*configPath)

	db := database.Open(&cfg.MySQL)
	redisClient := cache.Open(&cfg.Redis)
	producer := mq.Open(&cfg.Kafka)
	defer producer.Close()

	bus := eventbus.New(redisClient)
	processor := payment.NewStubProcessor(&cfg.Payment)
	broker := service.NewTokenBroker(&cfg.RTC, &cfg.PubSub)

	notify := service.NewNotificationService(db, bus)
	presence := service.NewPresenceService(db, redisClient, bus)
	ledger := service.NewLedgerService(db, bus, cfg.Business.PlatformFeePercent)
	payments := service.NewPaymentService(db, processor, ledger, cfg.Business.MinPayout, cfg.Payment.WebhookSigningKey)
	reviews := service.NewReviewService(db, notify)
	messages := service.NewMessageService(db, bus)
	sessions := service.NewSessionService(db, redisClient, presence, broker, ledger, notify, bus, &cfg.Business)

	userRepo := repository.NewUserRepository(db)
	auth := middleware.NewAuth(cfg.Identity.VerificationKey, userRepo)
	limiter := middleware.NewRateLimiter(redisClient)

	h := handler.NewHandler(sessions, payments, presence, reviews, messages, notify)
	router := handler.SetupRouter(h, auth, limiter)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	outboxSender := job.NewOutboxSender(db, producer, cfg)
	go outboxSender.Start(ctx)

	pendingSweep := job.NewPendingSweepJob(sessions)
	go pendingSweep.Start(ctx)

	payoutScheduler := job.NewPayoutScheduler(db, ledger, notify, processor, &cfg.Business)
	go payoutScheduler.Start(ctx)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("[server] listening on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[server] failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[server] shutting down...")

	cancel()
	outboxSender.Stop()
	pendingSweep.Stop()
	payoutScheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown error: %v", err)
	}

	log.Println("[server] stopped")
}
