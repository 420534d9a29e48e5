package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaot623/gogo/callcontrol/internal/adapter/asterisk"
	"github.com/xiaot623/gogo/callcontrol/internal/adapter/notifier"
	"github.com/xiaot623/gogo/callcontrol/internal/config"
	"github.com/xiaot623/gogo/callcontrol/internal/policy"
	"github.com/xiaot623/gogo/callcontrol/internal/repository"
	"github.com/xiaot623/gogo/callcontrol/internal/service"
	handler "github.com/xiaot623/gogo/callcontrol/internal/transport/http"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting call control...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Store driver: %s", cfg.StoreDriver)
	log.Printf("Conversation dir: %s", cfg.ConversationDir)
	log.Printf("AMI address: %s", cfg.AMIAddr)

	// Initialize store (creates the conversation directory)
	db, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize telephony engine client
	engine := asterisk.NewClient(cfg)

	// Initialize completion webhook client
	webhooks := notifier.NewClient(cfg.NotifyTimeout)

	// Initialize dial policy
	ctx := context.Background()
	policyEngine, err := policy.Load(ctx, cfg.DialPolicyFile)
	if err != nil {
		log.Fatalf("Failed to initialize dial policy: %v", err)
	}

	// Initialize service
	svc := service.New(db, engine, webhooks, cfg, policyEngine)

	server := handler.NewServer(svc)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Call control API listening on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down call control...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	// Let pending completion callbacks finish before the store closes.
	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Printf("WARN: shutdown deadline reached with callbacks still pending")
	}

	log.Println("Call control stopped")
}
