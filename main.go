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

	"github.com/spf13/cobra"

	"github.com/xiaot623/mcpchat/internal/adapter/llm"
	"github.com/xiaot623/mcpchat/internal/config"
	"github.com/xiaot623/mcpchat/internal/service"
	"github.com/xiaot623/mcpchat/internal/store"
	transport "github.com/xiaot623/mcpchat/internal/transport/http"
	"github.com/xiaot623/mcpchat/internal/transport/ws"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcpchat",
		Short: "Persistent chat sessions with streaming completions",
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the chat service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcpchat %s (commit: %s)\n", Version, Commit)
		},
	}
}

func serve() error {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting mcpchat...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Store backend: %s", cfg.StoreBackend)
	log.Printf("LLM URL: %s", cfg.LLMBaseURL)

	// Initialize store
	st, err := store.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	// Initialize LLM client
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)

	// Initialize service
	svc := service.New(st, llmClient, cfg)

	// Create the HTTP server and attach the WebSocket transport
	e := transport.NewServer(svc)
	ws.NewServer(svc).RegisterRoutes(e)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down mcpchat...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("mcpchat stopped")
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
