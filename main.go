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

	"github.com/Anand101094/buzz-app-server/internal/config"
	"github.com/Anand101094/buzz-app-server/internal/handlers"
	"github.com/Anand101094/buzz-app-server/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	metrics := services.NewMetrics()
	hub := services.NewHub(metrics)
	registry := services.NewRegistry(hub, metrics)
	index := services.NewConnIndex()
	dispatcher := services.NewDispatcher(registry, index, hub)
	hub.SetHandler(dispatcher)

	go hub.Run()

	wsHandler := handlers.NewWSHandler(hub, cfg.AllowedOrigins)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)
	mux.HandleFunc("GET /host", handlers.WithCORS(handlers.HandleHostRoom()))
	mux.HandleFunc("GET /metrics", handlers.HandleMetrics(metrics))
	mux.HandleFunc("GET /healthz", handlers.HandleHealth(metrics))

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: mux,
	}

	go func() {
		log.Printf("listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
