package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pupscribe/orderform/pkg"
	"github.com/pupscribe/orderform/server"
)

func main() {
	cfg, err := pkg.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	orderServer := server.NewServer(cfg)
	defer orderServer.Stop()

	orderServer.Start()

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: orderServer.Router(),
	}

	go func() {
		orderServer.Logger.Infof("orderformd started on http://0.0.0.0%s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			orderServer.Logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	orderServer.Logger.Infof("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		orderServer.Logger.Errorf("Forced shutdown: %v", err)
	}
}
