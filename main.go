package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/flowgrid/flowgrid/plugins/http"
	"github.com/flowgrid/flowgrid/plugins/market"
	"github.com/flowgrid/flowgrid/runtime"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	app, err := runtime.NewApp(logger, "flows")
	if err != nil {
		log.Fatalf("Error initializing app: %v", err)
	}

	httpPlugin, err := http.New(nil)
	if err != nil {
		log.Fatalf("Error building http plugin: %v", err)
	}
	if err := app.RegisterPlugin(httpPlugin); err != nil {
		log.Fatalf("Error registering http plugin: %v", err)
	}
	if err := app.RegisterPlugin(market.New()); err != nil {
		log.Fatalf("Error registering market plugin: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Error starting plugins: %v", err)
	}
	defer func() {
		if err := app.Stop(context.Background()); err != nil {
			logger.Error("plugin teardown failed", "error", err)
		}
	}()

	g := gin.Default()
	runtime.NewHTTPHandler(app, g)

	if err := g.Run(":8080"); err != nil {
		log.Fatalf("Error running server: %v", err)
	}
}
