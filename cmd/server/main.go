package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/gophauth/internal/buildinfo"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server"
	"github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger := logging.NewJSON(os.Stdout, cfg.LogLevel).With("app", "gophauth")

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "startup failed", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped", "error", err)
		os.Exit(1)
	}

}
