package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/VinayJogani14/Supply-Chain-Management/internal/config"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/server"
	"github.com/VinayJogani14/Supply-Chain-Management/internal/util"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger"
	"github.com/VinayJogani14/Supply-Chain-Management/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  debug,
		Format: util.GetEnv("LOG_FORMAT"),
	})
	logger.Init(consoleLogger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.Init(ctx, cfg)
}
