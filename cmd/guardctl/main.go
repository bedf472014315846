package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophguard/internal/client/cli"
	"github.com/dmitrijs2005/gophguard/internal/client/config"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	code := cli.NewApp(cfg).Run(ctx, os.Args[1:])
	stop()
	os.Exit(code)

}
