package main

import (
	"context"
	"os"
	"os/signal"
	"simple-ledger-go/cli"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Run(ctx, os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("ledger node failed")
	}
}
