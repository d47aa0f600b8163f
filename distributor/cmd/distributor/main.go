package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	dapp "github.com/you-humble/tasksim/distributor/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	a := dapp.New(ctx)
	if err := a.Run(ctx); err != nil {
		log.Fatalln("distributor:", err)
	}
}
