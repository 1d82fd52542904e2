package main

import (
	"context"
	"time"

	"github.com/niksmo/chatshop/config"
	"github.com/niksmo/chatshop/internal/app"
	"github.com/niksmo/chatshop/pkg/sigctx"
)

const closeTimeout = 10 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	shop := app.New(sigCtx, cfg)

	shop.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	shop.Close(ctx)
}
