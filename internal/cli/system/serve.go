package system

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/daychain/internal/api"
	"github.com/julianstephens/daychain/internal/cli"
	"github.com/julianstephens/daychain/internal/metrics"
)

// ServeCmd runs the HTTP API until interrupted.
type ServeCmd struct {
	Addr      string   `help:"Listen address. Overrides server.addr from the engine config."`
	RateLimit *float64 `help:"Requests per second across all clients. Zero disables limiting." name:"rate-limit"`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	settings, err := ctx.Settings(sigCtx)
	if err != nil {
		return err
	}

	cfg := ctx.Config.Server
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.RateLimit != nil {
		cfg.RateLimit = *c.RateLimit
	}
	if ctx.Metrics == nil {
		ctx.Metrics = metrics.New()
	}

	srv := api.NewServer(ctx.Store, ctx.Builder(settings), ctx.Metrics, cfg)
	ctx.Printf("Serving daychain API on http://%s (user %s)\n", cfg.Addr, settings.UserID)
	return srv.ListenAndServe(sigCtx)
}
