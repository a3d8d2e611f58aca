package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gwillem/kraken/pkg/teleop"
)

type RunCommand struct{}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	ctrl, err := newController(cfg, teleop.NewLogNotifier(logger), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Reset(ctx); err != nil {
		return err
	}
	logger.Info("press ctrl+c to stop")

	<-ctx.Done()
	return ctrl.Shutdown()
}
