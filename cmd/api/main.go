package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"
	"vance/internal/config"
	"vance/internal/database"
	"vance/internal/database/repositories"
	"vance/internal/logger"
	"vance/internal/mailer"
	"vance/internal/server"
	"vance/internal/services"

	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load config")
	}
	logger.Init(cfg.Log)

	if err := run(cfg); err != nil {
		logrus.WithError(err).Fatal("server stopped with error")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := database.Migrate(cfg.DSN()); err != nil {
		return err
	}

	db, err := database.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sender, err := mailer.New(cfg.Mail)
	if err != nil {
		return err
	}

	repos := repositories.NewManager()
	accounts := services.NewAccountService(db.DB(), repos, sender, cfg)
	notes := services.NewNoteService(db.DB(), repos, accounts)
	app := server.New(cfg, db, accounts, notes)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logrus.WithField("addr", addr).Info("starting http server")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logrus.WithError(err).Error("http server shutdown failed")
	}

	if err := <-errCh; err != nil {
		logrus.WithError(err).Warn("listener returned after shutdown")
	}
	return nil
}
