package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/auth"
	"github.com/tarikbs/repairdesk/internal/config"
	"github.com/tarikbs/repairdesk/internal/db"
	"github.com/tarikbs/repairdesk/internal/models"
	"github.com/tarikbs/repairdesk/internal/policy"
)

var migrateOnly = flag.Bool("migrate-only", false, "run database migrations and exit")

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg := config.Load()
	config.InitLogger(cfg.App.Dev)
	log := config.Log

	dsn := db.NormalizeDSN(cfg.Database.DSN)
	conn, err := db.Connect(dsn)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	if err := db.Migrate(conn, dsn, cfg.App.Migrations); err != nil {
		log.WithError(err).Fatal("migrations failed")
	}
	if *migrateOnly {
		log.Info("migrations completed, exiting")
		return
	}
	if cfg.App.Seed {
		if err := db.Seed(conn); err != nil {
			log.WithError(err).Fatal("seeding failed")
		}
	}

	// Sessions for deleted users are rejected at the door.
	auth.SetUserVerifier(func(ctx context.Context, uid uint) bool {
		var n int64
		if err := conn.WithContext(ctx).Model(&models.User{}).Where("id = ?", uid).Count(&n).Error; err != nil {
			return false
		}
		return n > 0
	})

	routerCfg := policy.NewRouterConfig(conn, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      newRouter(routerCfg, log),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Whichever way we go down, tear down in order: drain HTTP, stop the
	// watchers and feed, then close the database.
	select {
	case err := <-serverErr:
		log.WithError(err).Error("server error")
	case <-quit:
		log.Info("shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("shutdown error")
		}
	}
	routerCfg.Shutdown()
	closeDB(conn)
	log.Info("server stopped")
}

func closeDB(conn *gorm.DB) {
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
