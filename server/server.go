package server

import (
	"context"
	"database/sql"
	"embed"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pupscribe/orderform/pkg"
)

//go:embed schema.sql
var schema embed.FS

type Server struct {
	db        *sql.DB
	config    pkg.Config
	redis     *redis.Client
	zoho      *ZohoClient
	notifier  *Notifier
	reminders *ReminderScheduler
	cron      *cron.Cron
	Logger    *zap.SugaredLogger
}

func NewServer(cfg pkg.Config) *Server {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	sugar := logger.Sugar()

	if err := os.MkdirAll(cfg.RootDir, 0755); err != nil {
		sugar.Fatalf("Failed to create data directory: %v", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(cfg.RootDir, "orderform.db")+"?_foreign_keys=on")
	if err != nil {
		sugar.Fatalf("Failed to open database: %v", err)
	}

	schemaBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		sugar.Fatalf("Failed to read schema file: %v", err)
	}

	if _, err := db.Exec(string(schemaBytes)); err != nil {
		sugar.Fatalf("Failed to create database schema: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		sugar.Warnf("Redis unavailable at %s, token cache falls back to memory: %v", cfg.RedisAddr, err)
	}

	notifier := NewNotifier(cfg, sugar)

	s := &Server{
		db:       db,
		config:   cfg,
		redis:    rdb,
		zoho:     NewZohoClient(cfg.Zoho, rdb, sugar),
		notifier: notifier,
		cron:     cron.New(),
		Logger:   sugar,
	}
	s.reminders = NewReminderScheduler(db, notifier, sugar)

	return s
}

// Start launches the background machinery: the payment-reminder dispatcher
// and the nightly Zoho sync jobs.
func (s *Server) Start() {
	s.reminders.Start()

	s.cron.AddFunc("0 2 * * *", func() {
		if _, err := s.RunProductSync(context.Background()); err != nil {
			s.Logger.Errorf("Product sync failed: %v", err)
		}
	})
	s.cron.AddFunc("30 2 * * *", func() {
		if _, err := s.RunInvoiceSync(context.Background()); err != nil {
			s.Logger.Errorf("Invoice sync failed: %v", err)
		}
	})
	s.cron.Start()

	s.Logger.Infof("Background jobs started")
}

func (s *Server) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.reminders != nil {
		s.reminders.Stop()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	s.Logger.Sync()
}
