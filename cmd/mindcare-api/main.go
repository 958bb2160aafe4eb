package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/PabloGalante/mindcare/internal/adapters/http"
	"github.com/PabloGalante/mindcare/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/mindcare/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/mindcare/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/mindcare/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/mindcare/internal/analysis/stress"
	"github.com/PabloGalante/mindcare/internal/app/analysis"
	"github.com/PabloGalante/mindcare/internal/app/conversation"
	"github.com/PabloGalante/mindcare/internal/app/emergency"
	"github.com/PabloGalante/mindcare/internal/app/privacy"
	"github.com/PabloGalante/mindcare/internal/app/profile"
	"github.com/PabloGalante/mindcare/internal/config"
	"github.com/PabloGalante/mindcare/internal/domain"
	"github.com/PabloGalante/mindcare/internal/observability"
)

const shutdownTimeout = 10 * time.Second

type stores struct {
	sessions domain.SessionStore
	messages domain.MessageStore
	records  domain.RecordStore
	audit    domain.AuditSink
	close    func() error
}

func main() {
	cfg := config.Load()

	logCloser := observability.Setup(observability.LogOptions{
		Level: cfg.LogLevel,
		File:  cfg.LogFile,
	})
	defer logCloser.Close()

	logger := observability.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tables, err := config.LoadTables(cfg.TablesFile)
	if err != nil {
		log.Fatalf("error loading analysis tables: %v", err)
	}

	metrics := observability.NewMetrics()
	pipeline := analysis.NewPipeline(
		tables.Scorer,
		stress.NewAggregator(tables.Scanner, stress.WithHistoryWindow(cfg.HistoryWindow)),
		tables.Classifier,
		metrics,
	)

	keys, err := privacy.NewFileKeyProvider(cfg.KeyFile)
	if err != nil {
		log.Fatalf("error loading encryption key: %v", err)
	}
	logger.Info("content encryption key loaded", "version", keys.AdvanceTo(cfg.KeyVersion))
	cipher := privacy.NewCipher(keys)

	st, err := openStores(ctx, cfg, cipher)
	if err != nil {
		log.Fatalf("error initializing %s storage: %v", cfg.StorageBackend, err)
	}
	defer func() {
		if err := st.close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	privOpts := []privacy.Option{
		privacy.WithPolicies(tables.Policies),
		privacy.WithAuditSink(st.audit),
		privacy.WithMetrics(metrics),
	}
	// Firestore sweeps and erases its own timeline.
	if mr, ok := st.messages.(domain.MessageRetention); ok {
		privOpts = append(privOpts, privacy.WithMessageRetention(mr))
	}
	privSvc := privacy.NewService(st.records, cipher, privOpts...)

	// Choose between mock and Vertex (useful for dev)
	var llmClient domain.LLMClient
	if cfg.UseMockLLM {
		logger.Info("using mock LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		logger.Info("using Vertex LLM client", "model", cfg.ModelName, "location", cfg.GCPLocation)
		llmClient, err = llm.NewVertexClient(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			log.Fatalf("error initializing Vertex LLM client: %v", err)
		}
	}

	svc := conversation.NewService(llmClient, st.sessions, st.messages,
		conversation.WithPipeline(pipeline),
		conversation.WithProfiles(profile.NewRegistry()),
		conversation.WithEmergency(emergency.NewEngine(st.audit)),
		conversation.WithPrivacy(privSvc),
		conversation.WithMaxMessageChars(cfg.MaxMessageChars),
		conversation.WithHistoryWindow(cfg.HistoryWindow),
		conversation.WithDefaultCountry(cfg.DefaultCountry),
	)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: httpadapter.NewServer(svc,
			httpadapter.WithPrivacy(privSvc),
			httpadapter.WithMetrics(metrics),
			httpadapter.WithRateLimit(cfg.RateLimitPerMinute),
			httpadapter.WithTrustedProxies(cfg.TrustedProxies),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Mindcare API listening", "port", cfg.Port, "mode", string(cfg.Mode), "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		runSweeper(gctx, privSvc, svc, cfg)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

// runSweeper applies retention policies and drops idle session profiles once
// at startup and then every sweep interval.
func runSweeper(ctx context.Context, priv *privacy.Service, conv *conversation.Service, cfg *config.Config) {
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		if _, err := priv.Sweep(ctx); err != nil && ctx.Err() == nil {
			observability.Logger().Error("retention sweep failed", "error", err)
		}
		if n := conv.EvictIdleProfiles(cfg.ProfileIdleTTL); n > 0 {
			observability.Logger().Info("evicted idle session profiles", "count", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func openStores(ctx context.Context, cfg *config.Config, cipher *privacy.Cipher) (*stores, error) {
	logger := observability.Logger()

	switch cfg.StorageBackend {
	case config.BackendFirestore:
		logger.Info("using Firestore storage", "project", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID, firestorestore.WithSealer(cipher))
		if err != nil {
			return nil, err
		}
		// 1 store, implements every port
		return &stores{
			sessions: fsStore,
			messages: fsStore,
			records:  fsStore,
			audit:    fsStore,
			close:    fsStore.Close,
		}, nil

	case config.BackendSQLite:
		logger.Info("using SQLite record storage", "path", cfg.SQLitePath)
		db, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stores{
			sessions: memstore.NewSessionStore(),
			messages: memstore.NewMessageStore(),
			records:  db,
			audit:    db.AuditLog(),
			close:    db.Close,
		}, nil

	default:
		logger.Info("using in-memory storage")
		return &stores{
			sessions: memstore.NewSessionStore(),
			messages: memstore.NewMessageStore(),
			records:  memstore.NewRecordStore(),
			audit:    memstore.NewAuditLog(),
			close:    func() error { return nil },
		}, nil
	}
}
