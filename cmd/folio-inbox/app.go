package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/PabloGalante/folio-inbox/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/folio-inbox/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/folio-inbox/internal/adapters/storage/memory"
	"github.com/PabloGalante/folio-inbox/internal/adapters/storage/sqlstore"
	"github.com/PabloGalante/folio-inbox/internal/app/inbox"
	"github.com/PabloGalante/folio-inbox/internal/config"
	"github.com/PabloGalante/folio-inbox/internal/domain"
	"github.com/PabloGalante/folio-inbox/internal/observability"
)

// app holds everything a subcommand needs, built once from the config.
type app struct {
	cfg *config.Config
	svc *inbox.Service

	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	log := observability.Logger()
	a := &app{cfg: cfg}

	var (
		messages domain.MessageStore
		accounts domain.AccountStore
	)

	switch cfg.StorageBackend {
	case config.BackendFirestore:
		log.Info("using firestore storage", "project", cfg.GCPProjectID)
		fs, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("initializing firestore store: %w", err)
		}
		a.closers = append(a.closers, fs.Close)
		// 1 store, implements 2 interfaces
		messages, accounts = fs, fs

	case config.BackendSQLite, config.BackendPostgres:
		dialect, dsn := sqlstore.DialectSQLite, cfg.SQLitePath
		if cfg.StorageBackend == config.BackendPostgres {
			dialect, dsn = sqlstore.DialectPostgres, cfg.PostgresURL
		}
		log.Info("using sql storage", "dialect", dialect)
		st, err := sqlstore.Open(ctx, dialect, dsn)
		if err != nil {
			return nil, fmt.Errorf("initializing sql store: %w", err)
		}
		a.closers = append(a.closers, st.Close)
		messages, accounts = st, st

	default:
		log.Info("using in-memory storage")
		messages = memstore.NewMessageStore()
		accounts = memstore.NewAccountStore()
	}

	var drafter domain.ReplyDrafter
	if cfg.MockLLM() {
		log.Info("using mock reply drafter")
		drafter = llm.NewMockDrafter()
	} else {
		log.Info("using vertex reply drafter", "model", cfg.ModelName, "location", cfg.GCPLocation)
		v, err := llm.NewVertexDrafter(ctx, cfg.GCPProjectID, cfg.GCPLocation, cfg.ModelName)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("initializing vertex drafter: %w", err)
		}
		drafter = v
	}

	resolver := inbox.NewAdminResolver(accounts, domain.AccountID(cfg.AdminFallbackID), cfg.AdminOrderByCreated)
	a.svc = inbox.NewService(messages, inbox.NewSession(resolver), drafter, inbox.Options{
		Policies:        policiesFrom(cfg),
		DefaultPageSize: cfg.PageSize,
	})
	return a, nil
}

func policiesFrom(cfg *config.Config) inbox.Policies {
	conv := func(c config.CallConfig) inbox.CallPolicy {
		return inbox.CallPolicy{
			Timeout:        c.Timeout,
			MaxAttempts:    c.MaxAttempts,
			InitialBackoff: c.InitialBackoff,
		}
	}
	return inbox.Policies{
		Read:  conv(cfg.ReadPolicy),
		Write: conv(cfg.WritePolicy),
	}
}
