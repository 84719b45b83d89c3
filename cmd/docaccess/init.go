package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"docaccess/internal/adapter/backend"
	"docaccess/internal/adapter/store"
	"docaccess/internal/domain"
	"docaccess/internal/infra/config"
	"docaccess/internal/infra/logger"
	"docaccess/internal/infra/tracer"
	"docaccess/internal/usecase"
	"docaccess/internal/usecase/eventbus"
)

// cli holds everything a subcommand needs.
type cli struct {
	cfg       *config.Config
	log       *slog.Logger
	out       io.Writer
	state     *usecase.App
	client    *backend.Client
	services  usecase.Services
	processor *usecase.Processor
	chat      *usecase.ChatService
}

// service returns the backend implementation selected by the demo-mode preference.
func (c *cli) service() domain.DocumentService {
	return c.services.For(c.state.Preferences())
}

// initCLI wires config into logger, tracer, storage, backend and the client
// state, then hydrates the state from storage.
func initCLI(ctx context.Context, cfg *config.Config, out io.Writer) (*cli, func(), error) {
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		logCloser()
		return nil, nil, fmt.Errorf("tracer: %w", err)
	}

	kv, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		tracerShutdown(ctx)
		logCloser()
		return nil, nil, fmt.Errorf("storage: %w", err)
	}
	st := store.NewAdapter(kv, log)

	bus := eventbus.New(log)
	bus.SubscribeAll(func(_ context.Context, ev domain.Event) {
		log.Debug("event", "type", ev.Type, "payload", string(ev.Payload))
	})

	client := backend.NewClient(cfg.Backend, log)
	services := usecase.Services{
		Live: backend.NewService(client, cfg.Backend.LanguagesTTL, log),
		Demo: backend.NewDemoService(),
	}

	state := usecase.NewApp(usecase.AppDeps{
		Store:    st,
		Bus:      bus,
		Logger:   log,
		Defaults: cfg.DefaultPreferences(),
	})
	state.OnPreferencesChanged(func(_ context.Context, old, next domain.Preferences) {
		if old.APIBaseURL == next.APIBaseURL {
			return
		}
		if err := client.SetBaseURL(next.APIBaseURL); err != nil {
			log.Warn("backend base url not applied", "url", next.APIBaseURL, "error", err)
		}
	})
	state.Hydrate(ctx)
	restoreCurrent(ctx, state, st, log)

	c := &cli{
		cfg:      cfg,
		log:      log,
		out:      out,
		state:    state,
		client:   client,
		services: services,
		processor: usecase.NewProcessor(state, services, usecase.Limits{
			MaxFileSize:   cfg.Limits.MaxFileSize,
			MaxTextLength: cfg.Limits.MaxTextLength,
			MaxAudioSize:  cfg.Limits.MaxAudioSize,
		}, log),
		chat: usecase.NewChatService(state, services, log),
	}

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		saveCurrent(shutdownCtx, state, st)
		bus.Drain()
		bus.Close()
		if err := st.Close(); err != nil {
			log.Warn("close storage", "error", err)
		}
		if err := tracerShutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown", "error", err)
		}
		logCloser()
	}
	return c, cleanup, nil
}

// currentKey holds the current document id between runs. The App keeps the
// selection in memory only; each CLI invocation is a new process.
const currentKey = "docaccess_current"

type currentRecord struct {
	ID string `json:"id"`
}

// restoreCurrent reselects the document that was current when the previous
// run exited. A stale id is ignored.
func restoreCurrent(ctx context.Context, state *usecase.App, st domain.StateStore, log *slog.Logger) {
	rec := store.Load(ctx, st, currentKey, currentRecord{})
	if rec.ID == "" {
		return
	}
	if _, err := state.SelectDocument(ctx, rec.ID); err != nil {
		log.Debug("stored current document not restored", "id", rec.ID, "error", err)
	}
}

// saveCurrent records the current document id, or forgets it after logout or
// removal.
func saveCurrent(ctx context.Context, state *usecase.App, st domain.StateStore) {
	if doc, ok := state.CurrentDocument(); ok {
		store.Save(ctx, st, currentKey, currentRecord{ID: doc.ID})
		return
	}
	st.Remove(ctx, currentKey)
}

// openStorage opens the configured KV medium, sealing values when
// encryption is enabled.
func openStorage(ctx context.Context, cfg config.StorageConfig) (domain.KVStore, error) {
	kv, err := store.Open(cfg.Backend, cfg.DataDir, cfg.SQLitePath)
	if err != nil || !cfg.Encrypt {
		return kv, err
	}
	enc, err := store.NewEncryptedStore(ctx, kv, cfg.Passphrase)
	if err != nil {
		if c, ok := kv.(io.Closer); ok {
			c.Close()
		}
		return nil, err
	}
	return enc, nil
}
