package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"

	"docaccess/internal/domain"
	"docaccess/internal/infra/logger"
)

// AppDeps holds injected dependencies for the client state container.
type AppDeps struct {
	Store    domain.StateStore  // nil = nothing is persisted
	Bus      domain.EventBus    // optional, nil = no events
	Logger   *slog.Logger       // optional
	Defaults domain.Preferences // zero value = domain.DefaultPreferences()
	Now      func() time.Time   // optional, for tests
}

// PreferencesReaction runs after a preference change has been applied.
// Reactions run in registration order and must not mutate preferences.
type PreferencesReaction func(ctx context.Context, old, next domain.Preferences)

type reaction struct {
	id int
	fn PreferencesReaction
}

// App owns the client state: the session, preferences, the document history,
// the current document and its chat transcript. All methods are safe for
// concurrent use.
type App struct {
	deps AppDeps

	mu        sync.RWMutex
	session   domain.Session
	prefs     domain.Preferences
	documents []domain.ProcessedDocument // newest first
	current   *domain.ProcessedDocument
	chat      []domain.ChatMessage

	// prefMu serialises preference updates with their reactions so that
	// persisted preferences always match the last applied change.
	prefMu    sync.Mutex
	reactions []reaction
	nextRxn   int

	hydrateOnce sync.Once
	hydrated    bool
	ready       chan struct{}
}

// NewApp creates an App holding the default preferences and an empty history.
// Call Hydrate before relying on persisted state.
func NewApp(deps AppDeps) *App {
	if deps.Store == nil {
		deps.Store = nopStore{}
	}
	deps.Logger = logger.OrDiscard(deps.Logger)
	if deps.Defaults == (domain.Preferences{}) {
		deps.Defaults = domain.DefaultPreferences()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &App{
		deps:  deps,
		prefs: deps.Defaults,
		ready: make(chan struct{}),
	}
}

// Hydrate restores the session, documents and preferences from the store.
// It runs once; later calls return immediately. Preference reactions fire if
// the restored preferences differ from the in-memory ones, and persistence of
// preference changes starts only after hydration.
func (a *App) Hydrate(ctx context.Context) {
	a.hydrateOnce.Do(func() { a.hydrate(ctx) })
}

func (a *App) hydrate(ctx context.Context) {
	var auth domain.AuthRecord
	hasAuth := a.deps.Store.Decode(ctx, domain.StorageKeyAuth, &auth)
	if hasAuth && !auth.Valid() {
		a.deps.Logger.Warn("stored session is inconsistent, ignoring")
		hasAuth = false
	}

	docs, hasDocs := a.restoreDocuments(ctx)

	a.prefMu.Lock()
	defer a.prefMu.Unlock()

	a.mu.Lock()
	var rec domain.PreferencesRecord
	old := a.prefs
	next := old
	if a.deps.Store.Decode(ctx, domain.StorageKeyPreferences, &rec) {
		next = rec.Merge(a.deps.Defaults)
	}
	a.prefs = next
	if hasAuth {
		u := *auth.User
		a.session = domain.Session{IsAuthenticated: true, User: &u}
	}
	if hasDocs {
		a.documents = docs
	}
	a.hydrated = true
	session := a.sessionLocked()
	reactions := slices.Clone(a.reactions)
	a.reactions = append(a.reactions, reaction{id: a.nextReactionID(), fn: a.persistPreferences})
	a.mu.Unlock()

	if next != old {
		for _, r := range reactions {
			r.fn(ctx, old, next)
		}
		a.publish(ctx, domain.EventPreferencesChanged, next)
	}
	if hasAuth {
		a.publishSession(ctx, session)
	}
	close(a.ready)

	a.deps.Logger.Debug("state hydrated",
		"authenticated", session.IsAuthenticated,
		"documents", len(docs),
	)
}

// restoreDocuments decodes the stored history entry by entry so that one
// corrupt entry does not discard the rest.
func (a *App) restoreDocuments(ctx context.Context) ([]domain.ProcessedDocument, bool) {
	var raw []json.RawMessage
	if !a.deps.Store.Decode(ctx, domain.StorageKeyDocuments, &raw) {
		return nil, false
	}
	docs := make([]domain.ProcessedDocument, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for i, entry := range raw {
		var doc domain.ProcessedDocument
		if err := json.Unmarshal(entry, &doc); err != nil || doc.ID == "" {
			a.deps.Logger.Warn("skipping corrupt stored document", "index", i, "error", err)
			continue
		}
		if seen[doc.ID] {
			a.deps.Logger.Warn("skipping duplicate stored document", "id", doc.ID)
			continue
		}
		seen[doc.ID] = true
		docs = append(docs, doc.Normalize())
	}
	return docs, true
}

// Hydrated reports whether Hydrate has completed.
func (a *App) Hydrated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.hydrated
}

// Ready is closed once Hydrate has completed.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// Subscribe registers handler for events of type t on the App's bus.
func (a *App) Subscribe(t domain.EventType, handler domain.EventHandler) func() {
	if a.deps.Bus == nil {
		return func() {}
	}
	return a.deps.Bus.Subscribe(t, handler)
}

func (a *App) publish(ctx context.Context, t domain.EventType, payload any) {
	if a.deps.Bus == nil {
		return
	}
	a.deps.Bus.Publish(ctx, domain.NewEvent(t, payload))
}

func (a *App) nextReactionID() int {
	a.nextRxn++
	return a.nextRxn
}

// nopStore is used when no store is configured.
type nopStore struct{}

func (nopStore) Decode(context.Context, string, any) bool { return false }
func (nopStore) Encode(context.Context, string, any)      {}
func (nopStore) Remove(context.Context, string)           {}
