package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"docaccess/internal/adapter/store"
	"docaccess/internal/domain"
	"docaccess/internal/usecase/eventbus"
)

func TestLoginRequiresCredentials(t *testing.T) {
	app, kv := hydratedApp(t)
	ctx := context.Background()

	for _, tc := range []struct{ email, password string }{
		{"", "secret"},
		{"a@b.c", ""},
		{"", ""},
	} {
		err := app.Login(ctx, tc.email, tc.password)
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Errorf("Login(%q, %q) = %v, want ErrInvalidCredentials", tc.email, tc.password, err)
		}
	}
	if app.Session().IsAuthenticated {
		t.Error("failed login must not authenticate")
	}
	if got := stored(t, kv, domain.StorageKeyAuth); got != "" {
		t.Errorf("auth persisted after failed login: %s", got)
	}
}

func TestLoginDerivesNameAndPersists(t *testing.T) {
	app, kv := hydratedApp(t)
	if err := app.Login(context.Background(), "asha.rao@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	s := app.Session()
	if !s.IsAuthenticated || s.User == nil {
		t.Fatalf("session = %+v, want authenticated", s)
	}
	if s.User.Name != "asha.rao" {
		t.Errorf("Name = %q, want asha.rao", s.User.Name)
	}

	var rec domain.AuthRecord
	if err := json.Unmarshal([]byte(stored(t, kv, domain.StorageKeyAuth)), &rec); err != nil {
		t.Fatalf("stored auth: %v", err)
	}
	if !rec.Valid() || rec.User.Email != "asha.rao@example.com" {
		t.Errorf("stored auth = %+v", rec)
	}
}

func TestSessionSnapshotIsACopy(t *testing.T) {
	app, _ := hydratedApp(t)
	app.GuestLogin(context.Background())

	s := app.Session()
	s.User.Name = "mutated"
	if app.Session().User.Name != domain.GuestUser.Name {
		t.Error("mutating a snapshot changed the session")
	}
}

func TestRegister(t *testing.T) {
	app, _ := hydratedApp(t)
	ctx := context.Background()

	if err := app.Register(ctx, "a@b.c", "", "pw"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("empty name: err = %v, want ErrInvalidInput", err)
	}
	if err := app.Register(ctx, "a@b.c", "Asha", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if got := app.Session().User.Name; got != "Asha" {
		t.Errorf("Name = %q, want Asha", got)
	}
}

func TestGuestLogin(t *testing.T) {
	app, _ := hydratedApp(t)
	app.GuestLogin(context.Background())

	s := app.Session()
	if !s.IsAuthenticated || *s.User != domain.GuestUser {
		t.Errorf("session = %+v, want guest", s)
	}
	if err := app.RequireSession(); err != nil {
		t.Errorf("RequireSession: %v", err)
	}
}

func TestLogoutKeepsHistoryAndPreferences(t *testing.T) {
	app, kv := hydratedApp(t)
	ctx := context.Background()

	app.GuestLogin(ctx)
	app.SetLanguage(ctx, "ta")
	doc, err := app.AddDocument(ctx, domain.ProcessedDocument{OriginalText: "hello"})
	if err != nil {
		t.Fatalf("AddDocument: %v", err)
	}
	app.AddChatMessage(ctx, domain.ChatMessage{Role: domain.ChatRoleUser, Content: "hi"})

	app.Logout(ctx)

	if app.Session().IsAuthenticated {
		t.Error("still authenticated after logout")
	}
	if err := app.RequireSession(); !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Errorf("RequireSession = %v, want ErrNotAuthenticated", err)
	}
	if _, ok := app.CurrentDocument(); ok {
		t.Error("current document survived logout")
	}
	if n := len(app.ChatMessages()); n != 0 {
		t.Errorf("chat has %d messages after logout", n)
	}
	if docs := app.Documents(); len(docs) != 1 || docs[0].ID != doc.ID {
		t.Errorf("documents = %v, want the one added", docs)
	}
	if app.Preferences().Language != "ta" {
		t.Error("preferences lost on logout")
	}
	if got := stored(t, kv, domain.StorageKeyAuth); got != "" {
		t.Errorf("auth key still stored: %s", got)
	}
	if stored(t, kv, domain.StorageKeyDocuments) == "" || stored(t, kv, domain.StorageKeyPreferences) == "" {
		t.Error("documents or preferences removed from storage on logout")
	}
}

func TestHydrateRestoresPersistedState(t *testing.T) {
	kv := store.NewMemoryStore()
	putJSON(t, kv, domain.StorageKeyAuth, `{"user":{"email":"a@b.c","name":"a"},"isAuthenticated":true}`)
	putJSON(t, kv, domain.StorageKeyPreferences, `{"language":"hi","theme":"dark"}`)
	putJSON(t, kv, domain.StorageKeyDocuments, `[
		{"id":"doc-2","originalText":"second","translatedText":"","simplifiedText":"","aiAnalysis":{"type":"x"},"language":"hi","domain":"medical","timestamp":"2024-05-01T10:00:00.123Z"},
		"not a document",
		{"id":"doc-1","originalText":"first","translatedText":"","simplifiedText":"","language":"en","domain":"government","timestamp":"2024-04-01T08:30:00Z"}
	]`)

	app := newTestApp(t, kv)
	if app.Hydrated() {
		t.Fatal("hydrated before Hydrate")
	}
	app.Hydrate(context.Background())

	select {
	case <-app.Ready():
	default:
		t.Fatal("Ready not closed after Hydrate")
	}
	if !app.Hydrated() {
		t.Fatal("Hydrated() = false")
	}

	if s := app.Session(); !s.IsAuthenticated || s.User.Email != "a@b.c" {
		t.Errorf("session = %+v", s)
	}

	prefs := app.Preferences()
	want := domain.DefaultPreferences()
	want.Language = "hi"
	want.Theme = domain.ThemeDark
	if prefs != want {
		t.Errorf("prefs = %+v, want %+v", prefs, want)
	}

	docs := app.Documents()
	if len(docs) != 2 || docs[0].ID != "doc-2" || docs[1].ID != "doc-1" {
		t.Fatalf("documents = %+v, want doc-2, doc-1", docs)
	}
	wantTS := time.Date(2024, 5, 1, 10, 0, 0, 123_000_000, time.UTC)
	if !docs[0].Timestamp.Equal(wantTS) {
		t.Errorf("timestamp = %v, want %v", docs[0].Timestamp, wantTS)
	}
	if !docs[0].HasAnalysis() || docs[1].HasAnalysis() {
		t.Error("analysis payloads not restored as stored")
	}
	if string(docs[1].AIAnalysis) != "null" {
		t.Errorf("missing analysis = %s, want null", docs[1].AIAnalysis)
	}
}

func TestHydrateIgnoresInconsistentSession(t *testing.T) {
	kv := store.NewMemoryStore()
	putJSON(t, kv, domain.StorageKeyAuth, `{"user":null,"isAuthenticated":true}`)

	app := newTestApp(t, kv)
	app.Hydrate(context.Background())
	if app.Session().IsAuthenticated {
		t.Error("session restored without a user")
	}
}

func TestHydrateCorruptValuesFallBackToDefaults(t *testing.T) {
	kv := store.NewMemoryStore()
	putJSON(t, kv, domain.StorageKeyAuth, `{broken`)
	putJSON(t, kv, domain.StorageKeyPreferences, `[1,2]`)
	putJSON(t, kv, domain.StorageKeyDocuments, `{"not":"a list"}`)

	app := newTestApp(t, kv)
	app.Hydrate(context.Background())

	if app.Session().IsAuthenticated {
		t.Error("corrupt auth produced a session")
	}
	if app.Preferences() != domain.DefaultPreferences() {
		t.Errorf("prefs = %+v, want defaults", app.Preferences())
	}
	if n := len(app.Documents()); n != 0 {
		t.Errorf("documents = %d, want 0", n)
	}
}

func TestHydrateRunsOnce(t *testing.T) {
	kv := store.NewMemoryStore()
	app := newTestApp(t, kv)
	app.Hydrate(context.Background())

	putJSON(t, kv, domain.StorageKeyAuth, `{"user":{"email":"late@b.c","name":"late"},"isAuthenticated":true}`)
	app.Hydrate(context.Background())
	if app.Session().IsAuthenticated {
		t.Error("second Hydrate re-read storage")
	}
}

func TestHydrateConcurrentCallers(t *testing.T) {
	app := newTestApp(t, nil)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.Hydrate(context.Background())
		}()
	}
	wg.Wait()
	<-app.Ready()
}

func TestPreferencesPersistOnlyAfterHydrate(t *testing.T) {
	kv := store.NewMemoryStore()
	app := newTestApp(t, kv)
	ctx := context.Background()

	app.SetLanguage(ctx, "bn")
	if got := stored(t, kv, domain.StorageKeyPreferences); got != "" {
		t.Fatalf("preferences persisted before hydration: %s", got)
	}

	app.Hydrate(ctx)
	app.SetLanguage(ctx, "ta")

	var rec domain.PreferencesRecord
	if err := json.Unmarshal([]byte(stored(t, kv, domain.StorageKeyPreferences)), &rec); err != nil {
		t.Fatalf("stored preferences: %v", err)
	}
	if got := rec.Merge(domain.Preferences{}); got != app.Preferences() {
		t.Errorf("stored %+v, want full object %+v", got, app.Preferences())
	}
}

func TestHydrateFiresReactionsForRestoredPreferences(t *testing.T) {
	kv := store.NewMemoryStore()
	putJSON(t, kv, domain.StorageKeyPreferences, `{"apiBaseUrl":"http://10.0.0.2:9000"}`)
	app := newTestApp(t, kv)

	var got []string
	app.OnPreferencesChanged(func(_ context.Context, old, next domain.Preferences) {
		got = append(got, old.APIBaseURL+" -> "+next.APIBaseURL)
	})
	app.Hydrate(context.Background())

	want := domain.DefaultAPIBaseURL + " -> http://10.0.0.2:9000"
	if len(got) != 1 || got[0] != want {
		t.Errorf("reactions = %v, want [%s]", got, want)
	}
	if stored(t, kv, domain.StorageKeyPreferences) != `{"apiBaseUrl":"http://10.0.0.2:9000"}` {
		t.Error("hydration rewrote the stored preferences")
	}
}

func TestPreferenceReactionsRunOnlyOnChange(t *testing.T) {
	app, _ := hydratedApp(t)
	ctx := context.Background()

	calls := 0
	unregister := app.OnPreferencesChanged(func(context.Context, domain.Preferences, domain.Preferences) { calls++ })

	app.SetLanguage(ctx, app.Preferences().Language)
	if calls != 0 {
		t.Fatalf("reaction ran for an unchanged value")
	}
	app.SetLanguage(ctx, "mr")
	app.SetDemoMode(ctx, false)
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}

	unregister()
	app.SetLanguage(ctx, "gu")
	if calls != 2 {
		t.Error("reaction ran after unregister")
	}
}

func TestSetPreferenceByKey(t *testing.T) {
	app, _ := hydratedApp(t)
	ctx := context.Background()

	for key, value := range map[string]string{
		"language":        "kn",
		"domain":          "Medical",
		"theme":           "dark",
		"defaultLanguage": "te",
		"defaultDomain":   "medical",
		"demoMode":        "false",
		"apiBaseUrl":      "https://api.example.com/",
	} {
		if err := app.SetPreference(ctx, key, value); err != nil {
			t.Errorf("SetPreference(%s, %s): %v", key, value, err)
		}
	}

	want := domain.Preferences{
		Language:        "kn",
		Domain:          domain.DomainMedical,
		Theme:           domain.ThemeDark,
		DefaultLanguage: "te",
		DefaultDomain:   domain.DomainMedical,
		DemoMode:        false,
		APIBaseURL:      "https://api.example.com",
	}
	if got := app.Preferences(); got != want {
		t.Errorf("prefs = %+v, want %+v", got, want)
	}
}

func TestSetPreferenceRejectsInvalidValues(t *testing.T) {
	app, _ := hydratedApp(t)
	ctx := context.Background()
	before := app.Preferences()

	tests := []struct {
		key, value string
		want       error
	}{
		{"domain", "finance", domain.ErrUnknownDomain},
		{"theme", "neon", domain.ErrUnknownTheme},
		{"demoMode", "maybe", domain.ErrInvalidInput},
		{"apiBaseUrl", "ftp://host", domain.ErrInvalidBaseURL},
		{"apiBaseUrl", "not a url", domain.ErrInvalidBaseURL},
		{"language", "", domain.ErrInvalidInput},
		{"fontSize", "12", domain.ErrUnknownSetting},
	}
	for _, tc := range tests {
		err := app.SetPreference(ctx, tc.key, tc.value)
		if !errors.Is(err, tc.want) {
			t.Errorf("SetPreference(%s, %q) = %v, want %v", tc.key, tc.value, err, tc.want)
		}
	}
	if app.Preferences() != before {
		t.Error("rejected values changed preferences")
	}
}

func TestLanguageSettersRejectEmpty(t *testing.T) {
	app, kv := hydratedApp(t)
	ctx := context.Background()
	if err := app.SetLanguage(ctx, "ta"); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	before := app.Preferences()

	if err := app.SetLanguage(ctx, " "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("SetLanguage(blank) = %v, want ErrInvalidInput", err)
	}
	if err := app.SetDefaultLanguage(ctx, ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("SetDefaultLanguage(empty) = %v, want ErrInvalidInput", err)
	}
	if app.Preferences() != before {
		t.Errorf("prefs = %+v, want unchanged %+v", app.Preferences(), before)
	}

	// The stored record restores exactly what is in memory.
	restored := newTestApp(t, kv)
	restored.Hydrate(ctx)
	if restored.Preferences() != before {
		t.Errorf("restored prefs = %+v, want %+v", restored.Preferences(), before)
	}
}

func TestResetPreferences(t *testing.T) {
	app, kv := hydratedApp(t)
	ctx := context.Background()

	app.SetLanguage(ctx, "ml")
	_ = app.SetTheme(ctx, domain.ThemeLight)
	app.ResetPreferences(ctx)

	if app.Preferences() != domain.DefaultPreferences() {
		t.Errorf("prefs = %+v, want defaults", app.Preferences())
	}
	if !strings.Contains(stored(t, kv, domain.StorageKeyPreferences), `"theme":"system"`) {
		t.Error("reset not persisted")
	}
}

func TestCustomDefaults(t *testing.T) {
	defaults := domain.DefaultPreferences()
	defaults.DemoMode = false
	defaults.APIBaseURL = "http://backend:8000"

	app := NewApp(AppDeps{Defaults: defaults})
	app.Hydrate(context.Background())
	if app.Preferences() != defaults {
		t.Errorf("prefs = %+v, want configured defaults", app.Preferences())
	}
}

func TestAppPublishesEvents(t *testing.T) {
	bus := eventbus.New(nil)
	app := NewApp(AppDeps{Bus: bus})
	ctx := context.Background()

	var mu sync.Mutex
	var seen []domain.EventType
	bus.SubscribeAll(func(_ context.Context, e domain.Event) {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
	})

	app.Hydrate(ctx)
	app.GuestLogin(ctx)
	app.SetLanguage(ctx, "hi")
	doc, _ := app.AddDocument(ctx, domain.ProcessedDocument{OriginalText: "x"})
	app.AddChatMessage(ctx, domain.ChatMessage{Role: domain.ChatRoleUser, Content: "q"})
	app.ClearChat(ctx)
	app.RemoveDocument(ctx, doc.ID)
	bus.Close()

	want := []domain.EventType{
		domain.EventSessionChanged,
		domain.EventPreferencesChanged,
		domain.EventDocumentAdded,
		domain.EventDocumentSelected,
		domain.EventChatMessage,
		domain.EventChatCleared,
		domain.EventDocumentRemoved,
		domain.EventDocumentSelected,
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("events = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("events = %v, want %v", seen, want)
		}
	}
}

func TestAppSubscribeWithoutBus(t *testing.T) {
	app := NewApp(AppDeps{})
	unsubscribe := app.Subscribe(domain.EventDocumentAdded, func(context.Context, domain.Event) {})
	unsubscribe()
}
