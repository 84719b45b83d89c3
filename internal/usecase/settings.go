package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"docaccess/internal/domain"
)

// Setting keys accepted by SetPreference, in display order.
var SettingKeys = []string{
	"language",
	"domain",
	"theme",
	"defaultLanguage",
	"defaultDomain",
	"demoMode",
	"apiBaseUrl",
}

// Preferences returns the current preferences.
func (a *App) Preferences() domain.Preferences {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.prefs
}

// OnPreferencesChanged registers fn to run after every preference change
// that alters at least one field. It returns a function that unregisters fn.
func (a *App) OnPreferencesChanged(fn PreferencesReaction) func() {
	a.mu.Lock()
	id := a.nextReactionID()
	a.reactions = append(a.reactions, reaction{id: id, fn: fn})
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		for i, r := range a.reactions {
			if r.id == id {
				a.reactions = append(a.reactions[:i:i], a.reactions[i+1:]...)
				return
			}
		}
	}
}

// SetLanguage sets the target language for new documents. An empty code is
// rejected since the stored record treats it as absent.
func (a *App) SetLanguage(ctx context.Context, lang string) error {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return domain.NewDomainError("App.SetLanguage", domain.ErrInvalidInput, "language must not be empty")
	}
	a.updatePreferences(ctx, func(p *domain.Preferences) { p.Language = lang })
	return nil
}

// SetDomain sets the document domain for new documents.
func (a *App) SetDomain(ctx context.Context, d domain.DocumentDomain) error {
	d, err := domain.ParseDomain(string(d))
	if err != nil {
		return domain.WrapOp("App.SetDomain", err)
	}
	a.updatePreferences(ctx, func(p *domain.Preferences) { p.Domain = d })
	return nil
}

// SetTheme sets the display theme.
func (a *App) SetTheme(ctx context.Context, t domain.Theme) error {
	t, err := domain.ParseTheme(string(t))
	if err != nil {
		return domain.WrapOp("App.SetTheme", err)
	}
	a.updatePreferences(ctx, func(p *domain.Preferences) { p.Theme = t })
	return nil
}

// SetDefaultLanguage sets the default language preference.
func (a *App) SetDefaultLanguage(ctx context.Context, lang string) error {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return domain.NewDomainError("App.SetDefaultLanguage", domain.ErrInvalidInput, "defaultLanguage must not be empty")
	}
	a.updatePreferences(ctx, func(p *domain.Preferences) { p.DefaultLanguage = lang })
	return nil
}

// SetDefaultDomain sets the default domain preference.
func (a *App) SetDefaultDomain(ctx context.Context, d domain.DocumentDomain) error {
	d, err := domain.ParseDomain(string(d))
	if err != nil {
		return domain.WrapOp("App.SetDefaultDomain", err)
	}
	a.updatePreferences(ctx, func(p *domain.Preferences) { p.DefaultDomain = d })
	return nil
}

// SetDemoMode switches between canned responses and the live backend.
func (a *App) SetDemoMode(ctx context.Context, on bool) {
	a.updatePreferences(ctx, func(p *domain.Preferences) { p.DemoMode = on })
}

// SetAPIBaseURL sets the backend address. Registered reactions rebind the
// backend client.
func (a *App) SetAPIBaseURL(ctx context.Context, raw string) error {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	if err := domain.ValidateBaseURL(raw); err != nil {
		return domain.WrapOp("App.SetAPIBaseURL", err)
	}
	a.updatePreferences(ctx, func(p *domain.Preferences) { p.APIBaseURL = raw })
	return nil
}

// SetPreference sets one preference by key from its string form.
func (a *App) SetPreference(ctx context.Context, key, value string) error {
	switch key {
	case "language":
		return a.SetLanguage(ctx, value)
	case "domain":
		return a.SetDomain(ctx, domain.DocumentDomain(value))
	case "theme":
		return a.SetTheme(ctx, domain.Theme(value))
	case "defaultLanguage":
		return a.SetDefaultLanguage(ctx, value)
	case "defaultDomain":
		return a.SetDefaultDomain(ctx, domain.DocumentDomain(value))
	case "demoMode":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return domain.NewDomainError("App.SetPreference", domain.ErrInvalidInput, fmt.Sprintf("demoMode: %q is not a boolean", value))
		}
		a.SetDemoMode(ctx, on)
		return nil
	case "apiBaseUrl":
		return a.SetAPIBaseURL(ctx, value)
	default:
		return domain.NewDomainError("App.SetPreference", domain.ErrUnknownSetting, key)
	}
}

// ResetPreferences restores the default preferences.
func (a *App) ResetPreferences(ctx context.Context) {
	defaults := a.deps.Defaults
	a.updatePreferences(ctx, func(p *domain.Preferences) { *p = defaults })
}

// updatePreferences applies mutate and, when something changed, runs every
// registered reaction with the old and new values.
func (a *App) updatePreferences(ctx context.Context, mutate func(*domain.Preferences)) {
	a.prefMu.Lock()
	defer a.prefMu.Unlock()

	a.mu.Lock()
	old := a.prefs
	next := old
	mutate(&next)
	if next == old {
		a.mu.Unlock()
		return
	}
	a.prefs = next
	reactions := append([]reaction(nil), a.reactions...)
	a.mu.Unlock()

	for _, r := range reactions {
		r.fn(ctx, old, next)
	}
	a.publish(ctx, domain.EventPreferencesChanged, next)
}

func (a *App) persistPreferences(ctx context.Context, _, next domain.Preferences) {
	a.deps.Store.Encode(ctx, domain.StorageKeyPreferences, next.Record())
}
