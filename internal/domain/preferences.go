package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// DocumentDomain is the document category that drives terminology handling.
type DocumentDomain string

const (
	DomainGovernment DocumentDomain = "government"
	DomainMedical    DocumentDomain = "medical"
)

// DomainLabels are the human-readable names of each domain.
var DomainLabels = map[DocumentDomain]string{
	DomainGovernment: "Government & Legal Documents",
	DomainMedical:    "Medical & Healthcare Documents",
}

// ParseDomain validates s as a DocumentDomain (case-insensitive).
func ParseDomain(s string) (DocumentDomain, error) {
	d := DocumentDomain(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := DomainLabels[d]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDomain, s)
	}
	return d, nil
}

// Theme is the display theme preference.
type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// ParseTheme validates s as a Theme (case-insensitive).
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTheme, s)
	}
}

// DefaultAPIBaseURL is the backend address used when nothing else is configured.
const DefaultAPIBaseURL = "http://localhost:8000"

// Preferences holds every user-adjustable setting. It is always fully populated.
type Preferences struct {
	Language        string         `json:"language"`
	Domain          DocumentDomain `json:"domain"`
	Theme           Theme          `json:"theme"`
	DefaultLanguage string         `json:"defaultLanguage"`
	DefaultDomain   DocumentDomain `json:"defaultDomain"`
	DemoMode        bool           `json:"demoMode"`
	APIBaseURL      string         `json:"apiBaseUrl"`
}

// DefaultPreferences returns the built-in defaults.
func DefaultPreferences() Preferences {
	return Preferences{
		Language:        "en",
		Domain:          DomainGovernment,
		Theme:           ThemeSystem,
		DefaultLanguage: "en",
		DefaultDomain:   DomainGovernment,
		DemoMode:        true,
		APIBaseURL:      DefaultAPIBaseURL,
	}
}

// PreferencesRecord is the persisted, possibly partial, form of Preferences.
// Absent fields keep their defaults when merged, so records written by older
// versions load cleanly.
type PreferencesRecord struct {
	Language        *string `json:"language,omitempty"`
	Domain          *string `json:"domain,omitempty"`
	Theme           *string `json:"theme,omitempty"`
	DefaultLanguage *string `json:"defaultLanguage,omitempty"`
	DefaultDomain   *string `json:"defaultDomain,omitempty"`
	DemoMode        *bool   `json:"demoMode,omitempty"`
	APIBaseURL      *string `json:"apiBaseUrl,omitempty"`
}

// Record converts p into its full persisted form.
func (p Preferences) Record() PreferencesRecord {
	domain := string(p.Domain)
	theme := string(p.Theme)
	defDomain := string(p.DefaultDomain)
	demo := p.DemoMode
	return PreferencesRecord{
		Language:        &p.Language,
		Domain:          &domain,
		Theme:           &theme,
		DefaultLanguage: &p.DefaultLanguage,
		DefaultDomain:   &defDomain,
		DemoMode:        &demo,
		APIBaseURL:      &p.APIBaseURL,
	}
}

// Merge overlays every present field of r onto base. Empty strings and values
// that fail validation are treated as absent.
func (r PreferencesRecord) Merge(base Preferences) Preferences {
	if present(r.Language) {
		base.Language = *r.Language
	}
	if present(r.Domain) {
		if d, err := ParseDomain(*r.Domain); err == nil {
			base.Domain = d
		}
	}
	if present(r.Theme) {
		if t, err := ParseTheme(*r.Theme); err == nil {
			base.Theme = t
		}
	}
	if present(r.DefaultLanguage) {
		base.DefaultLanguage = *r.DefaultLanguage
	}
	if present(r.DefaultDomain) {
		if d, err := ParseDomain(*r.DefaultDomain); err == nil {
			base.DefaultDomain = d
		}
	}
	if r.DemoMode != nil {
		base.DemoMode = *r.DemoMode
	}
	if present(r.APIBaseURL) {
		base.APIBaseURL = *r.APIBaseURL
	}
	return base
}

func present(s *string) bool {
	return s != nil && *s != ""
}

// ValidateBaseURL checks that raw is an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, raw)
	}
	return nil
}
