package usecase

import (
	"strings"

	"docaccess/internal/domain"
)

// FilterAll matches every domain or language.
const FilterAll = "all"

// DocumentFilter narrows the history view. Empty fields match everything.
type DocumentFilter struct {
	Query    string // case-insensitive match on the original text, or a substring of the id
	Domain   string // exact domain, "" or "all"
	Language string // exact language code, "" or "all"
}

// FilterDocuments returns the documents matching f, preserving order.
func FilterDocuments(docs []domain.ProcessedDocument, f DocumentFilter) []domain.ProcessedDocument {
	query := strings.ToLower(f.Query)
	out := make([]domain.ProcessedDocument, 0, len(docs))
	for _, d := range docs {
		if query != "" &&
			!strings.Contains(strings.ToLower(d.OriginalText), query) &&
			!strings.Contains(d.ID, f.Query) {
			continue
		}
		if !matchesFacet(string(d.Domain), f.Domain) || !matchesFacet(d.Language, f.Language) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func matchesFacet(value, want string) bool {
	return want == "" || want == FilterAll || value == want
}
