package components

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"docaccess/internal/domain"
)

// DocumentLabel is the short form of a document shown in status lines.
func DocumentLabel(doc domain.ProcessedDocument) string {
	id := doc.ID
	if len(id) > 10 {
		id = id[len(id)-10:]
	}
	return fmt.Sprintf("%s (%s, %s)", id, doc.Domain, doc.Language)
}

// DocumentMarkdown renders doc as markdown: the simplified and translated
// texts first, then the original, then any AI analysis.
func DocumentMarkdown(doc domain.ProcessedDocument) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Document %s\n\n", doc.ID)
	fmt.Fprintf(&sb, "*%s · %s · %s*\n\n", domain.DomainLabels[doc.Domain], doc.Language, doc.Timestamp.Local().Format("Jan 2, 2006 15:04"))

	section(&sb, "Simplified", doc.SimplifiedText)
	section(&sb, "Translated", doc.TranslatedText)
	section(&sb, "Original", doc.OriginalText)
	if doc.AudioURL != "" {
		section(&sb, "Audio", doc.AudioURL)
	}
	if doc.HasAnalysis() {
		sb.WriteString("## AI analysis\n\n")
		sb.WriteString(analysisMarkdown(doc.AIAnalysis))
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func section(sb *strings.Builder, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(sb, "## %s\n\n%s\n\n", title, strings.TrimSpace(body))
}

// analysisMarkdown lays out an analysis object field by field: lists become
// bullets and scalars become a labelled line. Anything else is shown as JSON.
func analysisMarkdown(raw json.RawMessage) string {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "```json\n" + string(raw) + "\n```\n"
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		label := humanizeKey(k)
		switch v := fields[k].(type) {
		case []any:
			fmt.Fprintf(&sb, "**%s**\n\n", label)
			for _, item := range v {
				fmt.Fprintf(&sb, "- %s\n", scalar(item))
			}
			sb.WriteString("\n")
		case map[string]any:
			nested, _ := json.Marshal(v)
			fmt.Fprintf(&sb, "**%s**\n\n```json\n%s\n```\n\n", label, nested)
		default:
			fmt.Fprintf(&sb, "**%s:** %s\n\n", label, scalar(v))
		}
	}
	return sb.String()
}

func scalar(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return "-"
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func humanizeKey(k string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(k))
	for i, w := range words {
		if i == 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// RenderDocument renders doc for the terminal with glamour.
func RenderDocument(doc domain.ProcessedDocument, style string, width int) (string, error) {
	r, err := NewMarkdownRenderer(style, ContentWidth(width))
	if err != nil {
		return "", err
	}
	return r.Render(DocumentMarkdown(doc))
}
