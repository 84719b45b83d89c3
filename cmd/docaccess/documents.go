package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"docaccess/internal/adapter/tui/components"
	"docaccess/internal/adapter/tui/theme"
	"docaccess/internal/domain"
	"docaccess/internal/usecase"
)

func runProcess(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	text := fs.String("text", "", "document text")
	file := fs.String("file", "", "image or PDF to extract text from")
	audio := fs.String("audio", "", "audio recording to transcribe")
	if err := fs.Parse(args); err != nil {
		return err
	}

	given := 0
	for _, v := range []string{*text, *file, *audio} {
		if v != "" {
			given++
		}
	}
	if given != 1 {
		return fmt.Errorf("%w: pass exactly one of --text, --file or --audio", domain.ErrInvalidInput)
	}

	var (
		doc domain.ProcessedDocument
		err error
	)
	switch {
	case *text != "":
		doc, err = c.processor.ProcessText(ctx, *text)
	case *file != "":
		var up domain.Upload
		if up, err = readUpload(*file); err != nil {
			return err
		}
		doc, err = c.processor.ProcessFile(ctx, up)
	default:
		var up domain.Upload
		if up, err = readUpload(*audio); err != nil {
			return err
		}
		doc, err = c.processor.ProcessAudio(ctx, up)
	}
	if err != nil {
		return err
	}

	printDocument(c, doc)
	fmt.Fprintf(c.out, "Saved as %s. Run 'docaccess chat' to ask about it.\n", doc.ID)
	return nil
}

func readUpload(path string) (domain.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("read %s: %w", path, err)
	}
	return domain.Upload{Filename: filepath.Base(path), Data: data}, nil
}

func runHistory(_ context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	var f usecase.DocumentFilter
	fs.StringVar(&f.Query, "search", "", "match original text or id")
	fs.StringVar(&f.Domain, "domain", usecase.FilterAll, "government, medical or all")
	fs.StringVar(&f.Language, "language", usecase.FilterAll, "language code or all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	docs := usecase.FilterDocuments(c.state.Documents(), f)
	if len(docs) == 0 {
		fmt.Fprintln(c.out, "No documents found.")
		return nil
	}

	current, _ := c.state.CurrentDocument()
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " \tID\tDATE\tDOMAIN\tLANG\tTEXT")
	for _, d := range docs {
		mark := " "
		if d.ID == current.ID {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			mark, d.ID, d.Timestamp.Local().Format("2006-01-02 15:04"),
			d.Domain, d.Language, snippet(d.OriginalText, 48))
	}
	return w.Flush()
}

func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func runShow(_ context.Context, c *cli, args []string) error {
	var (
		doc domain.ProcessedDocument
		ok  bool
	)
	if len(args) == 0 {
		doc, ok = c.state.CurrentDocument()
		if !ok {
			return domain.ErrNoDocument
		}
	} else if doc, ok = c.state.Document(args[0]); !ok {
		return fmt.Errorf("document %s: %w", args[0], domain.ErrNotFound)
	}
	printDocument(c, doc)
	return nil
}

func runSelect(ctx context.Context, c *cli, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: docaccess select <id>", domain.ErrInvalidInput)
	}
	doc, err := c.state.SelectDocument(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Current document: %s\n", components.DocumentLabel(doc))
	return nil
}

func runRemove(ctx context.Context, c *cli, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: docaccess remove <id>", domain.ErrInvalidInput)
	}
	if _, ok := c.state.Document(args[0]); !ok {
		return fmt.Errorf("document %s: %w", args[0], domain.ErrNotFound)
	}
	c.state.RemoveDocument(ctx, args[0])
	fmt.Fprintf(c.out, "Removed %s.\n", args[0])
	return nil
}

func printDocument(c *cli, doc domain.ProcessedDocument) {
	style := theme.Apply(c.state.Preferences().Theme)
	if !isTerminal() {
		style = "notty"
	}
	out, err := components.RenderDocument(doc, style, components.ContentWidth(terminalWidth()))
	if err != nil {
		c.log.Warn("render document", "error", err)
		out = components.DocumentMarkdown(doc)
	}
	fmt.Fprint(c.out, out)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}
