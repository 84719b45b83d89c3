package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"docaccess/internal/domain"
)

// The tool commands call the backend directly and keep nothing in history.

func runTranslate(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	from := fs.String("from", "auto", "source language code")
	to := fs.String("to", "hi", "target language code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text, err := toolText(c, fs, "translate --from en --to hi <text>")
	if err != nil {
		return err
	}
	out, err := c.service().Translate(ctx, text, *from, *to)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, out)
	return nil
}

func runSummarize(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	audience := fs.String("audience", "student", "who the summary is written for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text, err := toolText(c, fs, "summarize --audience student <text>")
	if err != nil {
		return err
	}
	out, err := c.service().Summarize(ctx, text, *audience)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, out)
	return nil
}

func runExplain(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("explain", flag.ContinueOnError)
	audience := fs.String("audience", "student", "who the explanation is written for")
	if err := fs.Parse(args); err != nil {
		return err
	}
	text, err := toolText(c, fs, "explain --audience student <text>")
	if err != nil {
		return err
	}
	out, err := c.service().Explain(ctx, text, *audience)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Explanation for %s:\n%s\n", *audience, out)
	return nil
}

func runTranscribe(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	lang := fs.String("language", "hi", "spoken language code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: usage: docaccess transcribe --language hi <file>", domain.ErrInvalidInput)
	}
	audio, err := readUpload(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := c.processor.ValidateAudio(audio); err != nil {
		return err
	}
	tr, err := c.service().TranscribeAudio(ctx, audio, *lang, c.state.Preferences().Domain)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, tr.Text)
	return nil
}

func runExtract(ctx context.Context, c *cli, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: usage: docaccess extract <file>", domain.ErrInvalidInput)
	}
	file, err := readUpload(args[0])
	if err != nil {
		return err
	}
	if file, err = c.processor.ValidateFile(file); err != nil {
		return err
	}
	ext, err := c.service().ExtractTextFromImage(ctx, file, c.state.Preferences().Domain)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, ext.ExtractedText)
	fmt.Fprintf(c.out, "\nConfidence: %.0f%%\n", ext.Confidence*100)
	return nil
}

// toolText joins the positional arguments and applies the text limits.
func toolText(c *cli, fs *flag.FlagSet, usage string) (string, error) {
	text := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: usage: docaccess %s", domain.ErrEmptyText, usage)
	}
	if err := c.processor.ValidateText(text); err != nil {
		return "", err
	}
	return text, nil
}
