package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"docaccess/internal/adapter/tui/chat"
	"docaccess/internal/adapter/tui/theme"
	"docaccess/internal/domain"
	"docaccess/internal/usecase"
)

func runSettings(ctx context.Context, c *cli, args []string) error {
	if len(args) == 0 {
		printSettings(c)
		return nil
	}
	switch args[0] {
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("%w: usage: docaccess settings set <key> <value>", domain.ErrInvalidInput)
		}
		if err := c.state.SetPreference(ctx, args[1], args[2]); err != nil {
			return err
		}
	case "reset":
		c.state.ResetPreferences(ctx)
	default:
		return fmt.Errorf("%w: settings %s (want set or reset)", domain.ErrInvalidInput, args[0])
	}
	printSettings(c)
	return nil
}

func printSettings(c *cli) {
	p := c.state.Preferences()
	values := map[string]string{
		"language":        p.Language,
		"domain":          fmt.Sprintf("%s (%s)", p.Domain, domain.DomainLabels[p.Domain]),
		"theme":           string(p.Theme),
		"defaultLanguage": p.DefaultLanguage,
		"defaultDomain":   string(p.DefaultDomain),
		"demoMode":        strconv.FormatBool(p.DemoMode),
		"apiBaseUrl":      p.APIBaseURL,
	}
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	for _, k := range usecase.SettingKeys {
		fmt.Fprintf(w, "%s\t%s\n", k, values[k])
	}
	w.Flush()
}

func runLanguages(ctx context.Context, c *cli, _ []string) error {
	langs, err := c.service().GetLanguages(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME")
	for _, l := range langs {
		fmt.Fprintf(w, "%s\t%s\n", l.Code, l.Name)
	}
	return w.Flush()
}

func runHealth(ctx context.Context, c *cli, _ []string) error {
	h, err := c.service().CheckHealth(ctx)
	if err != nil {
		return err
	}
	mode := "live " + c.client.BaseURL()
	if c.state.Preferences().DemoMode {
		mode = "demo"
	}
	fmt.Fprintf(c.out, "backend: %s (%s)\n", h.Status, mode)
	if h.Status != domain.HealthHealthy {
		return fmt.Errorf("%w: backend reported %q", domain.ErrBackendFailed, h.Status)
	}
	return nil
}

func runChat(ctx context.Context, c *cli, _ []string) error {
	if _, ok := c.state.CurrentDocument(); !ok {
		return domain.ErrNoDocument
	}
	mode := "live"
	if c.state.Preferences().DemoMode {
		mode = "demo"
	}
	return chat.Run(ctx, chat.ModelDeps{
		Chat:   c.chat,
		State:  c.state,
		Logger: c.log,
		Mode:   mode,
		Style:  theme.Apply(c.state.Preferences().Theme),
	})
}
