package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"docaccess/internal/adapter/tui/uxerror"
	"docaccess/internal/infra/config"
)

// command is one CLI subcommand. args excludes the command name.
type command struct {
	name    string
	summary string
	auth    bool // requires an authenticated session
	run     func(ctx context.Context, c *cli, args []string) error
}

var commands = []command{
	{name: "login", summary: "Sign in with email and password", run: runLogin},
	{name: "register", summary: "Create an account and sign in", run: runRegister},
	{name: "guest", summary: "Continue as guest", run: runGuest},
	{name: "logout", summary: "Sign out and forget the current document", run: runLogout},
	{name: "whoami", summary: "Show the signed-in user", run: runWhoami},
	{name: "process", summary: "Process text, a file or an audio recording", auth: true, run: runProcess},
	{name: "history", summary: "List processed documents", auth: true, run: runHistory},
	{name: "show", summary: "Show a document (default: current)", auth: true, run: runShow},
	{name: "select", summary: "Make a document current", auth: true, run: runSelect},
	{name: "remove", summary: "Delete a document from history", auth: true, run: runRemove},
	{name: "chat", summary: "Ask questions about the current document", auth: true, run: runChat},
	{name: "translate", summary: "Translate text between languages", auth: true, run: runTranslate},
	{name: "summarize", summary: "Summarize text for an audience", auth: true, run: runSummarize},
	{name: "explain", summary: "Explain text for an audience", auth: true, run: runExplain},
	{name: "transcribe", summary: "Turn an audio recording into text", auth: true, run: runTranscribe},
	{name: "extract", summary: "Extract text from an image or PDF", auth: true, run: runExtract},
	{name: "settings", summary: "Show or change preferences", run: runSettings},
	{name: "languages", summary: "List supported languages", run: runLanguages},
	{name: "health", summary: "Check the backend", run: runHealth},
}

func main() {
	if len(os.Args) < 2 {
		showUsage(os.Stdout)
		return
	}

	name := os.Args[1]
	switch name {
	case "--help", "-h", "help":
		showUsage(os.Stdout)
		return
	case "doctor":
		if err := runDoctor(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "doctor: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cmd, ok := lookup(name)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'docaccess --help' for usage information.\n", name)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := execute(ctx, cmd, stripConfigFlag(os.Args[2:]), os.Stdout)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", name, uxerror.Humanize(err).Render())
		os.Exit(1)
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// execute loads config, builds the client state and runs cmd against it.
func execute(ctx context.Context, cmd command, args []string, out io.Writer) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("dotenv: %w", err)
	}
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c, cleanup, err := initCLI(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer cleanup()

	if cmd.auth {
		if err := c.state.RequireSession(); err != nil {
			return err
		}
	}
	return cmd.run(ctx, c, args)
}

func showUsage(w io.Writer) {
	fmt.Fprint(w, `docaccess - make documents accessible: translate, simplify, explain

USAGE:
    docaccess <COMMAND> [FLAGS]

COMMANDS:
`)
	for _, c := range commands {
		fmt.Fprintf(w, "    %-10s  %s\n", c.name, c.summary)
	}
	fmt.Fprint(w, `    doctor      Run health checks on your setup

FLAGS:
    -h, --help         Show this help message
    --config PATH      Config file (default: ~/.docaccess/config.yaml)

CONFIGURATION:
    Environment: DOCACCESS_* variables override config, .env is loaded if present

EXAMPLES:
    docaccess guest
    docaccess process --text "The applicant shall furnish proof of residence."
    docaccess process --file notice.pdf
    docaccess history --search residence --domain government
    docaccess settings set demoMode false
    docaccess translate --from en --to ta "Submit the form by Friday."
    docaccess extract notice.png
    docaccess chat
`)
}

// configPath honours --config, then DOCACCESS_CONFIG, then the default path.
func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("DOCACCESS_CONFIG"); p != "" {
		return p
	}
	return config.DefaultPath()
}

// stripConfigFlag removes --config so subcommand flag sets never see it.
func stripConfigFlag(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--config":
			i++
		case strings.HasPrefix(args[i], "--config="):
		default:
			out = append(out, args[i])
		}
	}
	return out
}
