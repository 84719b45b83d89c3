package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword prompts for a password without echo when stdin is a terminal.
// Piped input is read as a single line.
var readPassword = func(out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		return string(b), err
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func credentials(c *cli, fs *flag.FlagSet, args []string) (email, password string, err error) {
	fs.StringVar(&email, "email", "", "account email")
	fs.StringVar(&password, "password", "", "account password (prompted when omitted)")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if email != "" && password == "" {
		password, err = readPassword(c.out, "Password: ")
		if err != nil {
			return "", "", fmt.Errorf("read password: %w", err)
		}
	}
	return email, password, nil
}

func runLogin(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email, password, err := credentials(c, fs, args)
	if err != nil {
		return err
	}
	if err := c.state.Login(ctx, email, password); err != nil {
		return err
	}
	return runWhoami(ctx, c, nil)
}

func runRegister(ctx context.Context, c *cli, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email, password, err := credentials(c, fs, args)
	if err != nil {
		return err
	}
	if err := c.state.Register(ctx, email, *name, password); err != nil {
		return err
	}
	return runWhoami(ctx, c, nil)
}

func runGuest(ctx context.Context, c *cli, _ []string) error {
	c.state.GuestLogin(ctx)
	return runWhoami(ctx, c, nil)
}

func runLogout(ctx context.Context, c *cli, _ []string) error {
	c.state.Logout(ctx)
	fmt.Fprintln(c.out, "Signed out.")
	return nil
}

func runWhoami(_ context.Context, c *cli, _ []string) error {
	s := c.state.Session()
	if !s.IsAuthenticated {
		fmt.Fprintln(c.out, "Not signed in. Run 'docaccess login' or 'docaccess guest'.")
		return nil
	}
	fmt.Fprintf(c.out, "Signed in as %s <%s>\n", s.User.Name, s.User.Email)
	return nil
}
