package cli

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

type Prompter interface {
	Password(label string) (string, error)
}

type termPrompter struct{}

func (termPrompter) Password(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password required: pass --password or run in a terminal")
	}
	_, _ = fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

// password returns flagValue when set and prompts otherwise.
func (o *options) password(flagValue, label string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if o.ci {
		return "", errors.New("--password is required with --ci")
	}
	return o.prompter.Password(label)
}
