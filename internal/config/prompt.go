package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks for missing dotfile values on a terminal.
type Prompter struct {
	In  io.Reader
	Out io.Writer
	// ReadSecret reads a line without echo. Defaults to the terminal on stdin.
	ReadSecret func() (string, error)

	reader *bufio.Reader
}

// NewPrompter prompts on stdin/stderr.
func NewPrompter() *Prompter {
	return &Prompter{In: os.Stdin, Out: os.Stderr, ReadSecret: readTerminalSecret}
}

// Ask prints label and returns the entered line, or def when empty.
func (p *Prompter) Ask(label, def string) (string, error) {
	if p.reader == nil {
		p.reader = bufio.NewReader(p.In)
	}
	if def != "" {
		fmt.Fprintf(p.Out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.Out, "%s: ", label)
	}
	line, err := p.reader.ReadString('\n')
	if err != nil && !(err == io.EOF && line != "") {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Secret prompts for a value without echoing it.
func (p *Prompter) Secret(label string) (string, error) {
	fmt.Fprintf(p.Out, "%s: ", label)
	s, err := p.ReadSecret()
	fmt.Fprintln(p.Out)
	return strings.TrimSpace(s), err
}

// Complete fills the fields cfg is missing for its auth method.
func (p *Prompter) Complete(cfg *Config) error {
	var err error
	if cfg.URL == "" {
		if cfg.URL, err = p.Ask("URL of the API (e.g. http://localhost:8990/api)", ""); err != nil {
			return err
		}
	}
	if cfg.AuthMethod, err = p.Ask("Auth method (auth_token, auth_header)", cfg.AuthMethod); err != nil {
		return err
	}
	switch cfg.AuthMethod {
	case AuthToken:
		if cfg.Email, err = p.Ask("Email", cfg.Email); err != nil {
			return err
		}
		if cfg.SecretKey == "" {
			if cfg.SecretKey, err = p.Secret("Secret key"); err != nil {
				return err
			}
		}
	case AuthHeader:
		if cfg.AuthHeader, err = p.Ask("Auth header", cfg.AuthHeader); err != nil {
			return err
		}
		if cfg.DefaultDomain, err = p.Ask("Default domain", cfg.DefaultDomain); err != nil {
			return err
		}
	}
	if cfg.DefaultSite, err = p.Ask("Default site ID (optional)", cfg.DefaultSite); err != nil {
		return err
	}
	return cfg.Validate()
}

// IsTerminal reports whether stdin is interactive.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func readTerminalSecret() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("secret key prompt needs a terminal")
	}
	b, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
