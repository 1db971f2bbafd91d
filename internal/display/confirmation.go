package display

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Confirmer asks the operator to approve destructive actions
type Confirmer struct {
	reader      io.Reader
	writer      io.Writer
	autoApprove bool
}

// NewConfirmer creates a confirmer reading from stdin by default
func NewConfirmer(reader io.Reader, writer io.Writer) *Confirmer {
	if reader == nil {
		reader = os.Stdin
	}
	if writer == nil {
		writer = os.Stdout
	}
	return &Confirmer{reader: reader, writer: writer}
}

// SetAutoApprove skips prompts and approves everything
func (c *Confirmer) SetAutoApprove(autoApprove bool) {
	c.autoApprove = autoApprove
}

// Confirm asks a yes/no question, defaulting to no
func (c *Confirmer) Confirm(message string) (bool, error) {
	if c.autoApprove {
		return true, nil
	}

	fmt.Fprintf(c.writer, "%s [y/N]: ", message)

	answer, err := c.readLine()
	if err != nil {
		return false, err
	}

	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ConfirmDestructive requires the operator to type the target name back,
// used before dropping a database
func (c *Confirmer) ConfirmDestructive(message, expected string) (bool, error) {
	if c.autoApprove {
		return true, nil
	}

	fmt.Fprintf(c.writer, "%s\nType %q to confirm: ", message, expected)

	answer, err := c.readLine()
	if err != nil {
		return false, err
	}

	return answer == expected, nil
}

func (c *Confirmer) readLine() (string, error) {
	scanner := bufio.NewScanner(c.reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read confirmation: %w", err)
		}
		return "", fmt.Errorf("confirmation input closed")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// ReadPassword prompts for a password without echoing it. Falls back to a
// plain line read when stdin is not a terminal (tests, pipes).
func ReadPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(password), nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return "", fmt.Errorf("failed to read password")
	}
	return strings.TrimSpace(scanner.Text()), nil
}
