package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
	stdinFd      = func() int { return int(os.Stdin.Fd()) }
)

// Indirections so command tests can script the prompts.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetPassword prints prompt to w and reads a password without echo when
// stdin is a terminal. Piped input is read as a plain line so scripts can
// still log in.
//
// The returned byte slice should be wiped by the caller when no longer needed.
func GetPassword(reader *bufio.Reader, prompt string, w io.Writer) ([]byte, error) {
	fd := stdinFd()
	if !isTerminal(fd) {
		line, err := GetSimpleText(reader, prompt, w)
		if err != nil {
			return nil, err
		}
		return []byte(line), nil
	}

	if _, err := fmt.Fprint(w, prompt+": "); err != nil {
		return nil, err
	}
	pw, err := readPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}
