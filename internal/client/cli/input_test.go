package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubTerminal(t *testing.T, terminal bool, pw []byte, err error) {
	t.Helper()
	origRead, origIs, origFd := readPassword, isTerminal, stdinFd
	t.Cleanup(func() { readPassword, isTerminal, stdinFd = origRead, origIs, origFd })

	stdinFd = func() int { return 0 }
	isTerminal = func(int) bool { return terminal }
	readPassword = func(int) ([]byte, error) { return pw, err }
}

func TestGetSimpleText(t *testing.T) {
	var w bytes.Buffer
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("  alice@example.org \n")), "Email", &w)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", got)
	assert.Equal(t, "Email: ", w.String())
}

func TestGetSimpleText_PartialLineAtEOF(t *testing.T) {
	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("no newline")), "x", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "no newline", got)

	_, err = GetSimpleText(bufio.NewReader(strings.NewReader("")), "x", io.Discard)
	require.ErrorIs(t, err, io.EOF)
}

func TestGetPassword_Terminal(t *testing.T) {
	stubTerminal(t, true, []byte("s3cret"), nil)

	var w bytes.Buffer
	pw, err := GetPassword(bufio.NewReader(strings.NewReader("ignored\n")), "Password", &w)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), pw)
	assert.Equal(t, "Password: \n", w.String())
}

func TestGetPassword_TerminalError(t *testing.T) {
	stubTerminal(t, true, nil, errors.New("tty gone"))

	_, err := GetPassword(bufio.NewReader(strings.NewReader("")), "Password", io.Discard)
	require.EqualError(t, err, "tty gone")
}

func TestGetPassword_PipedInput(t *testing.T) {
	stubTerminal(t, false, nil, errors.New("must not be called"))

	pw, err := GetPassword(bufio.NewReader(strings.NewReader("piped-pass\n")), "Password", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, []byte("piped-pass"), pw)

	_, err = GetPassword(bufio.NewReader(strings.NewReader("")), "Password", io.Discard)
	require.Error(t, err)
}
