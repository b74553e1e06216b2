package devtoken

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophtodo/internal/server/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubSecret(t *testing.T, env string, terminal []byte, termErr error) {
	t.Helper()
	oldEnv, oldRead := getenv, readPassword
	getenv = func(string) string { return env }
	readPassword = func(int) ([]byte, error) { return terminal, termErr }
	t.Cleanup(func() {
		getenv, readPassword = oldEnv, oldRead
	})
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func TestRun_FlagsAndEnvSecret(t *testing.T) {
	stubSecret(t, "env-secret", nil, errors.New("terminal must not be read"))

	var out bytes.Buffer
	err := Run([]string{"-sub", "user-1", "-email", "a@b.c", "-verified"}, bufio.NewReader(strings.NewReader("")), &out)
	require.NoError(t, err)

	id, err := auth.ParseToken(lastLine(out.String()), []byte("env-secret"))
	require.NoError(t, err)
	assert.Equal(t, &auth.Identity{Subject: "user-1", Email: "a@b.c", EmailVerified: true}, id)
}

func TestRun_PromptsForMissingValues(t *testing.T) {
	stubSecret(t, "", []byte("typed-secret"), nil)

	var out bytes.Buffer
	err := Run(nil, bufio.NewReader(strings.NewReader("user-2\n")), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Subject")
	assert.Contains(t, out.String(), "Enter signing secret")

	id, err := auth.ParseToken(lastLine(out.String()), []byte("typed-secret"))
	require.NoError(t, err)
	assert.Equal(t, "user-2", id.Subject)
}

func TestRun_Errors(t *testing.T) {
	t.Run("empty subject", func(t *testing.T) {
		stubSecret(t, "s", nil, nil)
		err := Run(nil, bufio.NewReader(strings.NewReader("\n")), &bytes.Buffer{})
		assert.ErrorContains(t, err, "subject")
	})

	t.Run("terminal failure", func(t *testing.T) {
		stubSecret(t, "", nil, errors.New("not a tty"))
		err := Run([]string{"-sub", "u"}, bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
		assert.ErrorContains(t, err, "not a tty")
	})

	t.Run("empty secret", func(t *testing.T) {
		stubSecret(t, "", []byte{}, nil)
		err := Run([]string{"-sub", "u"}, bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
		assert.ErrorContains(t, err, "secret")
	})

	t.Run("bad flag", func(t *testing.T) {
		stubSecret(t, "s", nil, nil)
		err := Run([]string{"-nope"}, bufio.NewReader(strings.NewReader("")), &bytes.Buffer{})
		assert.Error(t, err)
	})
}
