// Package devtoken mints HS256 bearer tokens accepted by the HTTP server, so
// the profile routes can be exercised locally without an identity provider.
package devtoken

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/gophtodo/internal/server/auth"
)

// getenv is a test seam for os.Getenv.
var getenv = os.Getenv

// Run parses args, prompts for anything missing and writes the token to w.
// The secret comes from JWT_SECRET or, failing that, the terminal.
func Run(args []string, reader *bufio.Reader, w io.Writer) error {
	fs := flag.NewFlagSet("devtoken", flag.ContinueOnError)
	fs.SetOutput(w)

	var id auth.Identity
	fs.StringVar(&id.Subject, "sub", "", "token subject (user id)")
	fs.StringVar(&id.Email, "email", "", "email claim")
	fs.BoolVar(&id.EmailVerified, "verified", false, "email_verified claim")
	ttl := fs.Duration("ttl", time.Hour, "token validity")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if id.Subject == "" {
		sub, err := getSimpleText(reader, "Subject", w)
		if err != nil {
			return fmt.Errorf("read subject: %w", err)
		}
		id.Subject = sub
	}
	if id.Subject == "" {
		return errors.New("subject must not be empty")
	}

	secret := []byte(getenv("JWT_SECRET"))
	if len(secret) == 0 {
		s, err := getSecret(w)
		if err != nil {
			return fmt.Errorf("read secret: %w", err)
		}
		secret = s
	}
	if len(secret) == 0 {
		return errors.New("secret must not be empty")
	}

	token, err := auth.GenerateToken(id, secret, *ttl)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, token)
	return err
}
