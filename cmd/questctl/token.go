package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/p-blackswan/questplan/internal/auth"
	"github.com/p-blackswan/questplan/internal/config"
)

func runToken(cfg *config.Config, _ zerolog.Logger, args []string, out, errOut io.Writer) int {
	if hasHelpFlag(args) {
		fmt.Fprintln(out, usageFor("token"))
		return 0
	}
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	user := fs.StringP("user", "u", "", "user id placed in the token subject")
	email := fs.String("email", "", "email claim")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return fail(errOut, err)
	}
	if *user == "" {
		return fail(errOut, errors.New("--user is required"))
	}
	if cfg.AuthJWTSecret == "" {
		return fail(errOut, errors.New("AUTH_JWT_SECRET is not set"))
	}

	tok, err := auth.Mint([]byte(cfg.AuthJWTSecret), *user, *email, cfg.AuthJWTIssuer, cfg.AuthJWTAudience, *ttl)
	if err != nil {
		return fail(errOut, err)
	}
	fmt.Fprintln(out, tok)
	return 0
}
