package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/p-blackswan/questplan/internal/config"
	"github.com/p-blackswan/questplan/internal/store"
)

func runImport(cfg *config.Config, logger zerolog.Logger, args []string, out, errOut io.Writer) int {
	if hasHelpFlag(args) {
		fmt.Fprintln(out, usageFor("import"))
		return 0
	}
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	user := fs.StringP("user", "u", cfg.AuthDevUserID, "owner of the new project")
	if err := fs.Parse(args); err != nil {
		return fail(errOut, err)
	}
	if fs.NArg() != 1 {
		return fail(errOut, errors.New("exactly one plan file is required"))
	}
	if *user == "" {
		return fail(errOut, errors.New("--user is required"))
	}

	plan, err := readPlan(fs.Arg(0))
	if err != nil {
		return fail(errOut, err)
	}
	st, err := store.New(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return fail(errOut, err)
	}
	defer st.Close()

	p, err := st.ImportPlan(context.Background(), *user, *plan)
	if err != nil {
		return fail(errOut, err)
	}
	fmt.Fprintf(out, "Created project #%d %q with %d tasks (%d XP)\n", p.ID, p.Name, len(plan.Tasks), plan.TotalXP)
	return 0
}
