package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/questplan/internal/config"
	"github.com/p-blackswan/questplan/internal/store"
)

// runMigrate opens the store, which applies pending migrations.
func runMigrate(cfg *config.Config, logger zerolog.Logger, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintln(errOut, usageFor("migrate"))
		return 1
	}
	st, err := store.New(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return fail(errOut, err)
	}
	defer st.Close()
	fmt.Fprintf(out, "%s database at schema version %d\n", cfg.DatabaseDriver, store.SchemaVersion)
	return 0
}
