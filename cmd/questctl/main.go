// questctl is the questplan command line companion.
//
// Usage:
//
//	questctl plan [--lang en] [--out plan.json]   Plan a project interactively
//	questctl import --user <id> <plan.json>       Create a project from a plan file
//	questctl token --user <id> [--ttl 24h]        Mint a development session token
//	questctl migrate                              Create or upgrade the database schema
//
// Commands read the same environment variables as questd.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/questplan/internal/config"
)

type command struct {
	name  string
	usage string
	run   func(cfg *config.Config, logger zerolog.Logger, args []string, out, errOut io.Writer) int
}

// commands is filled in init because the handlers print their own usage
// through usageFor, which reads this table.
var commands []command

func init() {
	commands = []command{
		{"plan", "plan [--lang en] [--out plan.json]", runPlan},
		{"import", "import --user <id> <plan.json>", runImport},
		{"token", "token --user <id> [--email addr] [--ttl 24h]", runToken},
		{"migrate", "migrate", runMigrate},
	}
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out, errOut io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		printUsage(errOut)
		if len(args) == 0 {
			return 1
		}
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(errOut, "error:", err)
		return 1
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	// Keep the terminal quiet unless asked otherwise.
	if level < zerolog.WarnLevel && os.Getenv("LOG_LEVEL") == "" {
		level = zerolog.WarnLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: errOut}).Level(level).With().Timestamp().Logger()

	for _, c := range commands {
		if c.name == args[0] {
			return c.run(cfg, logger, args[1:], out, errOut)
		}
	}
	fmt.Fprintf(errOut, "error: unknown command %q\n\n", args[0])
	printUsage(errOut)
	return 1
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	for _, c := range commands {
		fmt.Fprintf(w, "  questctl %s\n", c.usage)
	}
}

func hasHelpFlag(args []string) bool {
	for _, a := range args {
		if a == "-h" || a == "--help" {
			return true
		}
	}
	return false
}

func usageFor(name string) string {
	for _, c := range commands {
		if c.name == name {
			return "Usage: questctl " + c.usage
		}
	}
	return ""
}

func fail(errOut io.Writer, err error) int {
	fmt.Fprintln(errOut, "error:", strings.TrimSpace(err.Error()))
	return 1
}
