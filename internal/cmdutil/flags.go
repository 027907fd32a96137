// Package cmdutil holds what every nsotctl subcommand shares: global flags,
// service construction, output formats and failure messages.
package cmdutil

import (
	"strconv"

	"github.com/paularlott/cli"
)

// Output formats
const (
	FormatTable      = "table"
	FormatJSON       = "json"
	FormatYAML       = "yaml"
	FormatGrep       = "grep"
	FormatNaturalKey = "natural-key"
)

// GlobalFlags are registered on the root command and inherited by every
// subcommand.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Usage:   "NSoT API URL",
			EnvVars: []string{"NSOT_URL"},
			Global:  true,
		},
		&cli.StringFlag{
			Name:    "site",
			Usage:   "Site ID (defaults to default_site from the dotfile)",
			EnvVars: []string{"NSOT_DEFAULT_SITE"},
			Global:  true,
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to the dotfile (default ~/.pynsotrc)",
			EnvVars: []string{"NSOT_CONFIG"},
			Global:  true,
		},
		&cli.StringFlag{
			Name:    "data-dir",
			Usage:   "Directory holding the snapshot database",
			EnvVars: []string{"NSOT_DATA_DIR"},
			Global:  true,
		},
		&cli.BoolFlag{
			Name:   "offline",
			Usage:  "Navigate networks from the latest local snapshot instead of the API",
			Global: true,
		},
		&cli.IntFlag{
			Name:         "workers",
			Usage:        "Concurrent predicate lookups for set queries",
			DefaultValue: 4,
			Global:       true,
		},
		&cli.StringFlag{
			Name:         "output",
			Usage:        "Output format (table, json, yaml, grep, natural-key)",
			DefaultValue: FormatTable,
			EnvVars:      []string{"NSOT_OUTPUT"},
			Global:       true,
		},
		&cli.BoolFlag{
			Name:   "natural-key",
			Usage:  "Shorthand for --output natural-key",
			Global: true,
		},
		&cli.BoolFlag{
			Name:   "delimited",
			Usage:  "With natural-key output, join keys with commas",
			Global: true,
		},
	}
}

// SiteFlag returns the --site value as an ID, zero when unset or invalid.
func SiteFlag(cmd *cli.Command) int {
	n, _ := strconv.Atoi(cmd.GetString("site"))
	return n
}
