package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgshp/internal/logging"
	"github.com/vvka-141/pgshp/pkg/pgshp"
)

const rootLong = `pgshp loads the bundled 119th Congress district boundaries into a PostGIS
table, optionally filtered to one state, and can load a cities shapefile
into a second table the same way. Each run drops and recreates its tables.

Settings are resolved in this order: command line flag, environment
(PGSHP_DATABASE_URL, DATABASE_URL, AWS_REGION, AZURE_*), pgshp.yaml,
built-in default. A .env file in the working directory is loaded first.

Exit Codes:
  0  - Success (a dataset skipped for lack of a state attribute included)
  1  - Shapefile not found, or --import-cities without --cities-shapefile
  2  - CLI usage error (unknown flag, invalid --boundary-type)
  3  - Panic or unexpected system error
  10 - Invalid configuration
  11 - Database connection failed
  13 - Table create or row insert failed`

const rootExample = `  # Carto boundaries for California into the default table
  pgshp

  # Full-precision boundaries for Texas
  pgshp --boundary-type standard --state TX --table-name tx_congress_districts_119

  # Districts plus cities
  pgshp --import-cities --cities-shapefile ./cities/cities.shp

  # All states, verbose
  pgshp --state "" -v`

// newRootCmd builds the pgshp command tree. Each call returns fresh flag
// state.
func newRootCmd() *cobra.Command {
	flags := &importFlagValues{boundaryType: boundaryTypeValue(pgshp.DefaultBoundaryType)}

	cmd := &cobra.Command{
		Use:          "pgshp",
		Short:        "Import congressional district shapefiles into PostGIS",
		Long:         rootLong,
		Example:      rootExample,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, flags)
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	registerImportFlags(cmd, flags)
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo(os.Stdout)
		return nil
	}
	return newRootCmd().Execute()
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}

// newLogger returns a console logger on the command's error stream.
// Color is only used when that stream is the real stderr.
func newLogger(cmd *cobra.Command, verbose bool) pgshp.Logger {
	w := cmd.ErrOrStderr()
	if w == io.Writer(os.Stderr) {
		return logging.NewConsoleLogger(verbose)
	}
	return logging.NewWriterLogger(w, verbose)
}

// boundaryTypeValue is a pflag.Value so an invalid --boundary-type is
// reported as a usage error.
type boundaryTypeValue pgshp.BoundaryType

func (b *boundaryTypeValue) String() string { return string(*b) }

func (b *boundaryTypeValue) Set(s string) error {
	if _, err := pgshp.ParseBoundaryType(s); err != nil {
		return errors.New("must be one of standard, carto")
	}
	*b = boundaryTypeValue(s)
	return nil
}

func (b *boundaryTypeValue) Type() string { return "string" }
