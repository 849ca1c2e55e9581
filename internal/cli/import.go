package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgshp/internal/config"
	"github.com/vvka-141/pgshp/internal/db"
	"github.com/vvka-141/pgshp/internal/filter"
	"github.com/vvka-141/pgshp/internal/pipeline"
	"github.com/vvka-141/pgshp/internal/postgis"
	"github.com/vvka-141/pgshp/internal/shapefile"
	"github.com/vvka-141/pgshp/internal/statename"
	"github.com/vvka-141/pgshp/pkg/pgshp"
)

type importFlagValues struct {
	boundaryType    boundaryTypeValue
	tableName       string
	dbURL           string
	state           string
	importCities    bool
	citiesShapefile string
	citiesTable     string
	boundariesDir   string
	tileURL         string
	configPath      string

	authMethod     string
	awsRegion      string
	googleInstance string
	azureTenantID  string
	azureClientID  string

	timeout time.Duration
}

func registerImportFlags(cmd *cobra.Command, flags *importFlagValues) {
	f := cmd.Flags()

	f.Var(&flags.boundaryType, "boundary-type",
		"Boundary dataset: standard (full precision) or carto (generalized)")
	f.StringVar(&flags.tableName, "table-name", pgshp.DefaultTableName,
		"Destination table for the district boundaries (optionally schema.table)")
	f.StringVar(&flags.dbURL, "db-url", pgshp.DefaultDatabaseURL,
		"PostgreSQL connection string (URI or ADO.NET format)\n"+
			"Precedence: --db-url > $PGSHP_DATABASE_URL > $DATABASE_URL > pgshp.yaml")
	f.StringVar(&flags.state, "state", pgshp.DefaultState,
		"Two-letter state code to filter on; empty imports every feature")
	f.BoolVar(&flags.importCities, "import-cities", false,
		"Also import the shapefile given by --cities-shapefile")
	f.StringVar(&flags.citiesShapefile, "cities-shapefile", "",
		"Path to the cities shapefile (required with --import-cities)")
	f.StringVar(&flags.citiesTable, "cities-table", pgshp.DefaultCitiesTable,
		"Destination table for the cities dataset")
	f.StringVar(&flags.boundariesDir, "boundaries-dir", "",
		"Directory holding the bundled boundary shapefiles\n"+
			"(default: boundaries/ next to the executable)")
	f.StringVar(&flags.tileURL, "tile-url", pgshp.DefaultTileURL,
		"Base URL of the vector tile server printed after each import")
	f.StringVar(&flags.configPath, "config", config.ConfigFileName,
		"Project config file; a missing default file is ignored")

	f.StringVar(&flags.authMethod, "auth-method", "",
		"Authentication: standard|aws-iam|google-iam|azure (default: standard)")
	f.StringVar(&flags.awsRegion, "aws-region", "",
		"AWS region for RDS IAM tokens (overrides $AWS_REGION)")
	f.StringVar(&flags.googleInstance, "google-instance", "",
		"Cloud SQL instance connection name (project:region:instance)")
	f.StringVar(&flags.azureTenantID, "azure-tenant-id", "",
		"Azure AD tenant/directory ID (overrides $AZURE_TENANT_ID)")
	f.StringVar(&flags.azureClientID, "azure-client-id", "",
		"Azure AD application/client ID (overrides $AZURE_CLIENT_ID)\n"+
			"The client secret is read from $AZURE_CLIENT_SECRET only")

	f.DurationVar(&flags.timeout, "timeout", 0,
		"Overall deadline for the run, e.g. 5m (default: none)")
}

// importRunner is the part of pipeline.Runner the command uses.
type importRunner interface {
	Run(ctx context.Context, cfg *pgshp.ImportConfig) ([]pipeline.Result, error)
}

// newImportRunner wires the production pipeline. Tests replace it.
var newImportRunner = func(cfg *pgshp.ImportConfig, names *statename.Resolver, logger pgshp.Logger) importRunner {
	importer := postgis.NewImporter(db.NewConnectorFactory(logger), logger, postgis.WithTileURL(cfg.TileURL))
	return pipeline.NewRunner(shapefile.NewLoader(logger), filter.New(names, logger), importer, logger)
}

func runImport(cmd *cobra.Command, flags *importFlagValues) error {
	verbose := getVerboseFlag(cmd)
	logger := newLogger(cmd, verbose)

	cfg, projectCfg, err := buildImportConfig(cmd, flags, db.LoadFromEnvironment(), logger)
	if err != nil {
		return err
	}

	names := statename.NewDefault()
	if projectCfg != nil {
		names = names.With(projectCfg.StateNames)
	}
	runner := newImportRunner(cfg, names, logger)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	// Handle interrupt signals (Ctrl+C, SIGTERM) by cancelling the import
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.ErrOrStderr(), "\n[INTERRUPT] Received interrupt signal, cancelling import...")
			cancel()
		case <-ctx.Done():
		}
	}()

	results, err := runner.Run(ctx, cfg)
	for _, r := range results {
		if r.Skipped {
			logger.Verbose("%s: skipped (%d features loaded)", r.Name, r.Loaded)
		} else {
			logger.Verbose("%s: %d of %d features written to %s", r.Name, r.Written, r.Loaded, r.Table)
		}
	}
	return err
}

// buildImportConfig resolves every setting as flag > environment >
// pgshp.yaml > default. It returns the project config (nil when absent)
// for the settings that are not part of ImportConfig.
func buildImportConfig(cmd *cobra.Command, flags *importFlagValues, env *db.EnvVars, logger pgshp.Logger) (*pgshp.ImportConfig, *config.ProjectConfig, error) {
	_ = godotenv.Load()

	projectCfg, err := loadProjectConfig(flags.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, nil, err
	}
	file := projectCfg
	if file == nil {
		file = &config.ProjectConfig{}
	} else {
		logger.Verbose("Loaded project config from %s", flags.configPath)
	}
	changed := cmd.Flags().Changed

	boundaryType := pgshp.BoundaryType(flags.boundaryType)
	if !changed("boundary-type") && file.BoundaryType != "" {
		boundaryType, err = pgshp.ParseBoundaryType(file.BoundaryType)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid boundary_type in %s: %w", flags.configPath, err)
		}
	}

	state := flags.state
	if !changed("state") && file.State != nil {
		state = *file.State
	}

	boundariesDir := flags.boundariesDir
	if !changed("boundaries-dir") {
		boundariesDir = firstNonEmpty(file.BoundariesDir, shapefile.DefaultBoundariesDir())
	}

	timeout := flags.timeout
	if !changed("timeout") && file.Timeout != "" {
		timeout, err = time.ParseDuration(file.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid timeout in %s: %w: %w", flags.configPath, pgshp.ErrInvalidConfig, err)
		}
	}

	urlFlag := ""
	if changed("db-url") {
		urlFlag = flags.dbURL
	}
	cloud := &db.CloudFlags{
		AuthMethod:     firstNonEmpty(flags.authMethod, file.Auth.Method),
		AWSRegion:      firstNonEmpty(flags.awsRegion, env.AWS_REGION, file.Auth.AWSRegion),
		GoogleInstance: firstNonEmpty(flags.googleInstance, file.Auth.GoogleInstance),
		AzureTenantID:  firstNonEmpty(flags.azureTenantID, env.AZURE_TENANT_ID, file.Auth.AzureTenantID),
		AzureClientID:  firstNonEmpty(flags.azureClientID, env.AZURE_CLIENT_ID, file.Auth.AzureClientID),
	}
	conn, source, err := db.ResolveConnection(urlFlag, cloud, env, file.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Verbose("Database: %s:%d/%s as %s (from %s, auth %s)",
		conn.Host, conn.Port, conn.Database, conn.Username, source, conn.AuthMethod)

	cfg := &pgshp.ImportConfig{
		BoundaryType:  boundaryType,
		BoundariesDir: boundariesDir,
		TableName:     layered(changed("table-name"), flags.tableName, file.TableName),
		Connection:    conn,
		State:         state,
		ImportCities:  flags.importCities,
		CitiesPath:    flags.citiesShapefile,
		CitiesTable:   layered(changed("cities-table"), flags.citiesTable, file.CitiesTable),
		TileURL:       layered(changed("tile-url"), flags.tileURL, file.TileURL),
		Timeout:       timeout,
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, projectCfg, nil
}

// loadProjectConfig returns nil when the default config file is absent.
// A file named explicitly with --config must exist.
func loadProjectConfig(path string, explicit bool) (*config.ProjectConfig, error) {
	projectCfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) && !explicit {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return projectCfg, nil
}

// layered returns the flag value when the flag was set, else the file
// value when present, else the flag default.
func layered(flagChanged bool, flagValue, fileValue string) string {
	if flagChanged || fileValue == "" {
		return flagValue
	}
	return fileValue
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
