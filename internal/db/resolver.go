package db

import (
	"fmt"
	"os"

	"github.com/vvka-141/pgshp/pkg/pgshp"
)

// CloudFlags holds the authentication flags given on the command line.
// Empty fields fall back to the environment.
//
// There is deliberately no flag for the Azure client secret; it is read
// from AZURE_CLIENT_SECRET only.
type CloudFlags struct {
	AuthMethod     string
	AWSRegion      string
	GoogleInstance string
	AzureTenantID  string
	AzureClientID  string
}

// EnvVars is the subset of the environment that affects connections.
type EnvVars struct {
	PGSHP_DATABASE_URL string
	DATABASE_URL       string

	AWS_REGION string

	AZURE_TENANT_ID     string
	AZURE_CLIENT_ID     string
	AZURE_CLIENT_SECRET string
}

// LoadFromEnvironment reads EnvVars from the process environment.
func LoadFromEnvironment() *EnvVars {
	return &EnvVars{
		PGSHP_DATABASE_URL:  os.Getenv("PGSHP_DATABASE_URL"),
		DATABASE_URL:        os.Getenv("DATABASE_URL"),
		AWS_REGION:          os.Getenv("AWS_REGION"),
		AZURE_TENANT_ID:     os.Getenv("AZURE_TENANT_ID"),
		AZURE_CLIENT_ID:     os.Getenv("AZURE_CLIENT_ID"),
		AZURE_CLIENT_SECRET: os.Getenv("AZURE_CLIENT_SECRET"),
	}
}

// ResolveConnection picks the database URL and authentication settings.
//
// URL precedence: urlFlag (only when set explicitly), $PGSHP_DATABASE_URL,
// $DATABASE_URL, fileURL from pgshp.yaml, pgshp.DefaultDatabaseURL.
// The second result names the source that won, for logging.
func ResolveConnection(urlFlag string, flags *CloudFlags, env *EnvVars, fileURL string) (*pgshp.ConnectionConfig, string, error) {
	if flags == nil {
		flags = &CloudFlags{}
	}
	if env == nil {
		env = &EnvVars{}
	}

	connStr, source := pgshp.DefaultDatabaseURL, "default"
	switch {
	case urlFlag != "":
		connStr, source = urlFlag, "--db-url"
	case env.PGSHP_DATABASE_URL != "":
		connStr, source = env.PGSHP_DATABASE_URL, "$PGSHP_DATABASE_URL"
	case env.DATABASE_URL != "":
		connStr, source = env.DATABASE_URL, "$DATABASE_URL"
	case fileURL != "":
		connStr, source = fileURL, "config file"
	}

	config, err := ParseConnectionString(connStr)
	if err != nil {
		return nil, source, fmt.Errorf("database URL from %s: %w", source, err)
	}

	method, err := pgshp.ParseAuthMethod(flags.AuthMethod)
	if err != nil {
		return nil, source, err
	}
	config.AuthMethod = method

	config.AWSRegion = flags.AWSRegion
	if config.AWSRegion == "" {
		config.AWSRegion = env.AWS_REGION
	}
	config.GoogleInstance = flags.GoogleInstance

	applyAzureAuth(config, flags, env)
	return config, source, nil
}

// applyAzureAuth attaches Azure credentials (flag over env). When no auth
// method was chosen explicitly, the presence of a tenant or client ID
// switches the connection to Entra ID.
func applyAzureAuth(config *pgshp.ConnectionConfig, flags *CloudFlags, env *EnvVars) {
	tenantID := flags.AzureTenantID
	if tenantID == "" {
		tenantID = env.AZURE_TENANT_ID
	}
	clientID := flags.AzureClientID
	if clientID == "" {
		clientID = env.AZURE_CLIENT_ID
	}

	config.AzureTenantID = tenantID
	config.AzureClientID = clientID
	config.AzureClientSecret = env.AZURE_CLIENT_SECRET

	if flags.AuthMethod == "" && (tenantID != "" || clientID != "") {
		config.AuthMethod = pgshp.AuthMethodAzureEntraID
	}
}
