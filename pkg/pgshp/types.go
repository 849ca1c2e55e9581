package pgshp

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BoundaryType selects one of the bundled boundary datasets.
type BoundaryType string

const (
	// BoundaryStandard is the full-precision boundary set.
	BoundaryStandard BoundaryType = "standard"
	// BoundaryCarto is the generalized cartographic boundary set.
	BoundaryCarto BoundaryType = "carto"
)

// ParseBoundaryType validates a --boundary-type value.
func ParseBoundaryType(s string) (BoundaryType, error) {
	switch BoundaryType(s) {
	case BoundaryStandard, BoundaryCarto:
		return BoundaryType(s), nil
	}
	return "", fmt.Errorf("boundary type %q must be one of standard, carto: %w", s, ErrInvalidConfig)
}

// ConnectionConfig holds the parsed parameters of a database connection.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string

	// Cloud authentication parameters, used according to AuthMethod.
	AWSRegion         string
	GoogleInstance    string
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard     AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                         // AWS IAM Database Authentication
	AuthMethodGoogleIAM                      // Google Cloud SQL IAM
	AuthMethodAzureEntraID                   // Azure Active Directory (Entra ID)
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	case AuthMethodAzureEntraID:
		return "Azure Entra ID"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// ParseAuthMethod maps a --auth-method value to an AuthMethod.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard":
		return AuthMethodStandard, nil
	case "aws-iam", "aws":
		return AuthMethodAWSIAM, nil
	case "google-iam", "google", "gcp":
		return AuthMethodGoogleIAM, nil
	case "azure", "azure-entra-id", "entra":
		return AuthMethodAzureEntraID, nil
	}
	return AuthMethodStandard, fmt.Errorf("auth method %q: %w", s, ErrUnsupportedAuthMethod)
}

// DatabaseTarget binds a connection to a destination table.
// Importing into a target always replaces the table.
type DatabaseTarget struct {
	Connection *ConnectionConfig
	Table      string
}

// ImportJob is one collection bound to one target.
type ImportJob struct {
	ID         uuid.UUID
	Name       string
	Collection *FeatureCollection
	Target     DatabaseTarget
}

// NewImportJob creates a job with a fresh ID.
func NewImportJob(name string, fc *FeatureCollection, target DatabaseTarget) ImportJob {
	return ImportJob{
		ID:         uuid.New(),
		Name:       name,
		Collection: fc,
		Target:     target,
	}
}

// ImportConfig contains all parameters needed for one pgshp invocation.
type ImportConfig struct {
	// BoundaryType picks the bundled district shapefile.
	BoundaryType BoundaryType

	// BoundariesDir is the root under which the bundled subpaths live.
	BoundariesDir string

	// TableName is the destination for the district dataset.
	TableName string

	// Connection is the resolved database connection.
	Connection *ConnectionConfig

	// State is the two-letter filter code; empty disables filtering.
	State string

	// ImportCities enables the second pipeline pass.
	ImportCities bool
	CitiesPath   string
	CitiesTable  string

	// TileURL is the base URL printed in the post-import hint.
	TileURL string

	// Timeout bounds the whole run when positive.
	Timeout time.Duration
}

// Validate checks if the ImportConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
// A missing cities path is not checked here; it is reported only after the
// district import has run.
func (c *ImportConfig) Validate() error {
	var errs []error

	if _, err := ParseBoundaryType(string(c.BoundaryType)); err != nil {
		errs = append(errs, err)
	}
	if c.BoundariesDir == "" {
		errs = append(errs, fmt.Errorf("BoundariesDir is required: %w", ErrInvalidConfig))
	}
	if c.TableName == "" {
		errs = append(errs, fmt.Errorf("TableName is required: %w", ErrInvalidConfig))
	}
	if c.Connection == nil {
		errs = append(errs, fmt.Errorf("Connection is required: %w", ErrInvalidConfig))
	}
	if c.ImportCities && c.CitiesTable == "" {
		errs = append(errs, fmt.Errorf("CitiesTable is required with cities import: %w", ErrInvalidConfig))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}
