package pgshp

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
var (
	// ErrPathNotFound indicates a shapefile does not exist on disk.
	ErrPathNotFound = errors.New("shapefile not found")

	// ErrMissingFilterAttribute indicates neither STATE nor ADM1NAME is
	// present, so the dataset cannot be filtered. Not fatal: the dataset's
	// import is skipped.
	ErrMissingFilterAttribute = errors.New("no STATE or ADM1NAME attribute to filter on")

	// ErrMissingRequiredArgument indicates a flag required by another flag was not given.
	ErrMissingRequiredArgument = errors.New("missing required argument")

	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrImportFailed indicates the table could not be written.
	ErrImportFailed = errors.New("import failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrPathNotFound), errors.Is(err, ErrMissingRequiredArgument):
		return ExitGeneralError
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrImportFailed):
		return ExitImportFailed
	}

	errStr := err.Error()
	if isUsageError(errStr) {
		return ExitUsageError
	}
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

// isUsageError recognizes the error strings cobra and pflag produce for
// command line misuse.
func isUsageError(msg string) bool {
	for _, prefix := range []string{
		"unknown flag",
		"unknown shorthand flag",
		"unknown command",
		"accepts ",
		"required flag",
		"invalid argument",
		"flag needs an argument",
	} {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
