package vm

import "github.com/vctools/vctools/internal/config"

// invalidf marks operator mistakes: bad sizes, unknown settings, refused
// resizes. The CLI maps these to their own exit code so scripts can tell
// them from platform failures.
func invalidf(format string, args ...any) error {
	return config.Invalidf(format, args...)
}
