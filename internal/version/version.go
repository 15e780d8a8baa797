package version

import "fmt"

var (
	// Version is the current version of IdeaForge. Overridden at build time with -ldflags.
	Version = "0.1.0"
)

// GetVersion returns the current version string
func GetVersion() string {
	return fmt.Sprintf("IdeaForge %s", Version)
}
