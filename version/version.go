// Package version reports the build identity of the gscript toolchain.
package version

import "fmt"

const (
	VERSION = "0.1.0"
	COMMIT  = "dev"
	BUILT   = ""
)

// Version renders a human-readable version string for CLI banners.
func Version() string {
	return fmt.Sprintf("gscript %s (%s)", VERSION, BUILT)
}
