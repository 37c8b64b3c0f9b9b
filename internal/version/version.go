// ABOUTME: Product and version constants
// ABOUTME: Reported at startup, in mDNS TXT records and on the status screen
package version

var (
	// Version is overridden at build time with -ldflags "-X .../version.Version=..."
	Version = "0.3.0"

	// Product is the human-readable product name
	Product = "pcmbox"

	// Manufacturer identifies who built the appliance
	Manufacturer = "Resonate"
)

// String returns "product version"
func String() string {
	return Product + " " + Version
}
