//go:build !windows

package platform

import (
	"os"

	"github.com/avkarenow/beacond/internal/domain"
)

// newSCMController exists so the factory compiles on every platform; the
// Windows build provides the real implementation.
func newSCMController(_ domain.ServiceSpec, _ controllerOptions) (domain.Controller, error) {
	return nil, domain.ErrUnsupportedPlatform
}

// IsRunningAsService reports whether the process was launched by a service
// manager rather than an interactive shell. systemd sets INVOCATION_ID for
// every unit it starts; launchd sets XPC_SERVICE_NAME, with "0" marking
// processes outside any job.
func IsRunningAsService() bool {
	if os.Getenv("INVOCATION_ID") != "" {
		return true
	}
	if name := os.Getenv("XPC_SERVICE_NAME"); name != "" && name != "0" {
		return true
	}
	return false
}
