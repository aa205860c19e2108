// Package config handles application configuration loading and validation.
package config

import "time"

// Default configuration values.
const (
	DefaultServiceName        = "beacond"
	DefaultServiceDisplayName = "Beacon Daemon"
	DefaultServiceDescription = "Publishes host heartbeats to monitoring"
	DefaultServiceScope       = "system"
	DefaultServiceKeepAlive   = true

	DefaultBeaconInterval  = 30 * time.Second
	DefaultBeaconCPUSample = 200 * time.Millisecond

	DefaultMetricsEnabled        = false
	DefaultMetricsPushgatewayURL = ""

	DefaultRetryMaxAttempts  = 3
	DefaultRetryInitialDelay = 5 * time.Second
	DefaultRetryMaxDelay     = 30 * time.Second

	DefaultAppriseEnabled = false
	DefaultAppriseURL     = ""
	DefaultAppriseKey     = ""
	DefaultAppriseNotify  = NotifyError

	DefaultLogLevel     = "info"
	DefaultLogMaxSizeMB = 10
)

// NotifyLevel represents when to send notifications.
type NotifyLevel string

const (
	// NotifyError sends notifications only on errors.
	NotifyError NotifyLevel = "error"
	// NotifyWarning sends notifications on errors and warnings.
	NotifyWarning NotifyLevel = "warning"
	// NotifyAlways sends notifications on every lifecycle transition.
	NotifyAlways NotifyLevel = "always"
)

// IsValid returns true if the notify level is valid.
func (n NotifyLevel) IsValid() bool {
	switch n {
	case NotifyError, NotifyWarning, NotifyAlways:
		return true
	default:
		return false
	}
}

// String returns the string representation of the notify level.
func (n NotifyLevel) String() string {
	return string(n)
}
