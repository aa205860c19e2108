package domain

import (
	"context"
	"fmt"
)

// NotificationLevel represents the severity of a notification.
type NotificationLevel string

const (
	// NotificationLevelInfo is for informational messages.
	NotificationLevelInfo NotificationLevel = "info"
	// NotificationLevelWarning is for warning messages.
	NotificationLevelWarning NotificationLevel = "warning"
	// NotificationLevelError is for error messages.
	NotificationLevelError NotificationLevel = "error"
)

// Notification represents a notification to be sent.
type Notification struct {
	// Title is the notification title.
	Title string `json:"title"`

	// Body is the notification body/message.
	Body string `json:"body"`

	// Level is the severity level.
	Level NotificationLevel `json:"level"`
}

// NewNotification creates a new notification.
func NewNotification(title, body string, level NotificationLevel) *Notification {
	return &Notification{
		Title: title,
		Body:  body,
		Level: level,
	}
}

// StartedNotification announces that the service body began running.
func StartedNotification(service, host string) *Notification {
	return NewNotification(
		fmt.Sprintf("%s started", service),
		fmt.Sprintf("%s is running on %s.", service, host),
		NotificationLevelInfo,
	)
}

// StoppedNotification announces a clean shutdown.
func StoppedNotification(service, host string) *Notification {
	return NewNotification(
		fmt.Sprintf("%s stopped", service),
		fmt.Sprintf("%s on %s shut down after a stop request.", service, host),
		NotificationLevelInfo,
	)
}

// PausedNotification announces that heartbeats are suspended.
func PausedNotification(service, host string) *Notification {
	return NewNotification(
		fmt.Sprintf("%s paused", service),
		fmt.Sprintf("%s on %s paused; heartbeats are suspended until it resumes.", service, host),
		NotificationLevelWarning,
	)
}

// ResumedNotification announces that heartbeats resumed after a pause.
func ResumedNotification(service, host string) *Notification {
	return NewNotification(
		fmt.Sprintf("%s resumed", service),
		fmt.Sprintf("%s on %s resumed heartbeats.", service, host),
		NotificationLevelInfo,
	)
}

// FailureNotification reports a service body that exited with an error.
func FailureNotification(service, host string, err error) *Notification {
	return NewNotification(
		fmt.Sprintf("%s failed", service),
		fmt.Sprintf("%s on %s exited with an error: %v", service, host, err),
		NotificationLevelError,
	)
}

// Notifier defines the interface for sending notifications.
type Notifier interface {
	// Notify sends a notification.
	Notify(ctx context.Context, notification *Notification) error

	// Validate checks if the notifier is properly configured.
	Validate(ctx context.Context) error
}

// NopNotifier is a no-op notifier that does nothing.
type NopNotifier struct{}

// Notify does nothing.
func (n *NopNotifier) Notify(_ context.Context, _ *Notification) error {
	return nil
}

// Validate always returns nil.
func (n *NopNotifier) Validate(_ context.Context) error {
	return nil
}
