package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avkarenow/beacond/internal/config"
	"github.com/avkarenow/beacond/internal/domain"
	"github.com/avkarenow/beacond/internal/platform"
)

// newController loads the configuration, derives the service spec from it,
// and builds the controller for this platform. The spec points at the
// running binary so the installed service starts the same executable.
func newController() (domain.Controller, *config.Config, error) {
	if err := platform.Available(); err != nil {
		return nil, nil, fmt.Errorf("service management is not available: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	exe, err := os.Executable()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve executable path: %w", err)
	}

	spec, err := cfg.Service.Spec(exe)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid service configuration: %w", err)
	}

	ctrl, err := platform.New(spec)
	if err != nil {
		return nil, nil, err
	}

	return ctrl, cfg, nil
}

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install as a system service",
		Long: `Install beacond as a service of the native service manager.

On macOS this writes a launchd property list, on Linux a systemd unit,
and on Windows a Service Control Manager entry. The service runs the
currently executing binary.`,
		RunE: runInstallService,
	}

	return cmd
}

func runInstallService(cmd *cobra.Command, args []string) error {
	ctrl, cfg, err := newController()
	if err != nil {
		return err
	}

	if err := ctrl.Install(cmd.Context()); err != nil {
		return fmt.Errorf("failed to install service: %w", err)
	}

	fmt.Printf("Service %s installed.\n", cfg.Service.Name)
	fmt.Println("Use 'beacond start' to start the service.")
	return nil
}

// NewUninstallCmd creates the uninstall command.
func NewUninstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the system service",
		Long:  `Deregister beacond from the service manager and remove its descriptor.`,
		RunE:  runUninstallService,
	}

	return cmd
}

func runUninstallService(cmd *cobra.Command, args []string) error {
	ctrl, cfg, err := newController()
	if err != nil {
		return err
	}

	if err := ctrl.Uninstall(cmd.Context()); err != nil {
		return fmt.Errorf("failed to uninstall service: %w", err)
	}

	fmt.Printf("Service %s uninstalled.\n", cfg.Service.Name)
	return nil
}

// NewStartCmd creates the start command.
func NewStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the installed service",
		Long:  `Start the installed beacond service.`,
		RunE:  runStartService,
	}

	return cmd
}

func runStartService(cmd *cobra.Command, args []string) error {
	ctrl, cfg, err := newController()
	if err != nil {
		return err
	}

	if err := ctrl.Start(cmd.Context()); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	fmt.Printf("Service %s started.\n", cfg.Service.Name)
	return nil
}

// NewStopCmd creates the stop command.
func NewStopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the installed service",
		Long:  `Stop the installed beacond service.`,
		RunE:  runStopService,
	}

	return cmd
}

func runStopService(cmd *cobra.Command, args []string) error {
	ctrl, cfg, err := newController()
	if err != nil {
		return err
	}

	if err := ctrl.Stop(cmd.Context()); err != nil {
		return fmt.Errorf("failed to stop service: %w", err)
	}

	fmt.Printf("Service %s stopped.\n", cfg.Service.Name)
	return nil
}

// NewEnableCmd creates the enable command.
func NewEnableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Hand the service descriptor to the service manager",
		Long: `Load the installed descriptor into the service manager without
reinstalling it. On launchd this loads the property list, on systemd it
enables the unit, on Windows it sets the start type to automatic.`,
		RunE: runEnableService,
	}

	return cmd
}

func runEnableService(cmd *cobra.Command, args []string) error {
	ctrl, cfg, err := newController()
	if err != nil {
		return err
	}

	if err := ctrl.Enable(cmd.Context()); err != nil {
		return fmt.Errorf("failed to enable service: %w", err)
	}

	fmt.Printf("Service %s enabled.\n", cfg.Service.Name)
	return nil
}

// NewDisableCmd creates the disable command.
func NewDisableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disable",
		Short: "Withdraw the service from the service manager",
		Long: `Unload the service from the service manager while keeping the
descriptor on disk, so it can be enabled again later.`,
		RunE: runDisableService,
	}

	return cmd
}

func runDisableService(cmd *cobra.Command, args []string) error {
	ctrl, cfg, err := newController()
	if err != nil {
		return err
	}

	if err := ctrl.Disable(cmd.Context()); err != nil {
		return fmt.Errorf("failed to disable service: %w", err)
	}

	fmt.Printf("Service %s disabled.\n", cfg.Service.Name)
	return nil
}

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show service status",
		Long:  `Display the current status of the installed beacond service.`,
		RunE:  runStatusService,
	}

	return cmd
}

func runStatusService(cmd *cobra.Command, args []string) error {
	ctrl, cfg, err := newController()
	if err != nil {
		return err
	}

	status, err := ctrl.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get service status: %w", err)
	}

	fmt.Printf("Service: %s\n", cfg.Service.Name)
	fmt.Printf("State: %s\n", status.State)
	if status.PID > 0 {
		fmt.Printf("PID: %d\n", status.PID)
	}
	if status.Message != "" {
		fmt.Printf("Message: %s\n", status.Message)
	}

	return nil
}
