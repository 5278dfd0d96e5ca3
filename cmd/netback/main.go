package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"netback/internal/app"
	"netback/internal/config"
	"netback/internal/netback"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
func newApp(cmd *cobra.Command) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// promptPassword reads a password from the terminal without echoing it.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}

var rootCmd = &cobra.Command{
	Use:   "netback",
	Short: "Network device configuration backup tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Store:      %s\n", cfg.Store.Type)
		fmt.Printf("Blobs:      %s\n", cfg.Blobs.Type)
		fmt.Printf("Retention:  %d versions per device\n", cfg.Retention.MaxVersionsPerDevice)
		return nil
	},
}

// device command
var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "Manage devices",
}

var deviceAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Register a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hostname, _ := cmd.Flags().GetString("hostname")
		port, _ := cmd.Flags().GetInt("port")
		username, _ := cmd.Flags().GetString("username")

		if hostname == "" {
			return fmt.Errorf("--hostname is required")
		}
		if username == "" {
			return fmt.Errorf("--username is required")
		}

		password, err := promptPassword("Device password: ")
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		device, err := a.AddDevice(args[0], hostname, port, username, password)
		if err != nil {
			return fmt.Errorf("registering device: %w", err)
		}

		fmt.Printf("Registered device %s (%s)\n", device.Name, device.Hostname)
		return nil
	},
}

var deviceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		devices, err := a.ListDevices()
		if err != nil {
			return err
		}

		if len(devices) == 0 {
			fmt.Println("No devices registered.")
			return nil
		}

		for _, d := range devices {
			fmt.Printf("%-20s  %s@%s:%d\n", d.Name, d.Username, d.Hostname, d.Port)
		}
		return nil
	},
}

var deviceRemoveCmd = &cobra.Command{
	Use:   "remove NAME",
	Short: "Remove a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveDevice(args[0]); err != nil {
			return err
		}

		fmt.Printf("Removed device %s\n", args[0])
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup [NAME]",
	Short: "Back up device configurations",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return fmt.Errorf("specify a device name or --all")
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var records []*netback.BackupRecord
		if all {
			records, err = a.BackupAll(cmd.Context())
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
		} else {
			record, err := a.Backup(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			records = append(records, record)
		}

		for _, r := range records {
			printBackupRecord(r)
		}
		return nil
	},
}

func printBackupRecord(r *netback.BackupRecord) {
	if r.Status != netback.StatusSuccess {
		fmt.Printf("%-20s  %s\n", r.DeviceName, r.Status)
		return
	}
	fmt.Printf("%-20s  %s  %6d bytes  %d change(s), %d security\n",
		r.DeviceName, r.Status, r.FileSize, r.ChangesDetected, r.SecurityChanges)
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history [NAME]",
	Short: "View backup history",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		deviceName := ""
		if len(args) > 0 {
			deviceName = args[0]
		}

		records, err := a.History(deviceName, limit)
		if err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No backups recorded.")
			return nil
		}

		for _, r := range records {
			fmt.Printf("%s  %-20s  %s  %-8s  %d change(s)  %s\n",
				r.ID[:8],
				r.DeviceName,
				r.Timestamp.Format("2006-01-02 15:04:05"),
				r.Status,
				r.ChangesDetected,
				r.Duration.Truncate(time.Millisecond),
			)
		}
		return nil
	},
}

// changes command
var changesCmd = &cobra.Command{
	Use:   "changes RECORD_ID",
	Short: "View the changes detected by a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		changes, err := a.Changes(args[0])
		if err != nil {
			return err
		}

		if len(changes) == 0 {
			fmt.Println("No changes recorded.")
			return nil
		}

		for _, c := range changes {
			text := c.NewText
			marker := "+"
			if c.OldText != "" {
				text = c.OldText
				marker = "-"
			}
			sensitive := ""
			if c.Sensitive {
				sensitive = "  [security]"
			}
			fmt.Printf("%4d  %-8s  [%s] %s %s%s\n",
				c.LineNumber, c.Kind, c.Section, marker, text, sensitive)
		}
		return nil
	},
}

// search command
var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search stored configurations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deviceFilter, _ := cmd.Flags().GetString("device")
		fromStr, _ := cmd.Flags().GetString("from")
		toStr, _ := cmd.Flags().GetString("to")

		var tr netback.TimeRange
		var err error
		if fromStr != "" {
			tr.From, err = time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from date: %w", err)
			}
		}
		if toStr != "" {
			tr.To, err = time.Parse("2006-01-02", toStr)
			if err != nil {
				return fmt.Errorf("invalid --to date: %w", err)
			}
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.Search(cmd.Context(), args[0], deviceFilter, tr)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No matches found.")
			return nil
		}

		for _, res := range results {
			fmt.Printf("%s (%s)\n", res.Filename, res.CapturedAt.Format("2006-01-02 15:04:05"))
			for _, m := range res.Matches {
				fmt.Printf("  %d: %s\n", m.LineNumber, m.Content)
			}
		}
		return nil
	},
}

// alerts command
var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "View security alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		alerts, err := a.Alerts(limit)
		if err != nil {
			return err
		}

		if len(alerts) == 0 {
			fmt.Println("No security alerts.")
			return nil
		}

		for _, al := range alerts {
			fmt.Printf("%s  %-6s  %s\n",
				al.CreatedAt.Format("2006-01-02 15:04:05"), al.Severity, al.Message)
		}
		return nil
	},
}

// stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "View backup statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.Stats(time.Now().AddDate(0, 0, -days))
		if err != nil {
			return err
		}

		fmt.Printf("Backups (last %d days): %d total, %d successful, %d failed\n",
			days, stats.TotalBackups, stats.SuccessfulBackups, stats.FailedBackups)
		fmt.Printf("Security changes: %d\n", stats.SecurityChanges)
		fmt.Printf("Average size: %d bytes\n", stats.AverageSize)
		if !stats.LastBackupTime.IsZero() {
			fmt.Printf("Last backup: %s\n", stats.LastBackupTime.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

// tunnel command
var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Tunnel MTU advisories",
}

var tunnelMTUCmd = &cobra.Command{
	Use:   "mtu TYPE",
	Short: "Show the recommended MTU for a tunnel type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overhead, _ := cmd.Flags().GetInt("overhead")

		mtu := netback.OptimalMTU(args[0], overhead)
		fmt.Printf("%s: mtu=%d mss=%d\n", strings.ToLower(args[0]), mtu, netback.MSSClamp(mtu))
		return nil
	},
}

var tunnelScriptCmd = &cobra.Command{
	Use:   "script INTERFACE TYPE",
	Short: "Generate an MTU/MSS remediation script",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		advice := netback.AdviseTunnel(args[0], args[1])
		fmt.Print(advice.Script)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	// device subcommands
	deviceCmd.AddCommand(deviceAddCmd)
	deviceAddCmd.Flags().String("hostname", "", "Device hostname or IP")
	deviceAddCmd.Flags().Int("port", 22, "SSH port")
	deviceAddCmd.Flags().String("username", "", "SSH username")
	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceRemoveCmd)

	// tunnel subcommands
	tunnelCmd.AddCommand(tunnelMTUCmd)
	tunnelMTUCmd.Flags().Int("overhead", 0, "Extra per-packet overhead to subtract")
	tunnelCmd.AddCommand(tunnelScriptCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(deviceCmd)
	rootCmd.AddCommand(backupCmd)
	backupCmd.Flags().Bool("all", false, "Back up every registered device")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of records to show")
	rootCmd.AddCommand(changesCmd)
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().String("device", "", "Restrict to devices whose name contains this")
	searchCmd.Flags().String("from", "", "Only snapshots captured on or after this date (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "Only snapshots captured on or before this date (YYYY-MM-DD)")
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.Flags().IntP("limit", "n", 50, "Maximum number of alerts to show")
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().Int("days", 30, "Statistics window in days")
	rootCmd.AddCommand(tunnelCmd)
}
