package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"vpn-provisioner/internal/builder"
	"vpn-provisioner/internal/config"
	"vpn-provisioner/internal/model"
	"vpn-provisioner/internal/panos"
	"vpn-provisioner/internal/parser"
	"vpn-provisioner/internal/provision"
	"vpn-provisioner/internal/report"

	"github.com/spf13/cobra"
)

var (
	configFile    string
	endpointsFile string
	provider      string
	endpointsDB   string
	siteGroup     string
	envFile       string
	dryRun        bool
	logLevel      string
	logFile       string
)

var _ provision.Device = (*panos.Session)(nil)

// newDevice opens the firewall session. Replaced in tests.
var newDevice = func(s *model.Settings) provision.Device {
	return panos.NewSessionFromSettings(s)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vpn-provisioner",
		Short: "Provision IPsec VPN endpoints on a PAN-OS firewall pair",
		Long: `vpn-provisioner reads remote endpoints and shared defaults, then creates the
IKE gateways, tunnel interfaces, IPsec tunnels, routes and security rules for
each endpoint on the active firewall. No commit is issued: review the
candidate configuration and commit it on the firewall yourself.`,
		RunE:         run,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&configFile, "config", "c", "config.toml", "Settings file (TOML)")
	rootCmd.Flags().StringVarP(&endpointsFile, "endpoints", "e", "endpoints.csv", "Endpoint list CSV file (for 'csv' provider)")
	rootCmd.Flags().StringVar(&provider, "provider", "csv", "Endpoint provider type: 'csv' or 'mariadb'")
	rootCmd.Flags().StringVar(&endpointsDB, "db", "", "Database connection string (for 'mariadb' provider)")
	rootCmd.Flags().StringVar(&siteGroup, "site-group", "", "Only provision endpoints of this site group (for 'mariadb' provider)")
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "Environment file holding "+config.APIKeyEnv)
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Build and print the objects without contacting the firewall")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := setupLogger(logLevel, logFile)
	slog.SetDefault(logger)
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	slog.Info("Starting VPN provisioner", "config", configFile, "provider", provider, "dry_run", dryRun)
	startTime := time.Now()

	// --- 1. Settings ---
	if err := config.LoadEnv(envFile, cmd.Flags().Changed("env-file")); err != nil {
		slog.Error("Failed to load environment file", "path", envFile, "error", err)
		return err
	}
	settings, err := config.Load(configFile)
	if err != nil {
		slog.Error("Failed to load settings", "path", configFile, "error", err)
		return err
	}
	perItem, err := config.PerItem(settings)
	if err != nil {
		return err
	}

	// --- 2. Endpoints ---
	endpoints, err := loadEndpoints(provider, endpointsFile, endpointsDB, siteGroup)
	if err != nil {
		slog.Error("Failed to load endpoints", "provider", provider, "error", err)
		return err
	}
	slog.Info("Endpoints loaded", "count", len(endpoints))

	if dryRun {
		plan, err := builder.Build(settings, endpoints)
		if err != nil {
			slog.Error("Failed to build objects", "error", err)
			return err
		}
		report.WritePlan(out, plan)
		return nil
	}

	// --- 3. HA pre-check ---
	fmt.Fprintln(out, "Connecting to firewalls")
	orch := provision.New(newDevice(settings), out, perItem)
	if err := orch.CheckHA(ctx); err != nil {
		slog.Error("HA pre-check failed", "error", err)
		return err
	}

	// --- 4. Build ---
	plan, err := builder.Build(settings, endpoints)
	if err != nil {
		slog.Error("Failed to build objects", "error", err)
		return err
	}
	for _, e := range endpoints {
		fmt.Fprintf(out, "Built objects for %s\n", e.Hostname)
	}

	// --- 5. Apply ---
	res, err := orch.Apply(ctx, plan)
	if err != nil {
		slog.Error("Provisioning aborted, candidate configuration is partially updated", "error", err)
		return err
	}
	if res.Router != nil {
		slog.Info("Virtual router updated", "router", res.Router.After.Name,
			"interfaces_before", len(res.Router.Before.Interfaces), "interfaces_after", len(res.Router.After.Interfaces))
	}
	if res.Group != nil {
		slog.Info("Address group updated", "group", res.Group.After.Name,
			"members_before", len(res.Group.Before.Static), "members_after", len(res.Group.After.Static))
	}

	fmt.Fprintln(out, "Done. Review and commit the candidate configuration on the firewall.")
	slog.Info("Provisioning complete", "endpoints", len(endpoints), "duration", time.Since(startTime))
	return nil
}

func setupLogger(level, logFilePath string) *slog.Logger {
	var logWriter io.Writer = os.Stderr
	if logFilePath != "" {
		f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			logWriter = f
		}
		// The logger is not set up yet, so a bad path silently falls back to stderr.
	}

	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO":
		lvl = slog.LevelInfo
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(logWriter, &slog.HandlerOptions{Level: lvl}))
}

func loadEndpoints(provider, csvPath, dbConnStr, siteGroup string) ([]model.EndpointRecord, error) {
	switch provider {
	case "csv":
		if csvPath == "" {
			return nil, fmt.Errorf("endpoints file path must be provided for csv provider")
		}
		file, err := os.Open(csvPath)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return parser.ParseEndpoints(file)
	case "mariadb":
		if dbConnStr == "" {
			return nil, fmt.Errorf("database connection string must be provided for mariadb provider")
		}
		p, err := parser.NewMariaDBProvider(dbConnStr, siteGroup)
		if err != nil {
			return nil, err
		}
		defer p.Close()
		if err := p.Load(); err != nil {
			return nil, err
		}
		return p.Endpoints, nil
	default:
		return nil, fmt.Errorf("unknown endpoint provider: %s", provider)
	}
}
