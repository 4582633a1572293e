package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackless-analytics/gooddata-cli/internal/config"
	"github.com/stackless-analytics/gooddata-cli/internal/gooddata"
)

var (
	flagCustomer  string
	flagWorkspace string
	flagRegistry  string
	flagJSON      bool
)

var rootCmd = &cobra.Command{
	Use:   "gdc",
	Short: "GoodData Cloud client",
	Long: `gdc is a thin client for the GoodData Cloud API.

Credentials come from GOODDATA_HOST and GOODDATA_TOKEN. Workspaces are
resolved from --workspace, the customer registry (--customer or
current-directory auto-detect), or GOODDATA_WORKSPACE, in that order.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagCustomer, "customer", "", "customer name from the registry")
	rootCmd.PersistentFlags().StringVar(&flagWorkspace, "workspace", "", "workspace ID (overrides customer resolution)")
	rootCmd.PersistentFlags().StringVar(&flagRegistry, "registry", "", "path to the customer registry (default ~/.config/gooddata/workspaces.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output JSON instead of tables")
}

// setupLogging configures slog from GOODDATA_LOG_FORMAT. Logs go to
// stderr so stdout stays clean for command output and MCP traffic.
func setupLogging() {
	var handler slog.Handler
	if os.Getenv(config.EnvLogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

// fatal prints an error and exits. In shell mode it panics with a
// recoverable shellError instead, so the interactive loop survives
// failed commands.
func fatal(format string, args ...any) {
	if shellMode {
		panic(shellError(fmt.Sprintf(format, args...)))
	}
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// newClient builds an API client from environment credentials.
func newClient() *gooddata.Client {
	creds, err := config.CredentialsFromEnv()
	if err != nil {
		fatal("%v", err)
	}
	return gooddata.New(creds)
}

// registryPath returns the customer registry path, honoring --registry.
func registryPath() string {
	if flagRegistry != "" {
		return flagRegistry
	}
	path, err := config.DefaultRegistryPath()
	if err != nil {
		fatal("locating customer registry: %v", err)
	}
	return path
}

// stateDir returns the local state directory for backups and audit
// logs.
func stateDir() string {
	dir, err := config.DefaultStateDir()
	if err != nil {
		fatal("locating state directory: %v", err)
	}
	return dir
}

// resolveWorkspaceID resolves the target workspace from the
// --workspace flag, the customer registry, or the environment.
func resolveWorkspaceID() string {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	workspaceID, err := config.ResolveWorkspace(flagWorkspace, flagCustomer, registryPath(), cwd)
	if err != nil {
		fatal("%v", err)
	}
	return workspaceID
}

// resolveCustomer resolves the customer name for state-scoped
// operations (backups, audit log).
func resolveCustomer() string {
	registry, err := config.LoadRegistry(registryPath())
	if err != nil {
		fatal("%v", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	name, _, err := registry.Resolve(flagCustomer, cwd)
	if err != nil {
		fatal("%v", err)
	}
	return name
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("encoding output: %v", err)
	}
	fmt.Println(string(data))
}
