// Package config loads the connection credentials and the customer
// registry. Credentials come from the environment; the registry maps
// customer names to workspace ids and lives in a YAML file under the
// user's config directory. Configuration errors are the one class of
// failure that aborts a run outright: nothing useful can proceed
// without a host, a token, and a resolvable workspace.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Env variable names recognized by the tool.
const (
	EnvHost      = "GOODDATA_HOST"
	EnvToken     = "GOODDATA_TOKEN"
	EnvWorkspace = "GOODDATA_WORKSPACE"
	EnvLogFormat = "GOODDATA_LOG_FORMAT"
)

// Credentials holds the API endpoint and token.
type Credentials struct {
	// Host is the GoodData deployment URL, e.g. https://acme.cloud.gooddata.com.
	Host string

	// Token is the personal access token sent as a bearer credential.
	Token string
}

// CredentialsFromEnv reads credentials from the environment.
func CredentialsFromEnv() (Credentials, error) {
	creds := Credentials{
		Host:  strings.TrimSpace(os.Getenv(EnvHost)),
		Token: strings.TrimSpace(os.Getenv(EnvToken)),
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// Validate checks that both credential values are present and that the
// host looks like a URL.
func (c Credentials) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%s environment variable is not set", EnvHost)
	}
	if !strings.HasPrefix(c.Host, "http://") && !strings.HasPrefix(c.Host, "https://") {
		return fmt.Errorf("%s must be an http(s) URL (got %q)", EnvHost, c.Host)
	}
	if c.Token == "" {
		return fmt.Errorf("%s environment variable is not set", EnvToken)
	}
	return nil
}

// DefaultRegistryPath returns the customer registry location,
// ~/.config/gooddata/workspaces.yaml.
func DefaultRegistryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "gooddata", "workspaces.yaml"), nil
}

// DefaultStateDir returns the per-customer state directory root,
// ~/.config/stackless/gooddata. Backups and audit logs live beneath it.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "stackless", "gooddata"), nil
}
