package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv(EnvHost, "https://acme.cloud.gooddata.com")
	t.Setenv(EnvToken, "  secret-token  ")

	creds, err := CredentialsFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://acme.cloud.gooddata.com", creds.Host)
	assert.Equal(t, "secret-token", creds.Token)
}

func TestCredentialsFromEnvValidates(t *testing.T) {
	t.Setenv(EnvHost, "https://acme.cloud.gooddata.com")
	t.Setenv(EnvToken, "")

	_, err := CredentialsFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvToken)
}

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr string
	}{
		{
			name:  "valid https",
			creds: Credentials{Host: "https://acme.cloud.gooddata.com", Token: "tok"},
		},
		{
			name:  "valid http",
			creds: Credentials{Host: "http://localhost:3000", Token: "tok"},
		},
		{
			name:    "missing host",
			creds:   Credentials{Token: "tok"},
			wantErr: EnvHost,
		},
		{
			name:    "host without scheme",
			creds:   Credentials{Host: "acme.cloud.gooddata.com", Token: "tok"},
			wantErr: "http(s) URL",
		},
		{
			name:    "missing token",
			creds:   Credentials{Host: "https://acme.cloud.gooddata.com"},
			wantErr: EnvToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workspaces.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleRegistry = `
customers:
  acme:
    workspace_id: ws-acme
    project_path: /home/dev/projects/acme
  globex:
    workspace_id: ws-globex
`

func TestLoadRegistry(t *testing.T) {
	path := writeRegistry(t, sampleRegistry)

	registry, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "globex"}, registry.Names())
	assert.Equal(t, "ws-acme", registry.Customers["acme"].WorkspaceID)
	assert.Equal(t, "/home/dev/projects/acme", registry.Customers["acme"].ProjectPath)
}

func TestLoadRegistryRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", "customers: {}"},
		{"missing workspace id", "customers:\n  acme:\n    project_path: /p"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRegistry(writeRegistry(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestRegistryResolve(t *testing.T) {
	registry, err := LoadRegistry(writeRegistry(t, sampleRegistry))
	require.NoError(t, err)

	t.Run("explicit name", func(t *testing.T) {
		name, customer, err := registry.Resolve("globex", "/anywhere")
		require.NoError(t, err)
		assert.Equal(t, "globex", name)
		assert.Equal(t, "ws-globex", customer.WorkspaceID)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, _, err := registry.Resolve("initech", "/anywhere")
		require.ErrorIs(t, err, ErrUnknownCustomer)
		assert.Contains(t, err.Error(), "acme, globex")
	})

	t.Run("cwd auto-detect", func(t *testing.T) {
		name, customer, err := registry.Resolve("", "/home/dev/projects/acme/dashboards")
		require.NoError(t, err)
		assert.Equal(t, "acme", name)
		assert.Equal(t, "ws-acme", customer.WorkspaceID)
	})

	t.Run("no match", func(t *testing.T) {
		_, _, err := registry.Resolve("", "/home/dev/projects/unrelated")
		require.ErrorIs(t, err, ErrNoCustomerMatch)
	})
}

func TestResolveWorkspacePrecedence(t *testing.T) {
	path := writeRegistry(t, sampleRegistry)

	t.Run("explicit workspace wins", func(t *testing.T) {
		t.Setenv(EnvWorkspace, "ws-env")
		ws, err := ResolveWorkspace("ws-explicit", "acme", path, "/anywhere")
		require.NoError(t, err)
		assert.Equal(t, "ws-explicit", ws)
	})

	t.Run("registry beats environment", func(t *testing.T) {
		t.Setenv(EnvWorkspace, "ws-env")
		ws, err := ResolveWorkspace("", "acme", path, "/anywhere")
		require.NoError(t, err)
		assert.Equal(t, "ws-acme", ws)
	})

	t.Run("environment fallback", func(t *testing.T) {
		t.Setenv(EnvWorkspace, "ws-env")
		ws, err := ResolveWorkspace("", "", path, "/not/in/any/project")
		require.NoError(t, err)
		assert.Equal(t, "ws-env", ws)
	})

	t.Run("unknown customer is fatal even with env set", func(t *testing.T) {
		t.Setenv(EnvWorkspace, "ws-env")
		_, err := ResolveWorkspace("", "initech", path, "/anywhere")
		assert.ErrorIs(t, err, ErrUnknownCustomer)
	})

	t.Run("nothing resolves", func(t *testing.T) {
		t.Setenv(EnvWorkspace, "")
		_, err := ResolveWorkspace("", "", path, "/not/in/any/project")
		require.Error(t, err)
		assert.Contains(t, err.Error(), EnvWorkspace)
	})

	t.Run("missing registry falls back to env", func(t *testing.T) {
		t.Setenv(EnvWorkspace, "ws-env")
		ws, err := ResolveWorkspace("", "", "/nonexistent/workspaces.yaml", "/anywhere")
		require.NoError(t, err)
		assert.Equal(t, "ws-env", ws)
	})
}
