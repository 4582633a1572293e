package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownCustomer is returned when a customer name is not present
// in the registry.
var ErrUnknownCustomer = errors.New("unknown customer")

// ErrNoCustomerMatch is returned when no customer was named and the
// working directory is not inside any registered project path.
var ErrNoCustomerMatch = errors.New("customer could not be determined")

// Customer is one entry in the registry.
type Customer struct {
	// WorkspaceID is the target workspace for this customer.
	WorkspaceID string `yaml:"workspace_id"`

	// ProjectPath, when set, enables auto-detection: a working
	// directory under this path resolves to this customer.
	ProjectPath string `yaml:"project_path,omitempty"`
}

// Registry maps customer names to workspace targets.
type Registry struct {
	Customers map[string]Customer `yaml:"customers"`
}

// LoadRegistry reads and parses the registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading customer registry: %w", err)
	}
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parsing customer registry %s: %w", path, err)
	}
	if len(reg.Customers) == 0 {
		return nil, fmt.Errorf("customer registry %s defines no customers", path)
	}
	for name, c := range reg.Customers {
		if c.WorkspaceID == "" {
			return nil, fmt.Errorf("customer %q in %s has no workspace_id", name, path)
		}
	}
	return &reg, nil
}

// Names returns the registered customer names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.Customers))
	for name := range r.Customers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the customer name and entry for an explicit name, or
// auto-detects from the working directory when name is empty.
//
// Resolution order: explicit name (must exist), then the first
// registered customer whose project_path contains cwd. Anything else
// fails with the available names in the message.
func (r *Registry) Resolve(name, cwd string) (string, Customer, error) {
	if name != "" {
		c, ok := r.Customers[name]
		if !ok {
			return "", Customer{}, fmt.Errorf("%w: %q (available: %s)",
				ErrUnknownCustomer, name, strings.Join(r.Names(), ", "))
		}
		return name, c, nil
	}

	for _, candidate := range r.Names() {
		c := r.Customers[candidate]
		if c.ProjectPath != "" && strings.HasPrefix(cwd, c.ProjectPath) {
			return candidate, c, nil
		}
	}

	return "", Customer{}, fmt.Errorf("%w: pass --customer (available: %s); %s does not match any project_path",
		ErrNoCustomerMatch, strings.Join(r.Names(), ", "), cwd)
}

// ResolveWorkspace resolves a workspace id directly. An explicit
// workspace id wins; otherwise the customer registry is consulted; as
// a final fallback the GOODDATA_WORKSPACE environment variable is
// used. This mirrors the CLI's -w/--workspace behavior.
func ResolveWorkspace(workspaceID, customer, registryPath, cwd string) (string, error) {
	if workspaceID != "" {
		return workspaceID, nil
	}

	if reg, err := LoadRegistry(registryPath); err == nil {
		if _, c, rerr := reg.Resolve(customer, cwd); rerr == nil {
			return c.WorkspaceID, nil
		} else if customer != "" {
			// An explicitly named customer that doesn't resolve is a
			// hard configuration error, not a fallback case.
			return "", rerr
		}
	} else if customer != "" {
		return "", err
	}

	if ws := strings.TrimSpace(os.Getenv(EnvWorkspace)); ws != "" {
		return ws, nil
	}

	return "", fmt.Errorf("no workspace: pass --workspace, configure a customer in %s, or set %s",
		registryPath, EnvWorkspace)
}
