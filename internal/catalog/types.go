// Package catalog defines the domain entities of the GoodData metadata
// catalog and the interfaces the rest of the tool consumes: a read-only
// Service for enumeration and a Gateway for fetching and persisting
// individual objects. Both are implemented by internal/gooddata and by
// test fakes, so nothing above this package touches the wire format.
package catalog

import "context"

// AssigneeKind distinguishes whether a permission is granted to an
// individual user or to a user group.
type AssigneeKind string

const (
	AssigneeUser  AssigneeKind = "user"
	AssigneeGroup AssigneeKind = "userGroup"
)

// User is an organization member. Name and Email are optional; the
// API omits them for machine accounts.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Group is a user group. Name is optional.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Workspace is a GoodData workspace. ParentID is set for child
// workspaces in a workspace hierarchy.
type Workspace struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// PermissionAssignment is a single permission granted on a workspace
// to a user or group.
type PermissionAssignment struct {
	WorkspaceID  string       `json:"workspace_id"`
	AssigneeID   string       `json:"assignee_id"`
	AssigneeKind AssigneeKind `json:"assignee_type"`
	Name         string       `json:"name"`
}

// WorkspacePermission is a workspace-scoped permission held directly
// by a user or group, as reported by the per-entity permission API.
type WorkspacePermission struct {
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"permission"`
}

// DeclarativeUser is a user record from the declarative user API,
// carrying the user's group memberships.
type DeclarativeUser struct {
	ID       string
	GroupIDs []string
}

// DeclarativeGroup is a group record from the declarative group API,
// carrying the group's parent groups.
type DeclarativeGroup struct {
	ID        string
	ParentIDs []string
}

// Insight is a visualization object summary.
type Insight struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Dashboard is an analytical dashboard summary.
type Dashboard struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Metric is a metric (MAQL measure) summary.
type Metric struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Format string `json:"format,omitempty"`
}

// Dataset is a logical data model dataset summary.
type Dataset struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Service is the read-only catalog abstraction consumed by the
// analyzer and the CLI listing commands. Implementations must return
// results in the API's iteration order; the analyzer's report ordering
// depends on it.
type Service interface {
	ListUsers(ctx context.Context) ([]User, error)
	ListGroups(ctx context.Context) ([]Group, error)
	DeclarativeUsers(ctx context.Context) ([]DeclarativeUser, error)
	DeclarativeGroups(ctx context.Context) ([]DeclarativeGroup, error)
	ListWorkspaces(ctx context.Context) ([]Workspace, error)

	// WorkspacePermissions may fail per workspace with an access-denied
	// condition; callers treat that as a skippable error.
	WorkspacePermissions(ctx context.Context, workspaceID string) ([]PermissionAssignment, error)
	UserPermissions(ctx context.Context, userID string) ([]WorkspacePermission, error)
	GroupPermissions(ctx context.Context, groupID string) ([]WorkspacePermission, error)
}
