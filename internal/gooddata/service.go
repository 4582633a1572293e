package gooddata

import (
	"context"
	"fmt"
	"strings"

	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

// entityPage is one page of a JSON:API entity collection.
type entityPage struct {
	Data  []entityRecord `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// entityRecord is a generic JSON:API resource object; only the fields
// the listings use are decoded.
type entityRecord struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes struct {
		Name      string `json:"name"`
		Firstname string `json:"firstname"`
		Lastname  string `json:"lastname"`
		Email     string `json:"email"`
		Title     string `json:"title"`
		Content   struct {
			Format string `json:"format"`
		} `json:"content"`
	} `json:"attributes"`
	Relationships struct {
		Parent struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"parent"`
	} `json:"relationships"`
}

// listEntities walks all pages of an entity collection in API order.
func (c *Client) listEntities(ctx context.Context, collection string) ([]entityRecord, error) {
	var records []entityRecord
	for page := 0; ; page++ {
		path := fmt.Sprintf("%s?page=%d&size=%d", collection, page, pageSize)
		var resp entityPage
		if err := c.getJSON(ctx, path, &resp); err != nil {
			return nil, err
		}
		records = append(records, resp.Data...)
		if len(resp.Data) < pageSize {
			return records, nil
		}
	}
}

// ListUsers returns all organization users.
func (c *Client) ListUsers(ctx context.Context) ([]catalog.User, error) {
	records, err := c.listEntities(ctx, "/api/v1/entities/users")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	users := make([]catalog.User, 0, len(records))
	for _, r := range records {
		name := strings.TrimSpace(r.Attributes.Firstname + " " + r.Attributes.Lastname)
		users = append(users, catalog.User{ID: r.ID, Name: name, Email: r.Attributes.Email})
	}
	return users, nil
}

// ListGroups returns all user groups.
func (c *Client) ListGroups(ctx context.Context) ([]catalog.Group, error) {
	records, err := c.listEntities(ctx, "/api/v1/entities/userGroups")
	if err != nil {
		return nil, fmt.Errorf("listing user groups: %w", err)
	}
	groups := make([]catalog.Group, 0, len(records))
	for _, r := range records {
		groups = append(groups, catalog.Group{ID: r.ID, Name: r.Attributes.Name})
	}
	return groups, nil
}

// ListWorkspaces returns all workspaces.
func (c *Client) ListWorkspaces(ctx context.Context) ([]catalog.Workspace, error) {
	records, err := c.listEntities(ctx, "/api/v1/entities/workspaces")
	if err != nil {
		return nil, fmt.Errorf("listing workspaces: %w", err)
	}
	workspaces := make([]catalog.Workspace, 0, len(records))
	for _, r := range records {
		workspaces = append(workspaces, catalog.Workspace{
			ID:       r.ID,
			Name:     r.Attributes.Name,
			ParentID: r.Relationships.Parent.Data.ID,
		})
	}
	return workspaces, nil
}

// declarativeUsersResponse is the /api/v1/layout/users document.
type declarativeUsersResponse struct {
	Users []struct {
		ID         string `json:"id"`
		UserGroups []struct {
			ID string `json:"id"`
		} `json:"userGroups"`
	} `json:"users"`
}

// DeclarativeUsers returns every user with its group memberships.
func (c *Client) DeclarativeUsers(ctx context.Context) ([]catalog.DeclarativeUser, error) {
	var resp declarativeUsersResponse
	if err := c.getJSON(ctx, "/api/v1/layout/users", &resp); err != nil {
		return nil, fmt.Errorf("fetching declarative users: %w", err)
	}
	users := make([]catalog.DeclarativeUser, 0, len(resp.Users))
	for _, u := range resp.Users {
		du := catalog.DeclarativeUser{ID: u.ID}
		for _, g := range u.UserGroups {
			du.GroupIDs = append(du.GroupIDs, g.ID)
		}
		users = append(users, du)
	}
	return users, nil
}

// declarativeGroupsResponse is the /api/v1/layout/userGroups document.
type declarativeGroupsResponse struct {
	UserGroups []struct {
		ID      string `json:"id"`
		Parents []struct {
			ID string `json:"id"`
		} `json:"parents"`
	} `json:"userGroups"`
}

// DeclarativeGroups returns every group with its parent groups.
func (c *Client) DeclarativeGroups(ctx context.Context) ([]catalog.DeclarativeGroup, error) {
	var resp declarativeGroupsResponse
	if err := c.getJSON(ctx, "/api/v1/layout/userGroups", &resp); err != nil {
		return nil, fmt.Errorf("fetching declarative user groups: %w", err)
	}
	groups := make([]catalog.DeclarativeGroup, 0, len(resp.UserGroups))
	for _, g := range resp.UserGroups {
		dg := catalog.DeclarativeGroup{ID: g.ID}
		for _, p := range g.Parents {
			dg.ParentIDs = append(dg.ParentIDs, p.ID)
		}
		groups = append(groups, dg)
	}
	return groups, nil
}

// declarativePermissionsResponse is the per-workspace permissions
// document from /api/v1/layout/workspaces/{id}/permissions.
type declarativePermissionsResponse struct {
	Permissions []struct {
		Assignee struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"assignee"`
		Name string `json:"name"`
	} `json:"permissions"`
}

// WorkspacePermissions returns the permission assignments of one
// workspace. Access denial surfaces as an *APIError the caller can
// classify with IsAccessDenied.
func (c *Client) WorkspacePermissions(ctx context.Context, workspaceID string) ([]catalog.PermissionAssignment, error) {
	var resp declarativePermissionsResponse
	path := fmt.Sprintf("/api/v1/layout/workspaces/%s/permissions", workspaceID)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching permissions for workspace %s: %w", workspaceID, err)
	}
	assignments := make([]catalog.PermissionAssignment, 0, len(resp.Permissions))
	for _, p := range resp.Permissions {
		assignments = append(assignments, catalog.PermissionAssignment{
			WorkspaceID:  workspaceID,
			AssigneeID:   p.Assignee.ID,
			AssigneeKind: catalog.AssigneeKind(p.Assignee.Type),
			Name:         p.Name,
		})
	}
	return assignments, nil
}

// entityPermissionsResponse is the per-user/per-group permission
// document.
type entityPermissionsResponse struct {
	Permissions []struct {
		Workspace struct {
			ID string `json:"id"`
		} `json:"workspace"`
		Name string `json:"name"`
	} `json:"permissions"`
}

func (c *Client) entityPermissions(ctx context.Context, path string) ([]catalog.WorkspacePermission, error) {
	var resp entityPermissionsResponse
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}
	perms := make([]catalog.WorkspacePermission, 0, len(resp.Permissions))
	for _, p := range resp.Permissions {
		perms = append(perms, catalog.WorkspacePermission{
			WorkspaceID: p.Workspace.ID,
			Name:        p.Name,
		})
	}
	return perms, nil
}

// UserPermissions returns the workspace permissions held directly by a
// user.
func (c *Client) UserPermissions(ctx context.Context, userID string) ([]catalog.WorkspacePermission, error) {
	perms, err := c.entityPermissions(ctx, fmt.Sprintf("/api/v1/layout/users/%s/permissions", userID))
	if err != nil {
		return nil, fmt.Errorf("fetching permissions for user %s: %w", userID, err)
	}
	return perms, nil
}

// GroupPermissions returns the workspace permissions held by a group.
func (c *Client) GroupPermissions(ctx context.Context, groupID string) ([]catalog.WorkspacePermission, error) {
	perms, err := c.entityPermissions(ctx, fmt.Sprintf("/api/v1/layout/userGroups/%s/permissions", groupID))
	if err != nil {
		return nil, fmt.Errorf("fetching permissions for group %s: %w", groupID, err)
	}
	return perms, nil
}

var _ catalog.Service = (*Client)(nil)
