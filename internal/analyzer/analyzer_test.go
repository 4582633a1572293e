package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

// fakeCatalog is an in-memory catalog.Service. Any step can be made
// to fail by setting the corresponding error.
type fakeCatalog struct {
	users      []catalog.User
	groups     []catalog.Group
	workspaces []catalog.Workspace
	declUsers  []catalog.DeclarativeUser
	declGroups []catalog.DeclarativeGroup

	wsPerms    map[string][]catalog.PermissionAssignment
	userPerms  map[string][]catalog.WorkspacePermission
	groupPerms map[string][]catalog.WorkspacePermission

	usersErr      error
	groupsErr     error
	declUsersErr  error
	declGroupsErr error
	workspacesErr error
	wsPermsErr    map[string]error
}

func (f *fakeCatalog) ListUsers(ctx context.Context) ([]catalog.User, error) {
	return f.users, f.usersErr
}

func (f *fakeCatalog) ListGroups(ctx context.Context) ([]catalog.Group, error) {
	return f.groups, f.groupsErr
}

func (f *fakeCatalog) DeclarativeUsers(ctx context.Context) ([]catalog.DeclarativeUser, error) {
	return f.declUsers, f.declUsersErr
}

func (f *fakeCatalog) DeclarativeGroups(ctx context.Context) ([]catalog.DeclarativeGroup, error) {
	return f.declGroups, f.declGroupsErr
}

func (f *fakeCatalog) ListWorkspaces(ctx context.Context) ([]catalog.Workspace, error) {
	return f.workspaces, f.workspacesErr
}

func (f *fakeCatalog) WorkspacePermissions(ctx context.Context, workspaceID string) ([]catalog.PermissionAssignment, error) {
	if err := f.wsPermsErr[workspaceID]; err != nil {
		return nil, err
	}
	return f.wsPerms[workspaceID], nil
}

func (f *fakeCatalog) UserPermissions(ctx context.Context, userID string) ([]catalog.WorkspacePermission, error) {
	return f.userPerms[userID], nil
}

func (f *fakeCatalog) GroupPermissions(ctx context.Context, groupID string) ([]catalog.WorkspacePermission, error) {
	return f.groupPerms[groupID], nil
}

func TestBuildInverseIndexConsistency(t *testing.T) {
	fake := &fakeCatalog{
		users:  []catalog.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}},
		groups: []catalog.Group{{ID: "g1"}, {ID: "g2"}},
		declUsers: []catalog.DeclarativeUser{
			{ID: "u1", GroupIDs: []string{"g1", "g2"}},
			{ID: "u2", GroupIDs: []string{"g1"}},
			{ID: "u3", GroupIDs: nil},
		},
	}

	snap := New(fake, nil).Build(context.Background())

	for user, groups := range snap.UserToGroups {
		for _, group := range groups {
			assert.Contains(t, snap.GroupToUsers[group], user,
				"user %s lists group %s but the inverse index does not", user, group)
		}
	}
	for group, users := range snap.GroupToUsers {
		for _, user := range users {
			assert.Contains(t, snap.UserToGroups[user], group,
				"group %s lists user %s but the inverse index does not", group, user)
		}
	}
}

func TestUsersWithoutGroupsAndEmptyGroups(t *testing.T) {
	fake := &fakeCatalog{
		users:  []catalog.User{{ID: "u1"}, {ID: "u2"}},
		groups: []catalog.Group{{ID: "g1"}, {ID: "g2"}},
		declUsers: []catalog.DeclarativeUser{
			{ID: "u1", GroupIDs: []string{"g1", "g2"}},
			{ID: "u2", GroupIDs: nil},
		},
	}

	snap := New(fake, nil).Build(context.Background())

	assert.Equal(t, []string{"u2"}, snap.UsersWithoutGroups())
	assert.Empty(t, snap.EmptyGroups())
}

func TestDetectDirectAssignments(t *testing.T) {
	fake := &fakeCatalog{
		workspaces: []catalog.Workspace{{ID: "w1", Name: "One"}},
		wsPerms: map[string][]catalog.PermissionAssignment{
			"w1": {
				{WorkspaceID: "w1", AssigneeID: "u1", AssigneeKind: catalog.AssigneeUser, Name: "VIEW"},
				{WorkspaceID: "w1", AssigneeID: "g1", AssigneeKind: catalog.AssigneeGroup, Name: "MANAGE"},
			},
		},
	}

	snap := New(fake, nil).Build(context.Background())

	assert.Contains(t, snap.Anomalies, "Direct user permission: u1 has 'VIEW' on w1")
	for _, anomaly := range snap.Anomalies {
		assert.NotContains(t, anomaly, "g1 has", "group assignments must not be flagged as direct")
	}
}

func TestDetectOverprivilegedUsers(t *testing.T) {
	tests := []struct {
		name    string
		groups  []string
		flagged bool
	}{
		{"at threshold", []string{"g1", "g2", "g3"}, false},
		{"above threshold", []string{"g1", "g2", "g3", "g4"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCatalog{
				users:     []catalog.User{{ID: "u1"}},
				declUsers: []catalog.DeclarativeUser{{ID: "u1", GroupIDs: tt.groups}},
			}
			snap := New(fake, nil).Build(context.Background())

			expected := fmt.Sprintf("User u1 is in %d groups: ", len(tt.groups))
			found := false
			for _, anomaly := range snap.Anomalies {
				if len(anomaly) >= len(expected) && anomaly[:len(expected)] == expected {
					found = true
				}
			}
			assert.Equal(t, tt.flagged, found)
		})
	}
}

func TestDetectUnprotectedWorkspaces(t *testing.T) {
	fake := &fakeCatalog{
		workspaces: []catalog.Workspace{{ID: "w1"}, {ID: "w2"}},
		wsPerms: map[string][]catalog.PermissionAssignment{
			"w1": {{WorkspaceID: "w1", AssigneeID: "g1", AssigneeKind: catalog.AssigneeGroup, Name: "VIEW"}},
		},
	}

	snap := New(fake, nil).Build(context.Background())

	assert.NotContains(t, snap.Anomalies, "Workspace w1 has no explicit permissions")
	assert.Contains(t, snap.Anomalies, "Workspace w2 has no explicit permissions")
}

func TestDetectOrphanedGroups(t *testing.T) {
	// g1 has a member, g2 is a hierarchy parent, g3 holds a workspace
	// assignment, g4 is fully disconnected.
	fake := &fakeCatalog{
		users:      []catalog.User{{ID: "u1"}},
		groups:     []catalog.Group{{ID: "g1"}, {ID: "g2"}, {ID: "g3"}, {ID: "g4"}},
		workspaces: []catalog.Workspace{{ID: "w1"}},
		declUsers:  []catalog.DeclarativeUser{{ID: "u1", GroupIDs: []string{"g1"}}},
		declGroups: []catalog.DeclarativeGroup{{ID: "child", ParentIDs: []string{"g2"}}},
		wsPerms: map[string][]catalog.PermissionAssignment{
			"w1": {{WorkspaceID: "w1", AssigneeID: "g3", AssigneeKind: catalog.AssigneeGroup, Name: "VIEW"}},
		},
	}

	snap := New(fake, nil).Build(context.Background())

	assert.NotContains(t, snap.Anomalies, "Orphaned group: g1")
	assert.NotContains(t, snap.Anomalies, "Orphaned group: g2")
	assert.NotContains(t, snap.Anomalies, "Orphaned group: g3")
	assert.Contains(t, snap.Anomalies, "Orphaned group: g4")
}

func TestDetectDuplicateAccessPatterns(t *testing.T) {
	fake := &fakeCatalog{
		users: []catalog.User{{ID: "u1"}, {ID: "u2"}, {ID: "u3"}, {ID: "u4"}},
		declUsers: []catalog.DeclarativeUser{
			{ID: "u1", GroupIDs: []string{"g2", "g1"}},
			{ID: "u2", GroupIDs: []string{"g1", "g2"}},
			{ID: "u3", GroupIDs: []string{"g1"}},
			{ID: "u4", GroupIDs: nil},
		},
	}

	snap := New(fake, nil).Build(context.Background())

	// Membership order differs but the sorted tuple matches.
	assert.Contains(t, snap.Anomalies, "Identical group memberships [g1, g2] shared by: u1, u2")

	patterns := snap.DuplicateAccessPatterns()
	require.Len(t, patterns, 1)
	assert.Equal(t, []string{"g1", "g2"}, patterns[0].Groups)
	assert.Equal(t, []string{"u1", "u2"}, patterns[0].Users)
}

func TestDetectAnomaliesIsIdempotent(t *testing.T) {
	fake := &fakeCatalog{
		users:     []catalog.User{{ID: "u1"}},
		declUsers: []catalog.DeclarativeUser{{ID: "u1", GroupIDs: []string{"g1", "g2", "g3", "g4"}}},
	}
	snap := New(fake, nil).Build(context.Background())

	first := append([]string(nil), snap.Anomalies...)
	snap.DetectAnomalies()
	assert.Equal(t, first, snap.Anomalies)
}

func TestBuildSkipsFailedSteps(t *testing.T) {
	fake := &fakeCatalog{
		users:         []catalog.User{{ID: "u1"}},
		workspaces:    []catalog.Workspace{{ID: "w1"}, {ID: "w2"}},
		declUsersErr:  errors.New("forbidden"),
		declGroupsErr: errors.New("forbidden"),
		wsPermsErr:    map[string]error{"w2": errors.New("403 access denied")},
		wsPerms: map[string][]catalog.PermissionAssignment{
			"w1": {{WorkspaceID: "w1", AssigneeID: "g1", AssigneeKind: catalog.AssigneeGroup, Name: "VIEW"}},
		},
	}

	snap := New(fake, nil).Build(context.Background())

	steps := make([]string, 0, len(snap.Skipped))
	for _, skipped := range snap.Skipped {
		steps = append(steps, skipped.Step)
	}
	assert.Contains(t, steps, "memberships")
	assert.Contains(t, steps, "hierarchy")
	assert.Contains(t, steps, "workspace_permissions/w2")
	assert.NotContains(t, steps, "workspace_permissions/w1")

	// The denied workspace is skipped, not fatal: the reachable data
	// is still present.
	assert.Len(t, snap.WorkspacePermissions["w1"], 1)
	assert.Equal(t, []catalog.User{{ID: "u1"}}, snap.Users)
}

func TestTopUsersByMembership(t *testing.T) {
	fake := &fakeCatalog{
		declUsers: []catalog.DeclarativeUser{
			{ID: "u1", GroupIDs: []string{"g1"}},
			{ID: "u2", GroupIDs: []string{"g1", "g2", "g3"}},
			{ID: "u3", GroupIDs: []string{"g1", "g2"}},
			{ID: "u4", GroupIDs: []string{"g2", "g3"}},
		},
	}
	snap := New(fake, nil).Build(context.Background())

	top := snap.TopUsersByMembership(2)
	require.Len(t, top, 2)
	assert.Equal(t, "u2", top[0].ID)
	assert.Equal(t, 3, top[0].Count)
	// u3 and u4 tie at 2; first-seen order wins.
	assert.Equal(t, "u3", top[1].ID)
}

func TestPermissionDistribution(t *testing.T) {
	fake := &fakeCatalog{
		workspaces: []catalog.Workspace{{ID: "w1"}, {ID: "w2"}, {ID: "w3"}},
		wsPerms: map[string][]catalog.PermissionAssignment{
			"w1": {
				{AssigneeID: "g1", AssigneeKind: catalog.AssigneeGroup, Name: "VIEW"},
			},
			"w2": {
				{AssigneeID: "g1", AssigneeKind: catalog.AssigneeGroup, Name: "VIEW"},
				{AssigneeID: "g2", AssigneeKind: catalog.AssigneeGroup, Name: "VIEW"},
				{AssigneeID: "u1", AssigneeKind: catalog.AssigneeUser, Name: "MANAGE"},
			},
		},
	}
	snap := New(fake, nil).Build(context.Background())

	summaries := snap.PermissionDistribution()
	require.Len(t, summaries, 2, "workspaces without assignments are omitted")
	assert.Equal(t, "w2", summaries[0].WorkspaceID)
	assert.Equal(t, 3, summaries[0].Total)
	assert.Equal(t, []PermissionCount{{Name: "VIEW", Assignees: 2}, {Name: "MANAGE", Assignees: 1}}, summaries[0].ByName)
	assert.Equal(t, "w1", summaries[1].WorkspaceID)
}

func TestWriteJSONEmptyIndicesAreObjects(t *testing.T) {
	snap := New(&fakeCatalog{}, nil).Build(context.Background())

	path := filepath.Join(t.TempDir(), "permissions_data.json")
	require.NoError(t, snap.WriteJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{"user_to_groups", "group_to_users", "group_hierarchy", "workspace_permissions"} {
		assert.JSONEq(t, "{}", string(decoded[key]), "%s must serialize as an empty object", key)
	}
	for _, key := range []string{"users", "groups", "workspaces", "anomalies"} {
		assert.JSONEq(t, "[]", string(decoded[key]), "%s must serialize as an empty array", key)
	}
}
