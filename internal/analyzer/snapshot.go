// Package analyzer builds an in-memory graph of users, groups, group
// hierarchy, and workspace permission assignments from the catalog,
// then runs a fixed battery of pattern reports and anomaly detectors
// over it. Construction is sequential and fault-tolerant: a failing
// fetch step degrades the snapshot instead of aborting the run, and
// every degradation is recorded as an explicit skipped step.
package analyzer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

// SkippedStep records a fetch step (or sub-fetch) that failed and was
// skipped. The snapshot remains usable; consumers can see exactly
// which data is missing and why.
type SkippedStep struct {
	Step   string `json:"step"`
	Reason string `json:"reason"`
}

// Snapshot is the fully materialized access graph plus the ordered
// anomaly findings. The index maps are mutual inverses: a user id
// appears in GroupToUsers[g] exactly when g appears in
// UserToGroups[u]; all membership writes go through addMembership to
// keep that invariant.
type Snapshot struct {
	Users      []catalog.User      `json:"users"`
	Groups     []catalog.Group     `json:"groups"`
	Workspaces []catalog.Workspace `json:"workspaces"`

	UserToGroups   map[string][]string `json:"user_to_groups"`
	GroupToUsers   map[string][]string `json:"group_to_users"`
	GroupHierarchy map[string][]string `json:"group_hierarchy"`

	WorkspacePermissions map[string][]catalog.PermissionAssignment `json:"workspace_permissions"`
	UserPermissions      map[string][]catalog.WorkspacePermission  `json:"user_permissions"`
	GroupPermissions     map[string][]catalog.WorkspacePermission  `json:"group_permissions"`

	Anomalies []string      `json:"anomalies"`
	Skipped   []SkippedStep `json:"skipped_steps,omitempty"`

	// Insertion order of map keys, so reports iterate deterministically
	// in fetch order. JSON objects don't preserve order; these do.
	userOrder      []string
	groupOrder     []string
	hierarchyOrder []string
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		Users:                []catalog.User{},
		Groups:               []catalog.Group{},
		Workspaces:           []catalog.Workspace{},
		UserToGroups:         map[string][]string{},
		GroupToUsers:         map[string][]string{},
		GroupHierarchy:       map[string][]string{},
		WorkspacePermissions: map[string][]catalog.PermissionAssignment{},
		UserPermissions:      map[string][]catalog.WorkspacePermission{},
		GroupPermissions:     map[string][]catalog.WorkspacePermission{},
		Anomalies:            []string{},
	}
}

// addMembership records that user belongs to group, updating both
// inverse indices together.
func (s *Snapshot) addMembership(userID, groupID string) {
	if _, seen := s.UserToGroups[userID]; !seen {
		s.userOrder = append(s.userOrder, userID)
	}
	if _, seen := s.GroupToUsers[groupID]; !seen {
		s.groupOrder = append(s.groupOrder, groupID)
	}
	s.UserToGroups[userID] = append(s.UserToGroups[userID], groupID)
	s.GroupToUsers[groupID] = append(s.GroupToUsers[groupID], userID)
}

// addHierarchy records a parent → child group edge.
func (s *Snapshot) addHierarchy(parentID, childID string) {
	if _, seen := s.GroupHierarchy[parentID]; !seen {
		s.hierarchyOrder = append(s.hierarchyOrder, parentID)
	}
	s.GroupHierarchy[parentID] = append(s.GroupHierarchy[parentID], childID)
}

// skip records a degraded step.
func (s *Snapshot) skip(step string, err error) {
	s.Skipped = append(s.Skipped, SkippedStep{Step: step, Reason: err.Error()})
}

// MembershipCount pairs an entity with how many memberships it holds.
type MembershipCount struct {
	ID      string
	Count   int
	Members []string
}

// WriteJSON writes the snapshot to path as an indented JSON document.
func (s *Snapshot) WriteJSON(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
