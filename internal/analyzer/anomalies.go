package analyzer

import (
	"fmt"
	"strings"

	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

// OverprivilegedThreshold is the membership count above which a user
// is flagged as over-privileged.
const OverprivilegedThreshold = 3

// DetectAnomalies runs the five detectors in order and appends their
// findings to the anomaly list. Within each detector, findings appear
// in discovery order. Calling it again resets the list, so detection
// is idempotent for an unchanged snapshot.
func (s *Snapshot) DetectAnomalies() {
	s.Anomalies = []string{}
	s.detectDirectAssignments()
	s.detectOverprivilegedUsers()
	s.detectUnprotectedWorkspaces()
	s.detectOrphanedGroups()
	s.detectDuplicateAccessPatterns()
}

// detectDirectAssignments flags every permission granted to an
// individual user rather than a group. Direct grants bypass
// group-based governance.
func (s *Snapshot) detectDirectAssignments() {
	for _, ws := range s.Workspaces {
		for _, p := range s.WorkspacePermissions[ws.ID] {
			if p.AssigneeKind == catalog.AssigneeUser {
				s.Anomalies = append(s.Anomalies,
					fmt.Sprintf("Direct user permission: %s has '%s' on %s", p.AssigneeID, p.Name, ws.ID))
			}
		}
	}
}

// detectOverprivilegedUsers flags users in more than
// OverprivilegedThreshold groups, reporting the full group list.
func (s *Snapshot) detectOverprivilegedUsers() {
	for _, uid := range s.userOrder {
		groups := s.UserToGroups[uid]
		if len(groups) > OverprivilegedThreshold {
			s.Anomalies = append(s.Anomalies,
				fmt.Sprintf("User %s is in %d groups: %s", uid, len(groups), strings.Join(groups, ", ")))
		}
	}
}

// detectUnprotectedWorkspaces flags workspaces with zero permission
// assignments, including workspaces absent from the assignment index
// entirely.
func (s *Snapshot) detectUnprotectedWorkspaces() {
	for _, ws := range s.Workspaces {
		if len(s.WorkspacePermissions[ws.ID]) == 0 {
			s.Anomalies = append(s.Anomalies,
				fmt.Sprintf("Workspace %s has no explicit permissions", ws.ID))
		}
	}
}

// detectOrphanedGroups flags groups that have no members, no children
// in the hierarchy, and never appear as a group-kind assignee on any
// workspace.
func (s *Snapshot) detectOrphanedGroups() {
	used := map[string]bool{}
	for _, assignments := range s.WorkspacePermissions {
		for _, p := range assignments {
			if p.AssigneeKind == catalog.AssigneeGroup {
				used[p.AssigneeID] = true
			}
		}
	}

	for _, g := range s.Groups {
		hasMembers := len(s.GroupToUsers[g.ID]) > 0
		_, isParent := s.GroupHierarchy[g.ID]
		if !hasMembers && !isParent && !used[g.ID] {
			s.Anomalies = append(s.Anomalies, fmt.Sprintf("Orphaned group: %s", g.ID))
		}
	}
}

// detectDuplicateAccessPatterns flags every set of users sharing an
// identical non-empty group membership tuple.
func (s *Snapshot) detectDuplicateAccessPatterns() {
	for _, p := range s.DuplicateAccessPatterns() {
		s.Anomalies = append(s.Anomalies,
			fmt.Sprintf("Identical group memberships [%s] shared by: %s",
				strings.Join(p.Groups, ", "), strings.Join(p.Users, ", ")))
	}
}
