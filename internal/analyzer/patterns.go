package analyzer

import (
	"sort"
	"strings"
)

// UsersWithoutGroups returns the ids of users with zero group
// memberships, in fetch order.
func (s *Snapshot) UsersWithoutGroups() []string {
	var ids []string
	for _, u := range s.Users {
		if len(s.UserToGroups[u.ID]) == 0 {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

// EmptyGroups returns the ids of groups with zero members, in fetch
// order.
func (s *Snapshot) EmptyGroups() []string {
	var ids []string
	for _, g := range s.Groups {
		if len(s.GroupToUsers[g.ID]) == 0 {
			ids = append(ids, g.ID)
		}
	}
	return ids
}

// TopUsersByMembership returns up to n users ordered by membership
// count descending. Ties keep the order in which users first appeared
// in the membership fetch.
func (s *Snapshot) TopUsersByMembership(n int) []MembershipCount {
	counts := make([]MembershipCount, 0, len(s.userOrder))
	for _, uid := range s.userOrder {
		groups := s.UserToGroups[uid]
		counts = append(counts, MembershipCount{ID: uid, Count: len(groups), Members: groups})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// TopGroupsByMembers returns up to n groups ordered by member count
// descending, ties in first-seen order.
func (s *Snapshot) TopGroupsByMembers(n int) []MembershipCount {
	counts := make([]MembershipCount, 0, len(s.groupOrder))
	for _, gid := range s.groupOrder {
		members := s.GroupToUsers[gid]
		counts = append(counts, MembershipCount{ID: gid, Count: len(members), Members: members})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// HierarchyEdge is one parent group with its children.
type HierarchyEdge struct {
	Parent   string
	Children []string
}

// Hierarchy returns the full parent → children listing in the order
// parents were discovered.
func (s *Snapshot) Hierarchy() []HierarchyEdge {
	edges := make([]HierarchyEdge, 0, len(s.hierarchyOrder))
	for _, parent := range s.hierarchyOrder {
		edges = append(edges, HierarchyEdge{Parent: parent, Children: s.GroupHierarchy[parent]})
	}
	return edges
}

// PermissionCount is the number of assignees holding one permission
// name on a workspace.
type PermissionCount struct {
	Name      string
	Assignees int
}

// WorkspacePermissionSummary is the per-workspace permission
// distribution.
type WorkspacePermissionSummary struct {
	WorkspaceID string
	Total       int
	ByName      []PermissionCount
}

// PermissionDistribution returns per-workspace permission counts
// grouped by permission name, workspaces ordered by total assignment
// count descending. Workspaces with no recorded assignments are
// omitted; the unprotected-workspace detector covers those.
func (s *Snapshot) PermissionDistribution() []WorkspacePermissionSummary {
	summaries := make([]WorkspacePermissionSummary, 0, len(s.WorkspacePermissions))
	for _, ws := range s.Workspaces {
		assignments := s.WorkspacePermissions[ws.ID]
		if len(assignments) == 0 {
			continue
		}
		summary := WorkspacePermissionSummary{WorkspaceID: ws.ID, Total: len(assignments)}
		index := map[string]int{}
		for _, p := range assignments {
			if i, ok := index[p.Name]; ok {
				summary.ByName[i].Assignees++
				continue
			}
			index[p.Name] = len(summary.ByName)
			summary.ByName = append(summary.ByName, PermissionCount{Name: p.Name, Assignees: 1})
		}
		summaries = append(summaries, summary)
	}
	sort.SliceStable(summaries, func(i, j int) bool { return summaries[i].Total > summaries[j].Total })
	return summaries
}

// AccessPattern is a set of users sharing an identical sorted group
// membership tuple.
type AccessPattern struct {
	Groups []string
	Users  []string
}

// DuplicateAccessPatterns groups users by their sorted membership
// tuple (empty tuples excluded) and returns every pattern shared by
// more than one user, in order of first appearance.
func (s *Snapshot) DuplicateAccessPatterns() []AccessPattern {
	type bucket struct {
		groups []string
		users  []string
	}
	index := map[string]int{}
	var buckets []bucket

	for _, uid := range s.userOrder {
		groups := s.UserToGroups[uid]
		if len(groups) == 0 {
			continue
		}
		sorted := append([]string(nil), groups...)
		sort.Strings(sorted)
		key := strings.Join(sorted, "\x00")
		if i, ok := index[key]; ok {
			buckets[i].users = append(buckets[i].users, uid)
			continue
		}
		index[key] = len(buckets)
		buckets = append(buckets, bucket{groups: sorted, users: []string{uid}})
	}

	var patterns []AccessPattern
	for _, b := range buckets {
		if len(b.users) > 1 {
			patterns = append(patterns, AccessPattern{Groups: b.groups, Users: b.users})
		}
	}
	return patterns
}
