package analyzer

import (
	"fmt"
	"io"
	"strings"
)

const ruleWidth = 70

func heading(w io.Writer, title string) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n", rule, title, rule)
}

// Report renders the full human-readable analysis: raw data summary,
// pattern reports, anomaly findings, and totals. The section layout
// is stable; scripts that grep it can rely on the headings.
func (s *Snapshot) Report(w io.Writer) {
	s.reportRawData(w)
	s.reportPatterns(w)
	s.reportAnomalies(w)
	s.reportSummary(w)
}

func (s *Snapshot) reportRawData(w io.Writer) {
	heading(w, "RAW DATA SUMMARY")

	fmt.Fprintf(w, "\n### USERS ###\n")
	for _, u := range s.Users {
		name := u.Name
		if name == "" {
			name = "N/A"
		}
		fmt.Fprintf(w, "  %-30s | %-25s | Groups: %v\n", u.ID, name, s.UserToGroups[u.ID])
	}

	fmt.Fprintf(w, "\n### GROUPS ###\n")
	for _, g := range s.Groups {
		name := g.Name
		if name == "" {
			name = "N/A"
		}
		fmt.Fprintf(w, "  %-30s | %-25s | Members: %d, Children: %v\n",
			g.ID, name, len(s.GroupToUsers[g.ID]), s.GroupHierarchy[g.ID])
	}

	fmt.Fprintf(w, "\n### WORKSPACES ###\n")
	for _, ws := range s.Workspaces {
		name := ws.Name
		if name == "" {
			name = "N/A"
		}
		fmt.Fprintf(w, "  %-30s | %-30s | Permissions: %d\n",
			ws.ID, name, len(s.WorkspacePermissions[ws.ID]))
	}
}

func (s *Snapshot) reportPatterns(w io.Writer) {
	heading(w, "PATTERN ANALYSIS")

	noGroups := s.UsersWithoutGroups()
	fmt.Fprintf(w, "\n[Pattern 1] Users with NO group memberships: %d\n", len(noGroups))
	for _, uid := range noGroups {
		fmt.Fprintf(w, "  - %s\n", uid)
	}

	empty := s.EmptyGroups()
	fmt.Fprintf(w, "\n[Pattern 2] Empty groups (no members): %d\n", len(empty))
	for _, gid := range empty {
		fmt.Fprintf(w, "  - %s\n", gid)
	}

	fmt.Fprintf(w, "\n[Pattern 3] Users with most group memberships:\n")
	for _, c := range s.TopUsersByMembership(5) {
		fmt.Fprintf(w, "  - %s: %d groups -> %v\n", c.ID, c.Count, c.Members)
	}

	fmt.Fprintf(w, "\n[Pattern 4] Groups with most members:\n")
	for _, c := range s.TopGroupsByMembers(5) {
		fmt.Fprintf(w, "  - %s: %d members\n", c.ID, c.Count)
	}

	fmt.Fprintf(w, "\n[Pattern 5] Group hierarchy:\n")
	edges := s.Hierarchy()
	if len(edges) == 0 {
		fmt.Fprintf(w, "  No group hierarchies found (flat structure)\n")
	}
	for _, e := range edges {
		fmt.Fprintf(w, "  - %s -> %v\n", e.Parent, e.Children)
	}

	fmt.Fprintf(w, "\n[Pattern 6] Permissions per workspace:\n")
	for _, summary := range s.PermissionDistribution() {
		fmt.Fprintf(w, "  - %s:\n", summary.WorkspaceID)
		for _, pc := range summary.ByName {
			fmt.Fprintf(w, "      %s: %d assignees\n", pc.Name, pc.Assignees)
		}
	}
}

func (s *Snapshot) reportAnomalies(w io.Writer) {
	heading(w, "ANOMALY DETECTION")
	if len(s.Anomalies) == 0 {
		fmt.Fprintf(w, "\nNo anomalies detected.\n")
		return
	}
	fmt.Fprintln(w)
	for _, a := range s.Anomalies {
		fmt.Fprintf(w, "  ! %s\n", a)
	}
}

func (s *Snapshot) reportSummary(w io.Writer) {
	heading(w, "SUMMARY")
	fmt.Fprintf(w, "Total Users:      %d\n", len(s.Users))
	fmt.Fprintf(w, "Total Groups:     %d\n", len(s.Groups))
	fmt.Fprintf(w, "Total Workspaces: %d\n", len(s.Workspaces))
	fmt.Fprintf(w, "Total Anomalies:  %d\n", len(s.Anomalies))
	if len(s.Skipped) > 0 {
		fmt.Fprintf(w, "Skipped Steps:    %d\n", len(s.Skipped))
		for _, sk := range s.Skipped {
			fmt.Fprintf(w, "  - %s: %s\n", sk.Step, sk.Reason)
		}
	}
}
