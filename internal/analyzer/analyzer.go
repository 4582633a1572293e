package analyzer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stackless-analytics/gooddata-cli/internal/catalog"
)

// Analyzer builds snapshots from a read-only catalog service.
type Analyzer struct {
	catalog catalog.Service
	log     *slog.Logger
}

// New creates an analyzer. The logger may be nil, in which case the
// default slog logger is used.
func New(svc catalog.Service, log *slog.Logger) *Analyzer {
	if log == nil {
		log = slog.Default()
	}
	return &Analyzer{catalog: svc, log: log}
}

// Build runs the seven fetch steps in order and then the anomaly
// detectors. Every step is individually fault-tolerant: a collaborator
// error is logged, recorded as a skipped step, and the build moves on
// with whatever data is already in hand. Build itself never fails.
func (a *Analyzer) Build(ctx context.Context) *Snapshot {
	snap := newSnapshot()

	a.fetchUsers(ctx, snap)
	a.fetchGroups(ctx, snap)
	a.fetchMemberships(ctx, snap)
	a.fetchHierarchy(ctx, snap)
	a.fetchWorkspaces(ctx, snap)
	a.fetchWorkspacePermissions(ctx, snap)
	a.fetchEntityPermissions(ctx, snap)

	snap.DetectAnomalies()
	return snap
}

func (a *Analyzer) fetchUsers(ctx context.Context, snap *Snapshot) {
	users, err := a.catalog.ListUsers(ctx)
	if err != nil {
		a.log.Warn("skipping user fetch", "error", err)
		snap.skip("users", err)
		return
	}
	snap.Users = append(snap.Users, users...)
}

func (a *Analyzer) fetchGroups(ctx context.Context, snap *Snapshot) {
	groups, err := a.catalog.ListGroups(ctx)
	if err != nil {
		a.log.Warn("skipping group fetch", "error", err)
		snap.skip("groups", err)
		return
	}
	snap.Groups = append(snap.Groups, groups...)
}

func (a *Analyzer) fetchMemberships(ctx context.Context, snap *Snapshot) {
	users, err := a.catalog.DeclarativeUsers(ctx)
	if err != nil {
		a.log.Warn("skipping membership fetch", "error", err)
		snap.skip("memberships", err)
		return
	}
	for _, u := range users {
		for _, gid := range u.GroupIDs {
			snap.addMembership(u.ID, gid)
		}
	}
}

func (a *Analyzer) fetchHierarchy(ctx context.Context, snap *Snapshot) {
	groups, err := a.catalog.DeclarativeGroups(ctx)
	if err != nil {
		a.log.Warn("skipping hierarchy fetch", "error", err)
		snap.skip("hierarchy", err)
		return
	}
	for _, g := range groups {
		for _, parent := range g.ParentIDs {
			snap.addHierarchy(parent, g.ID)
		}
	}
}

func (a *Analyzer) fetchWorkspaces(ctx context.Context, snap *Snapshot) {
	workspaces, err := a.catalog.ListWorkspaces(ctx)
	if err != nil {
		a.log.Warn("skipping workspace fetch", "error", err)
		snap.skip("workspaces", err)
		return
	}
	snap.Workspaces = append(snap.Workspaces, workspaces...)
}

// fetchWorkspacePermissions pulls permission assignments workspace by
// workspace. A single denied workspace (the common case: the token
// lacks manage rights there) skips that workspace only.
func (a *Analyzer) fetchWorkspacePermissions(ctx context.Context, snap *Snapshot) {
	for _, ws := range snap.Workspaces {
		assignments, err := a.catalog.WorkspacePermissions(ctx, ws.ID)
		if err != nil {
			a.log.Warn("skipping workspace permissions", "workspace", ws.ID, "error", err)
			snap.skip(fmt.Sprintf("workspace_permissions/%s", ws.ID), err)
			continue
		}
		for _, p := range assignments {
			snap.WorkspacePermissions[ws.ID] = append(snap.WorkspacePermissions[ws.ID], p)
		}
	}
}

// fetchEntityPermissions pulls the direct workspace-scoped permissions
// of every user and group, tolerating per-entity failures.
func (a *Analyzer) fetchEntityPermissions(ctx context.Context, snap *Snapshot) {
	for _, u := range snap.Users {
		perms, err := a.catalog.UserPermissions(ctx, u.ID)
		if err != nil {
			a.log.Warn("skipping user permissions", "user", u.ID, "error", err)
			snap.skip(fmt.Sprintf("user_permissions/%s", u.ID), err)
			continue
		}
		if perms == nil {
			perms = []catalog.WorkspacePermission{}
		}
		snap.UserPermissions[u.ID] = perms
	}

	for _, g := range snap.Groups {
		perms, err := a.catalog.GroupPermissions(ctx, g.ID)
		if err != nil {
			a.log.Warn("skipping group permissions", "group", g.ID, "error", err)
			snap.skip(fmt.Sprintf("group_permissions/%s", g.ID), err)
			continue
		}
		if perms == nil {
			perms = []catalog.WorkspacePermission{}
		}
		snap.GroupPermissions[g.ID] = perms
	}
}
