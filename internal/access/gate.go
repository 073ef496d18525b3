// Package access resolves what a caller may see of a project.
package access

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tracker/internal/analytics"
	"tracker/internal/models"
)

// Directory looks up the records the access rules depend on.
type Directory interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
	GetProject(ctx context.Context, id int64) (models.Project, error)
}

// Gate implements analytics.Gate over a Directory.
type Gate struct {
	dir    Directory
	logger *slog.Logger
}

// NewGate builds a gate backed by dir.
func NewGate(dir Directory, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{dir: dir, logger: logger}
}

// Authorize returns the caller's scope together with the project it was
// resolved against. A missing project is an error; an unknown caller simply
// has no access.
func (g *Gate) Authorize(ctx context.Context, userID, projectID int64) (analytics.Grant, error) {
	project, err := g.dir.GetProject(ctx, projectID)
	if err != nil {
		return analytics.Grant{}, err
	}
	grant := analytics.Grant{Scope: analytics.ScopeNone, Project: project}

	user, err := g.dir.GetUser(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		g.logger.Warn("unknown caller", slog.Int64("user_id", userID), slog.Int64("project_id", projectID))
		return grant, nil
	}
	if err != nil {
		return analytics.Grant{}, fmt.Errorf("load caller: %w", err)
	}

	grant.Scope = ScopeFor(user, project)
	return grant, nil
}

// ScopeFor applies the access rules.
//
// Rules:
//   - Admin users see every project, member or not.
//   - The project owner has owner scope.
//   - A member with the manager role has manager scope.
//   - Everyone else, plain members included, has none.
func ScopeFor(user models.User, project models.Project) analytics.Scope {
	if user.Role == models.UserRoleAdmin {
		return analytics.ScopeAdmin
	}
	if project.OwnerID == user.ID {
		return analytics.ScopeOwner
	}
	for _, m := range project.Members {
		if m.UserID == user.ID && m.Role == models.RoleManager {
			return analytics.ScopeManager
		}
	}
	return analytics.ScopeNone
}
