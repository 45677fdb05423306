package service

import (
	"errors"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
)

// requireSuperuser is the guard for administrator-only operations.
func requireSuperuser(actor domain.User) error {
	if !actor.IsActive || !actor.IsSuperuser {
		return ErrForbidden
	}
	return nil
}

// canManage reports whether actor may administer project p.
func canManage(actor domain.User, p domain.Project) bool {
	return actor.IsActive && (actor.IsSuperuser || actor.ID == p.CreatedBy)
}

// notFound maps store.ErrNotFound onto the domain-specific sentinel.
func notFound(err, sentinel error) error {
	if errors.Is(err, store.ErrNotFound) {
		return sentinel
	}
	return err
}
