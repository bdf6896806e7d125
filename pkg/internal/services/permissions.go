package services

import (
	"git.solsynth.dev/hypernet/forms/pkg/internal/chat"
	"git.solsynth.dev/hypernet/forms/pkg/internal/models"
	"github.com/samber/lo"
)

// CanTake reports whether the member may respond to a form with the given
// permission set. A missing set allows everyone.
func CanTake(permission *models.FormPermission, member chat.Member) bool {
	if permission == nil || permission.AllowEveryone {
		return true
	}
	if lo.Contains(permission.AllowedUsers, member.ID) {
		return true
	}
	return lo.Some(permission.AllowedRoles, member.RoleIDs)
}
