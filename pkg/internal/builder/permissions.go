package builder

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// MaxSelections caps each user or role selection step. The select menus
// enforce it; the collector itself does not.
const MaxSelections = 25

var ErrStepDone = errors.New("that selection has already been made")

// PermissionView is what the permission controls should currently show.
type PermissionView struct {
	Everyone  bool
	UsersDone bool
	RolesDone bool
}

func (v PermissionView) Done() bool {
	return v.Everyone || (v.UsersDone && v.RolesDone)
}

type RenderPermissions func(ctx context.Context, view PermissionView)

// PermissionAction is one of AllowEveryone, SelectUsers or SelectRoles.
type PermissionAction interface {
	permissionAction()
}

type AllowEveryone struct{}

// SelectUsers may carry an empty list, meaning no users on purpose.
type SelectUsers struct {
	IDs []string
}

// SelectRoles may carry an empty list, meaning no roles on purpose.
type SelectRoles struct {
	IDs []string
}

func (AllowEveryone) permissionAction() {}
func (SelectUsers) permissionAction()   {}
func (SelectRoles) permissionAction()   {}

type PermissionResult struct {
	Everyone bool
	Users    []string
	Roles    []string
}

// Permissions collects who may respond to a form: either everyone, or an
// allow-list built from one user selection and one role selection.
type Permissions struct {
	*loop

	render RenderPermissions
	view   PermissionView
	result PermissionResult
}

func NewPermissions(creatorID string, timeout time.Duration, render RenderPermissions) *Permissions {
	return &Permissions{
		loop:   newLoop(creatorID, timeout),
		render: render,
	}
}

func (p *Permissions) Submit(ctx context.Context, actorID string, action PermissionAction) error {
	return p.submit(ctx, actorID, func() (bool, error) {
		switch v := action.(type) {
		case AllowEveryone:
			p.result = PermissionResult{Everyone: true}
			p.view = PermissionView{Everyone: true, UsersDone: true, RolesDone: true}
		case SelectUsers:
			if p.view.UsersDone {
				return false, ErrStepDone
			}
			p.result.Users = append([]string{}, v.IDs...)
			p.view.UsersDone = true
		case SelectRoles:
			if p.view.RolesDone {
				return false, ErrStepDone
			}
			p.result.Roles = append([]string{}, v.IDs...)
			p.view.RolesDone = true
		default:
			return false, fmt.Errorf("unknown permission action %T", action)
		}

		if p.render != nil {
			p.render(ctx, p.view)
		}
		return p.view.Done(), nil
	})
}

// Wait blocks until the permission set is complete or the session is
// abandoned.
func (p *Permissions) Wait(ctx context.Context) (PermissionResult, error) {
	if err := p.wait(ctx); err != nil {
		return PermissionResult{}, err
	}
	return p.result, nil
}
