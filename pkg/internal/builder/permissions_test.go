package builder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startPermissions(t *testing.T, timeout time.Duration, render RenderPermissions) (*Permissions, <-chan PermissionResult, <-chan error) {
	t.Helper()
	session := NewPermissions("creator", timeout, render)
	results := make(chan PermissionResult, 1)
	errs := make(chan error, 1)
	go func() {
		result, err := session.Wait(context.Background())
		results <- result
		errs <- err
	}()
	return session, results, errs
}

func TestPermissions_Everyone(t *testing.T) {
	var views []PermissionView
	session, results, errs := startPermissions(t, time.Minute, func(_ context.Context, view PermissionView) {
		views = append(views, view)
	})

	require.NoError(t, session.Submit(context.Background(), "creator", AllowEveryone{}))
	require.NoError(t, <-errs)
	assert.Equal(t, PermissionResult{Everyone: true}, <-results)
	require.Len(t, views, 1)
	assert.True(t, views[0].Done())

	err := session.Submit(context.Background(), "creator", SelectUsers{IDs: []string{"1"}})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPermissions_BothSteps(t *testing.T) {
	session, results, errs := startPermissions(t, time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, session.Submit(ctx, "creator", SelectRoles{IDs: []string{"role-1", "role-2"}}))
	assert.ErrorIs(t, session.Submit(ctx, "creator", SelectRoles{}), ErrStepDone)
	assert.Equal(t, StateOpen, session.State())

	require.NoError(t, session.Submit(ctx, "creator", SelectUsers{}))
	require.NoError(t, <-errs)

	result := <-results
	assert.False(t, result.Everyone)
	assert.Empty(t, result.Users)
	assert.NotNil(t, result.Users)
	assert.Equal(t, []string{"role-1", "role-2"}, result.Roles)
}

func TestPermissions_OnlyCreator(t *testing.T) {
	session, _, errs := startPermissions(t, 30*time.Millisecond, nil)

	assert.ErrorIs(t, session.Submit(context.Background(), "someone", AllowEveryone{}), ErrNotCreator)
	assert.ErrorIs(t, <-errs, ErrAbandoned)
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry[*Permissions]()
	session := NewPermissions("creator", time.Minute, nil)

	id := registry.Add(session)
	got, ok := registry.Get(id)
	require.True(t, ok)
	assert.Same(t, session, got)
	assert.Equal(t, 1, registry.Len())

	registry.Remove(id)
	_, ok = registry.Get(id)
	assert.False(t, ok)
}
