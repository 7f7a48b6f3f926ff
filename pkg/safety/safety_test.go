package safety_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hapticqueue/pkg/command"
	"github.com/dmitrymomot/hapticqueue/pkg/safety"
)

func TestAllowAll(t *testing.T) {
	t.Parallel()

	cmd := command.MustNew("shock", "dev-1", 50, 500)
	d, err := safety.AllowAll.Check(context.Background(), cmd, "user", "dev-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, cmd, d.Command)
}

func TestCheckerFunc(t *testing.T) {
	t.Parallel()

	capped := safety.CheckerFunc(func(_ context.Context, cmd command.Command, userID, _ string) (safety.Decision, error) {
		if userID == "banned" {
			return safety.Deny("user is banned"), nil
		}
		return safety.Allow(cmd.WithIntensity(min(cmd.Intensity(), 30))), nil
	})

	cmd := command.MustNew("shock", "dev-1", 90, 500)

	d, err := capped.Check(context.Background(), cmd, "viewer", "dev-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 30, d.Command.Intensity())
	assert.Equal(t, 90, cmd.Intensity())

	d, err = capped.Check(context.Background(), cmd, "banned", "dev-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, "user is banned", d.Reason)
}
