package statemachine_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hapticqueue/pkg/statemachine"
)

type state string
type event string

const (
	running   state = "running"
	completed state = "completed"
	failed    state = "failed"

	finish event = "finish"
	fail   event = "fail"
)

func lifecycle() *statemachine.Definition[state, event] {
	return statemachine.NewDefinition[state, event]().
		Permit(running, finish, completed).
		Permit(running, fail, failed)
}

func TestMachine_Fire(t *testing.T) {
	t.Parallel()

	m := lifecycle().Start(running)
	assert.Equal(t, running, m.Current())
	assert.False(t, m.Terminal())
	assert.True(t, m.CanFire(finish))

	to, err := m.Fire(finish)
	require.NoError(t, err)
	assert.Equal(t, completed, to)
	assert.Equal(t, completed, m.Current())
	assert.True(t, m.Terminal())
}

func TestMachine_TerminalStateRejectsEvents(t *testing.T) {
	t.Parallel()

	m := lifecycle().Start(running)
	_, err := m.Fire(fail)
	require.NoError(t, err)

	assert.False(t, m.CanFire(finish))
	cur, err := m.Fire(finish)
	require.Error(t, err)
	assert.True(t, statemachine.IsNoTransition(err))
	assert.Equal(t, failed, cur)
	assert.Contains(t, err.Error(), "failed")
	assert.Contains(t, err.Error(), "finish")
}

func TestMachine_ExactlyOneConcurrentWinner(t *testing.T) {
	t.Parallel()

	m := lifecycle().Start(running)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := finish
			if i%2 == 0 {
				ev = fail
			}
			if _, err := m.Fire(ev); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.True(t, m.Terminal())
}

func TestDefinition_SharedBetweenMachines(t *testing.T) {
	t.Parallel()

	def := lifecycle()
	a := def.Start(running)
	b := def.Start(running)

	_, err := a.Fire(finish)
	require.NoError(t, err)
	assert.Equal(t, running, b.Current())
}
