package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortDisplaySchedule(t *testing.T) {
	p := NewPort(newTestStore(t))

	h, m := p.DisplaySchedule()
	assert.Equal(t, 8, h)
	assert.Equal(t, 0, m)
}

func TestPortApplyScheduleNotifiesObservers(t *testing.T) {
	var calls [][2]Schedule
	p := NewPort(newTestStore(t), func(prev, next Schedule) {
		calls = append(calls, [2]Schedule{prev, next})
	})

	require.NoError(t, p.ApplySchedule(18, 30))
	require.NoError(t, p.ApplySchedule(6, 15))

	require.Len(t, calls, 2)
	assert.Equal(t, [2]Schedule{{8, 0}, {18, 30}}, calls[0])
	assert.Equal(t, [2]Schedule{{18, 30}, {6, 15}}, calls[1])

	h, m := p.DisplaySchedule()
	assert.Equal(t, 6, h)
	assert.Equal(t, 15, m)
}

func TestPortApplyScheduleRejected(t *testing.T) {
	called := false
	p := NewPort(newTestStore(t), func(_, _ Schedule) { called = true })

	err := p.ApplySchedule(25, 0)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.False(t, called, "observers must not run for rejected input")
	h, m := p.DisplaySchedule()
	assert.Equal(t, 8, h)
	assert.Equal(t, 0, m)
}
