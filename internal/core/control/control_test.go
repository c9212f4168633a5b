package control

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robosim/internal/core/geometry"
	"github.com/zeusync/robosim/internal/core/robot"
	"github.com/zeusync/robosim/internal/core/world"
)

func TestGate(t *testing.T) {
	m, err := world.New(world.Spec{
		Width:         5,
		Height:        5,
		LineThickness: 0.1,
		Obstacles:     []world.Obstacle{world.NewObstacle(0.5, -1, 1, 2)},
	})
	require.NoError(t, err)
	gate := NewGate(m, 0)
	assert.Equal(t, DefaultStopDistance, gate.StopDistance())

	far := robot.New(robot.DefaultParams(), robot.Pose{X: -2})
	far.Sense(m)
	assert.False(t, gate.IsCollisionImminent(far))
	assert.True(t, gate.IsMoveSafe(far, 1, 1, 0.02))

	// Ultrasonic at x=0.2, obstacle at 0.5.
	near := robot.New(robot.DefaultParams(), robot.Pose{})
	near.Sense(m)
	assert.InDelta(t, 0.3, near.Ultrasonic().Value(), 1e-9)
	assert.True(t, gate.IsCollisionImminent(near))

	// Front edge at 0.48, a full-speed tick moves 0.04.
	touching := robot.New(robot.DefaultParams(), robot.Pose{X: 0.33})
	assert.False(t, gate.IsMoveSafe(touching, 1, 1, 0.02))
	assert.True(t, gate.IsMoveSafe(touching, -1, -1, 0.02))
	assert.True(t, gate.IsMoveSafe(touching, 0, 0, 0.02))
	assert.Equal(t, geometry.Pt(0.33, 0), touching.Pose().Position())
}
