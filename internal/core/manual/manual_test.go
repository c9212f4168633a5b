package manual

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/robosim/internal/core/control"
	"github.com/zeusync/robosim/internal/core/robot"
	"github.com/zeusync/robosim/internal/core/world"
)

func newWorld(t *testing.T, obstacles ...world.Obstacle) *world.Map {
	t.Helper()
	m, err := world.New(world.Spec{Width: 10, Height: 10, LineThickness: 0.1, Obstacles: obstacles})
	require.NoError(t, err)
	return m
}

func motors(car *robot.Car) [2]float64 {
	l, r := car.MotorSpeeds()
	return [2]float64{l, r}
}

// Default params cap the bias so a pivot stays at 180 deg/s.
var cappedBias = math.Pi * 0.3 / 4

func TestDriveKeys(t *testing.T) {
	m := newWorld(t)
	keys := NewKeyState()
	c := New(DefaultConfig(), control.NewGate(m, 0), keys)
	car := robot.New(robot.DefaultParams(), robot.Pose{X: 5, Y: 5})
	car.Sense(m)

	tests := []struct {
		name string
		keys []Key
		want [2]float64
	}{
		{"idle", nil, [2]float64{0, 0}},
		{"forward", []Key{KeyForward}, [2]float64{1, 1}},
		{"backward", []Key{KeyBackward}, [2]float64{-1, -1}},
		{"pivot left", []Key{KeyLeft}, [2]float64{-cappedBias, cappedBias}},
		{"pivot right", []Key{KeyRight}, [2]float64{cappedBias, -cappedBias}},
		{"forward right", []Key{KeyForward, KeyRight}, [2]float64{1, 1 - cappedBias}},
		{"backward left", []Key{KeyBackward, KeyLeft}, [2]float64{-1, -1 + cappedBias}},
		{"forward wins over backward", []Key{KeyForward, KeyBackward}, [2]float64{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys.ReleaseAll()
			keys.Press(tt.keys...)
			c.UpdateControl(car, 0.02)
			got := motors(car)
			assert.InDelta(t, tt.want[0], got[0], 1e-12)
			assert.InDelta(t, tt.want[1], got[1], 1e-12)
		})
	}
}

func TestTurnBiasUncappedWithoutAngularLimit(t *testing.T) {
	m := newWorld(t)
	params := robot.DefaultParams()
	params.MaxAngularSpeed = 0
	car := robot.New(params, robot.Pose{X: 5, Y: 5})
	c := New(DefaultConfig(), control.NewGate(m, 0), NewKeyState(KeyLeft))

	c.UpdateControl(car, 0.02)
	assert.Equal(t, [2]float64{-0.5, 0.5}, motors(car))
}

func TestBounceBackIgnoresForward(t *testing.T) {
	m := newWorld(t, world.NewObstacle(0.5, -0.5, 1, 1))
	keys := NewKeyState(KeyForward)
	c := New(DefaultConfig(), control.NewGate(m, 0), keys)
	car := robot.New(robot.DefaultParams(), robot.Pose{})
	car.Sense(m)
	require.InDelta(t, 0.3, car.Ultrasonic().Value(), 1e-9)

	// 0.6 s of reverse at dt 0.25 is three ticks.
	for i := 0; i < 3; i++ {
		c.UpdateControl(car, 0.25)
		assert.Equal(t, [2]float64{-0.5, -0.5}, motors(car), "reverse tick %d", i)
		assert.True(t, c.Recovering())
	}

	// Sensors are not refreshed, so the obstacle is still close: hold.
	c.UpdateControl(car, 0.25)
	assert.Equal(t, [2]float64{0, 0}, motors(car))
	assert.True(t, c.Recovering())

	// Backward within the threshold keeps recovery on.
	keys.Press(KeyBackward)
	c.UpdateControl(car, 0.25)
	assert.Equal(t, [2]float64{-1, -1}, motors(car))
	assert.True(t, c.Recovering())

	keys.Release(KeyBackward)
	keys.Press(KeyLeft)
	c.UpdateControl(car, 0.25)
	got := motors(car)
	assert.InDelta(t, -cappedBias, got[0], 1e-12)
	assert.InDelta(t, cappedBias, got[1], 1e-12)

	c.Reset()
	assert.False(t, c.Recovering())
}

func TestBounceBackClearsOnceBackedOff(t *testing.T) {
	m := newWorld(t, world.NewObstacle(0.5, -0.5, 1, 1))
	c := New(DefaultConfig(), control.NewGate(m, 0), NewKeyState(KeyForward))
	car := robot.New(robot.DefaultParams(), robot.Pose{})
	car.Sense(m)

	for i := 0; i < 3; i++ {
		c.UpdateControl(car, 0.25)
		require.True(t, car.Update(0.25, m))
	}
	assert.InDelta(t, -0.75, car.X(), 1e-9)
	assert.Greater(t, car.Ultrasonic().Value(), DefaultConfig().RecoveryThreshold)

	c.UpdateControl(car, 0.25)
	assert.False(t, c.Recovering())
	assert.Equal(t, [2]float64{1, 1}, motors(car))
}

func TestVetoUnsafeMove(t *testing.T) {
	m := newWorld(t, world.NewObstacle(0.5, -0.5, 1, 1))
	keys := NewKeyState(KeyForward)
	c := New(DefaultConfig(), control.NewGate(m, 0), keys)
	// Front edge at 0.48; the ultrasonic origin sits inside the block and
	// reads its far edge, so only the veto can stop the car.
	car := robot.New(robot.DefaultParams(), robot.Pose{X: 0.33})
	car.Sense(m)
	require.Greater(t, car.Ultrasonic().Value(), control.DefaultStopDistance)

	c.UpdateControl(car, 0.02)
	assert.Equal(t, [2]float64{0, 0}, motors(car))
	assert.False(t, c.Recovering())

	keys.ReleaseAll()
	keys.Press(KeyBackward)
	c.UpdateControl(car, 0.02)
	assert.Equal(t, [2]float64{-1, -1}, motors(car))
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.TurnBias = 2
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.StopDistance = -1
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
	cfg.StopDistance = math.NaN()
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestKeyState(t *testing.T) {
	s := NewKeyState(KeyForward, KeyLeft)
	assert.True(t, s.Pressed(KeyForward))
	s.Release(KeyForward)
	assert.False(t, s.Pressed(KeyForward))
	assert.True(t, s.Pressed(KeyLeft))
	s.ReleaseAll()
	assert.False(t, s.Pressed(KeyLeft))
	assert.Equal(t, "mode_manual", KeyModeManual.String())
}

func TestParseKey(t *testing.T) {
	for k := KeyForward; k <= KeyModeManual; k++ {
		got, err := ParseKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	got, err := ParseKey(" Left ")
	require.NoError(t, err)
	assert.Equal(t, KeyLeft, got)

	_, err = ParseKey("jump")
	require.ErrorIs(t, err, ErrUnknownKey)
}
