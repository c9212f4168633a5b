package bus

// Event types published by the simulation.
const (
	TypeNavigatorTransition = "navigator.transition"
	TypeNavigatorObstacle   = "navigator.obstacle"
	TypeNavigatorClear      = "navigator.clear"
	TypeRobotCollision      = "robot.collision"
	TypeSimTick             = "sim.tick"
	TypeSimMode             = "sim.mode"
)

// Transition is the payload of navigator.transition.
type Transition struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Tick   uint64 `json:"tick"`
	Reason string `json:"reason"`
}

// Collision is the payload of robot.collision: a rejected step.
type Collision struct {
	Tick uint64  `json:"tick"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// ModeChange is the payload of sim.mode.
type ModeChange struct {
	From string `json:"from"`
	To   string `json:"to"`
	Tick uint64 `json:"tick"`
}
