package navigator

// State is the navigator's current behaviour.
type State uint8

const (
	Following State = iota
	TurningLeft
	TurningRight
	Stopped
	Searching
	Halted
)

func (s State) String() string {
	switch s {
	case Following:
		return "Following"
	case TurningLeft:
		return "TurningLeft"
	case TurningRight:
		return "TurningRight"
	case Stopped:
		return "Stopped"
	case Searching:
		return "Searching"
	case Halted:
		return "Halted"
	default:
		return "Unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// side is a line cue seen by exactly one outer channel.
type side int8

const (
	sideNone side = iota
	sideLeft
	sideRight
)

func (s side) String() string {
	switch s {
	case sideLeft:
		return "left"
	case sideRight:
		return "right"
	default:
		return "none"
	}
}
