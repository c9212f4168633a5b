// Package navigator implements the autonomous line follower: a debounced
// state machine over the three line channels with an ultrasonic stop layered
// on top.
//
// The left channel cues a right turn and the right channel a left turn; the
// car's sensor mounts are mirrored to match. Corners are taken by an
// instantaneous 90 degree heading snap followed by a short roll and, if the
// line is still missing, a pivot. A side cue seen while turning or searching
// means the line runs beside the car. The navigator steers onto it and, once
// across, returns to the heading it committed to.
package navigator

import (
	"math"

	"github.com/zeusync/robosim/internal/core/control"
	"github.com/zeusync/robosim/internal/core/events/bus"
	"github.com/zeusync/robosim/internal/core/observability/log"
	"github.com/zeusync/robosim/internal/core/robot"
)

const (
	eventSource = "navigator"

	// Reacquiring within this many degrees of the committed heading needs no
	// realignment; beyond maxRealign the line found is treated as a new one.
	realignTolerance = 0.5
	maxRealign       = 45.0
)

var (
	_ control.Controller = (*Navigator)(nil)
	_ control.Resetter   = (*Navigator)(nil)
)

// Option configures a Navigator.
type Option func(*Navigator)

// WithLogger sets the logger for transitions and obstacle holds.
func WithLogger(l log.Log) Option {
	return func(n *Navigator) { n.log = l }
}

// WithEvents publishes transitions and obstacle holds on b.
func WithEvents(b bus.EventBus) Option {
	return func(n *Navigator) { n.events = b }
}

// Navigator is the autonomous controller. It is not safe for concurrent use;
// the simulation loop owns it.
type Navigator struct {
	cfg     Config
	gate    *control.Gate
	initial State
	log     log.Log
	events  bus.EventBus

	state   State
	tick    uint64
	blocked bool

	// following
	centerStable int
	debounce     int
	debounceSide side
	noLine       int
	hold         int

	// memory
	lastSeen      side
	centredTicks  int
	anchor        float64
	anchorValid   bool
	searchBias    side
	turnTicks     int
	snapForward   int
	searchTicks   int
	sweepPhase    int
	sweepPhaseAge int

	// cue chasing and realignment
	cuePhase  int
	cueAge    int
	committed float64
	commitSet bool
	realign   bool
}

// New builds a navigator. An invalid InitialState falls back to Following;
// call Config.Validate to reject it instead.
func New(cfg Config, gate *control.Gate, opts ...Option) *Navigator {
	initial, _ := ParseState(cfg.InitialState)
	n := &Navigator{
		cfg:     cfg,
		gate:    gate,
		initial: initial,
		log:     log.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.log = n.log.With(log.String("component", eventSource))
	n.Reset()
	return n
}

// Reset returns to the initial state and clears every counter and memory.
func (n *Navigator) Reset() {
	*n = Navigator{
		cfg:     n.cfg,
		gate:    n.gate,
		initial: n.initial,
		log:     n.log,
		events:  n.events,
		state:   n.initial,
	}
}

func (n *Navigator) State() State  { return n.state }
func (n *Navigator) Halted() bool  { return n.state == Halted }
func (n *Navigator) Tick() uint64  { return n.tick }
func (n *Navigator) Blocked() bool { return n.blocked }

type readings struct {
	left, mid, right float64
	l, m, r          bool
}

// cue returns the side seen by exactly one outer channel.
func (rd readings) cue() side {
	switch {
	case rd.l && !rd.r:
		return sideLeft
	case rd.r && !rd.l:
		return sideRight
	default:
		return sideNone
	}
}

func (rd readings) centred() bool { return rd.m && !rd.l && !rd.r }

// UpdateControl reads the car's sensors and sets its motors for this tick.
func (n *Navigator) UpdateControl(car *robot.Car, _ float64) {
	n.tick++

	if n.state == Halted {
		car.SetMotorSpeeds(0, 0)
		return
	}

	if n.gate.IsCollisionImminent(car) {
		if !n.blocked {
			n.blocked = true
			n.log.Info("obstacle ahead, holding",
				log.Uint64("tick", n.tick),
				log.Float64("distance", car.Ultrasonic().Value()))
			n.publish(bus.TypeNavigatorObstacle, car.Ultrasonic().Value())
		}
		car.SetMotorSpeeds(0, 0)
		return
	}
	if n.blocked {
		n.blocked = false
		n.log.Info("obstacle cleared, resuming", log.Uint64("tick", n.tick))
		n.publish(bus.TypeNavigatorClear, car.Ultrasonic().Value())
	}

	th := n.cfg.LineThreshold
	rd := readings{
		left:  car.LeftLine().Value(),
		mid:   car.MidLine().Value(),
		right: car.RightLine().Value(),
	}
	rd.l, rd.m, rd.r = rd.left > th, rd.mid > th, rd.right > th

	n.remember(car, rd)

	switch n.state {
	case Following:
		n.follow(car, rd)
	case TurningLeft, TurningRight:
		n.turn(car, rd)
	case Stopped:
		n.stop(car)
	case Searching:
		n.search(car, rd)
	}
}

// remember tracks the most recent single side cue and the heading held while
// the line was centred.
func (n *Navigator) remember(car *robot.Car, rd readings) {
	if c := rd.cue(); c != sideNone {
		n.lastSeen = c
		n.centredTicks = 0
		return
	}
	if !rd.centred() {
		return
	}
	if n.state == Following {
		n.anchor = car.Heading()
		n.anchorValid = true
	}
	n.centredTicks++
	if n.centredTicks >= n.cfg.SideMemoryTicks {
		n.lastSeen = sideNone
	}
}

func (n *Navigator) follow(car *robot.Car, rd readings) {
	base := n.cfg.BaseSpeed

	if n.hold > 0 {
		if rd.m {
			n.hold--
			car.SetMotorSpeeds(base, base)
			return
		}
		n.hold = 0
	}

	if rd.m {
		n.noLine = 0
		n.resetDebounce()
		if n.centerStable < n.cfg.MinCenterStableTicks {
			n.centerStable++
		}
		switch {
		case rd.left-rd.right > n.cfg.NudgeMargin:
			car.SetMotorSpeeds(base, base*n.cfg.NudgeScale)
		case rd.right-rd.left > n.cfg.NudgeMargin:
			car.SetMotorSpeeds(base*n.cfg.NudgeScale, base)
		default:
			car.SetMotorSpeeds(base, base)
		}
		return
	}

	if n.realign {
		n.realign = false
		if math.Abs(car.Heading()-n.committed) > realignTolerance {
			n.log.Debug("realigning after crossing",
				log.Uint64("tick", n.tick),
				log.Float64("heading", car.Heading()),
				log.Float64("committed", n.committed))
			car.SetHeading(n.committed)
			car.SetMotorSpeeds(base, base)
			return
		}
	}

	cue := rd.cue()
	if cue != sideNone && n.centerStable >= n.cfg.MinCenterStableTicks {
		if cue != n.debounceSide {
			n.debounce = 0
			n.debounceSide = cue
		}
		n.debounce++
		if n.debounce >= n.cfg.TurnDetectTicks {
			n.beginTurn(car, cue)
			return
		}
		n.arcToward(car, cue, base, n.cfg.ProbeScale)
		return
	}

	n.resetDebounce()
	n.noLine++
	if n.noLine <= n.cfg.NoLineGraceTicks {
		if cue != sideNone {
			n.arcToward(car, cue, base, n.cfg.GraceScale)
		} else {
			car.SetMotorSpeeds(base, base)
		}
		return
	}

	car.SetMotorSpeeds(0, 0)
	n.centerStable = 0
	n.noLine = 0
	n.transition(Stopped, "line lost")
}

func (n *Navigator) beginTurn(car *robot.Car, cue side) {
	n.resetDebounce()
	n.centerStable = 0
	n.turnTicks = 0
	n.snapForward = 0
	if cue == sideLeft {
		car.SetHeading(car.Heading() - 90)
		n.transition(TurningRight, "left cue")
	} else {
		car.SetHeading(car.Heading() + 90)
		n.transition(TurningLeft, "right cue")
	}
	n.commit(car.Heading())
	car.SetMotorSpeeds(n.cfg.MinForward, n.cfg.MinForward)
}

func (n *Navigator) turn(car *robot.Car, rd readings) {
	if rd.m {
		n.reacquire(car, "line reacquired after turn")
		return
	}
	if n.turnTicks >= n.cfg.TurnTicksMax {
		car.SetMotorSpeeds(0, 0)
		n.transition(Stopped, "turn timeout")
		return
	}
	if cue := rd.cue(); cue != sideNone {
		n.chase(car, cue)
	} else if n.snapForward < n.cfg.SnapForwardTicks {
		n.resetChase()
		car.SetMotorSpeeds(n.cfg.MinForward, n.cfg.MinForward)
		n.snapForward++
	} else {
		n.resetChase()
		p := n.cfg.PivotSpeed
		if n.state == TurningRight {
			car.SetMotorSpeeds(p, -p)
		} else {
			car.SetMotorSpeeds(-p, p)
		}
	}
	n.turnTicks++
}

// stop pre-snaps the heading toward the remembered side and starts searching.
func (n *Navigator) stop(car *robot.Car) {
	n.searchBias = n.lastSeen
	n.searchTicks = 0
	n.sweepPhase = 0
	n.sweepPhaseAge = 0
	n.commitSet = false
	n.resetChase()

	if n.searchBias != sideNone {
		ref := car.Heading()
		if n.anchorValid {
			ref = n.anchor
		}
		if n.searchBias == sideLeft {
			car.SetHeading(ref - 90)
		} else {
			car.SetHeading(ref + 90)
		}
		n.commit(car.Heading())
	}
	car.SetMotorSpeeds(0, 0)
	n.transition(Searching, "search toward "+n.searchBias.String())
}

func (n *Navigator) search(car *robot.Car, rd readings) {
	if rd.m {
		n.reacquire(car, "line reacquired by search")
		return
	}
	if n.searchTicks >= n.cfg.SearchTimeoutTicks {
		car.SetMotorSpeeds(0, 0)
		n.transition(Halted, "search timeout")
		return
	}

	if cue := rd.cue(); cue != sideNone {
		n.chase(car, cue)
		n.searchTicks++
		return
	}
	n.resetChase()

	p := n.cfg.PivotSpeed
	switch n.searchBias {
	case sideLeft, sideRight:
		if n.searchTicks%(2*n.cfg.SearchRollTicks) < n.cfg.SearchRollTicks {
			car.SetMotorSpeeds(n.cfg.MinForward, n.cfg.MinForward)
		} else if n.searchBias == sideLeft {
			car.SetMotorSpeeds(p, -p)
		} else {
			car.SetMotorSpeeds(-p, p)
		}
	default:
		base := n.cfg.BaseSpeed
		slow := base * n.cfg.SweepScale
		switch n.sweepPhase {
		case 0:
			car.SetMotorSpeeds(-p, p)
		case 1:
			car.SetMotorSpeeds(slow, base)
		case 2:
			car.SetMotorSpeeds(p, -p)
		case 3:
			car.SetMotorSpeeds(base, slow)
		}
		n.sweepPhaseAge++
		if n.sweepPhaseAge >= n.cfg.SweepTicks[n.sweepPhase] {
			n.sweepPhase = (n.sweepPhase + 1) % len(n.cfg.SweepTicks)
			n.sweepPhaseAge = 0
		}
	}
	n.searchTicks++
}

// reacquire returns to Following. If the line was found away from the
// committed heading, the car crosses it during the hold and realigns once the
// mid channel leaves the far edge, which leaves the centre on the line.
func (n *Navigator) reacquire(car *robot.Car, reason string) {
	dev := math.Abs(car.Heading() - n.committed)
	n.realign = n.commitSet && dev > realignTolerance && dev <= maxRealign
	n.resetChase()

	base := n.cfg.BaseSpeed
	car.SetMotorSpeeds(base, base)
	n.hold = n.cfg.PostTurnHoldTicks
	n.centerStable = 0
	n.noLine = 0
	n.resetDebounce()
	n.transition(Following, reason)
}

func (n *Navigator) commit(heading float64) {
	n.committed = heading
	n.commitSet = true
}

// chase steers toward a live side cue: a pivot phase then an arc phase.
func (n *Navigator) chase(car *robot.Car, cue side) {
	n.cueAge++
	if n.cuePhase == 0 {
		p := n.cfg.PivotSpeed
		if cue == sideLeft {
			car.SetMotorSpeeds(p, -p)
		} else {
			car.SetMotorSpeeds(-p, p)
		}
		if n.cueAge >= n.cfg.CuePivotTicks {
			n.cuePhase, n.cueAge = 1, 0
		}
		return
	}
	n.arcToward(car, cue, n.cfg.BaseSpeed, n.cfg.CueArcScale)
	if n.cueAge >= n.cfg.CueArcTicks {
		n.cuePhase, n.cueAge = 0, 0
	}
}

func (n *Navigator) resetChase() {
	n.cuePhase = 0
	n.cueAge = 0
}

// arcToward steers toward the side the cue was seen on by slowing the
// opposite wheel.
func (n *Navigator) arcToward(car *robot.Car, cue side, speed, scale float64) {
	if cue == sideLeft {
		car.SetMotorSpeeds(speed, speed*scale)
	} else {
		car.SetMotorSpeeds(speed*scale, speed)
	}
}

func (n *Navigator) resetDebounce() {
	n.debounce = 0
	n.debounceSide = sideNone
}

func (n *Navigator) transition(to State, reason string) {
	from := n.state
	n.state = to
	n.log.Debug("transition",
		log.String("from", from.String()),
		log.String("to", to.String()),
		log.Uint64("tick", n.tick),
		log.String("reason", reason))
	if to == Halted {
		n.log.Warn("line lost, navigator halted", log.Uint64("tick", n.tick))
	}
	n.publish(bus.TypeNavigatorTransition, bus.Transition{
		From:   from.String(),
		To:     to.String(),
		Tick:   n.tick,
		Reason: reason,
	})
}

func (n *Navigator) publish(eventType string, data any) {
	if n.events == nil {
		return
	}
	if err := n.events.Publish(bus.NewEvent(eventType, eventSource, data, nil)); err != nil {
		n.log.Warn("event handler failed", log.String("type", eventType), log.Error(err))
	}
}
