package manual

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownKey is returned by ParseKey.
var ErrUnknownKey = errors.New("unknown key")

// Key is a logical control key.
type Key uint8

const (
	KeyForward Key = iota
	KeyBackward
	KeyLeft
	KeyRight
	KeyModeAutonomous
	KeyModeManual
)

func (k Key) String() string {
	switch k {
	case KeyForward:
		return "forward"
	case KeyBackward:
		return "backward"
	case KeyLeft:
		return "left"
	case KeyRight:
		return "right"
	case KeyModeAutonomous:
		return "mode_autonomous"
	case KeyModeManual:
		return "mode_manual"
	default:
		return "unknown"
	}
}

// ParseKey accepts the names produced by Key.String.
func ParseKey(s string) (Key, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k := KeyForward; k <= KeyModeManual; k++ {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

// Input reports which keys are held this tick.
type Input interface {
	Pressed(k Key) bool
}

// KeyState is an Input driven by explicit press and release calls. It is
// safe for concurrent use.
type KeyState struct {
	mu   sync.RWMutex
	keys map[Key]bool
}

// NewKeyState returns a key set with the given keys held.
func NewKeyState(pressed ...Key) *KeyState {
	s := &KeyState{keys: make(map[Key]bool, len(pressed))}
	for _, k := range pressed {
		s.keys[k] = true
	}
	return s
}

func (s *KeyState) Pressed(k Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keys[k]
}

func (s *KeyState) Press(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.keys[k] = true
	}
}

func (s *KeyState) Release(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.keys, k)
	}
}

// ReleaseAll clears every key.
func (s *KeyState) ReleaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.keys)
}
