package engine

import (
	"slices"

	"github.com/mapveto/mapban-backend/internal/format"
)

// Binding ties a reconnection key to a team name. Bindings are ordered
// by first bind so that slot order without a coin flip is join order.
// They survive disconnects; only membership is transient.
type Binding struct {
	Key      string `json:"key"`
	TeamName string `json:"teamName"`
}

type PickedMap struct {
	Map      string      `json:"map"`
	TeamName string      `json:"teamName"`
	Side     format.Side `json:"side"`
}

type BannedMap struct {
	Map      string `json:"map"`
	TeamName string `json:"teamName"`
}

type Phase string

const (
	PhaseForming  Phase = "forming"
	PhaseReady    Phase = "ready"
	PhaseActive   Phase = "active"
	PhaseComplete Phase = "complete"
)

type State struct {
	Code      string        `json:"lobbyId"`
	Format    format.Format `json:"gameType"`
	CoinFlip  bool          `json:"coinFlip"`
	Members   []string      `json:"members"`
	Observers []string      `json:"observers"`
	Bindings  []Binding     `json:"teamNames"`
	Started   bool          `json:"started"`
	Slots     [2]string     `json:"slots"`
	Sequence  []format.Step `json:"sequence"`
	Cursor    int           `json:"cursor"`
	Picked    []PickedMap   `json:"picked"`
	Banned    []BannedMap   `json:"banned"`
	Remaining []string      `json:"remaining"`
	Admin     bool          `json:"admin"`
}

func NewState(code string, f format.Format, coinFlip, admin bool) State {
	return State{
		Code:      code,
		Format:    f,
		CoinFlip:  coinFlip,
		Members:   []string{},
		Observers: []string{},
		Bindings:  []Binding{},
		Sequence:  format.Sequence(f),
		Picked:    []PickedMap{},
		Banned:    []BannedMap{},
		Remaining: format.FullPool(),
		Admin:     admin,
	}
}

// DerivePhase classifies s on the forming -> ready -> active -> complete
// axis. Ready means two teams are bound but the session has not started.
func DerivePhase(s State) Phase {
	switch {
	case s.Started && s.Cursor >= len(s.Sequence):
		return PhaseComplete
	case s.Started:
		return PhaseActive
	case len(distinctTeams(s)) == 2:
		return PhaseReady
	default:
		return PhaseForming
	}
}

// AddMember records a joined connection. Observers carry no binding and
// never act; duplicates are ignored.
func AddMember(s State, key string, observer bool) State {
	if slices.Contains(s.Members, key) {
		return s
	}
	s.Members = append(slices.Clone(s.Members), key)
	if observer {
		s.Observers = append(slices.Clone(s.Observers), key)
	}
	return s
}

// RemoveMember drops a connection from members/observers. Its team
// binding stays so a reconnect under the same key resumes the team.
func RemoveMember(s State, key string) State {
	s.Members = slices.DeleteFunc(slices.Clone(s.Members), func(m string) bool { return m == key })
	s.Observers = slices.DeleteFunc(slices.Clone(s.Observers), func(o string) bool { return o == key })
	return s
}

func bindingOf(s State, key string) (string, bool) {
	for _, b := range s.Bindings {
		if b.Key == key {
			return b.TeamName, true
		}
	}
	return "", false
}

// distinctTeams returns bound team names in first-bind order.
func distinctTeams(s State) []string {
	var names []string
	for _, b := range s.Bindings {
		if !slices.Contains(names, b.TeamName) {
			names = append(names, b.TeamName)
		}
	}
	return names
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
