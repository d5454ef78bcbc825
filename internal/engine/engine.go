// Package engine is the veto session state machine. Apply is a pure
// function over State so every rule is testable without goroutines;
// the lobby actor owns serialization and broadcast.
package engine

import (
	"errors"
	"math/rand"
	"slices"

	"github.com/mapveto/mapban-backend/internal/format"
)

var (
	ErrNotFound           = errors.New("lobby not found")
	ErrAlreadyExists      = errors.New("lobby already exists")
	ErrLobbyFull          = errors.New("lobby already has two teams")
	ErrInsufficientTeams  = errors.New("need two bound teams to start")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidMap         = errors.New("map is not available")
	ErrInvalidSide        = errors.New("invalid side choice")
	ErrSessionComplete    = errors.New("session already complete")
	ErrNotStarted         = errors.New("session not started")
	ErrAlreadyStarted     = errors.New("session already started")
	ErrUnsupportedCommand = errors.New("unsupported command")
)

type CommandType string

const (
	CmdSetTeamName CommandType = "SetTeamName"
	CmdSetCoinFlip CommandType = "SetCoinFlip"
	CmdStart       CommandType = "Start"
	CmdBan         CommandType = "Ban"
	CmdPick        CommandType = "Pick"
	CmdClear       CommandType = "Clear"
)

type Command struct {
	Type    CommandType
	Key     string // sender's reconnection key
	Name    string // SetTeamName
	Map     string // Ban/Pick
	Side    format.Side
	Enabled bool // SetCoinFlip
}

type EventType string

const (
	EvtTeamBound        EventType = "TeamBound"
	EvtCoinFlipSet      EventType = "CoinFlipSet"
	EvtSessionStarted   EventType = "SessionStarted"
	EvtMapBanned        EventType = "MapBanned"
	EvtMapPicked        EventType = "MapPicked"
	EvtTurnAdvanced     EventType = "TurnAdvanced"
	EvtSessionCompleted EventType = "SessionCompleted"
	EvtCleared          EventType = "Cleared"
)

type Event struct {
	Type     EventType
	TeamName string
	Map      string
	Side     format.Side
}

// flipCoin decides which bound team takes slot 1 when the coin flip is
// enabled. Package var so tests can pin the outcome.
var flipCoin = func() bool { return rand.Intn(2) == 0 }

// Apply validates cmd against s and returns the resulting events and
// state. On error the input state is returned untouched; no partial
// mutation is ever observable.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdSetTeamName:
		return applySetTeamName(s, cmd)
	case CmdSetCoinFlip:
		s.CoinFlip = cmd.Enabled
		return []Event{{Type: EvtCoinFlipSet}}, s, nil
	case CmdStart:
		return applyStart(s)
	case CmdBan, CmdPick:
		return applyVeto(s, cmd)
	case CmdClear:
		s.Picked = []PickedMap{}
		s.Banned = []BannedMap{}
		s.Remaining = format.FullPool()
		s.Cursor = 0
		return []Event{{Type: EvtCleared}}, s, nil
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applySetTeamName(s State, cmd Command) ([]Event, State, error) {
	bindings := slices.Clone(s.Bindings)

	if i := slices.IndexFunc(bindings, func(b Binding) bool { return b.Key == cmd.Key }); i >= 0 {
		bindings[i].TeamName = cmd.Name
		s.Bindings = bindings
		return []Event{{Type: EvtTeamBound, TeamName: cmd.Name}}, s, nil
	}

	teams := distinctTeams(s)
	if len(teams) >= 2 && !slices.Contains(teams, cmd.Name) {
		return nil, s, ErrLobbyFull
	}
	s.Bindings = append(bindings, Binding{Key: cmd.Key, TeamName: cmd.Name})
	return []Event{{Type: EvtTeamBound, TeamName: cmd.Name}}, s, nil
}

func applyStart(s State) ([]Event, State, error) {
	if s.Started {
		return nil, s, ErrAlreadyStarted
	}
	teams := distinctTeams(s)
	if len(teams) != 2 {
		return nil, s, ErrInsufficientTeams
	}

	// Slot order: coin flip when enabled, otherwise bind order. Fixed
	// for the rest of the session regardless of later flag changes.
	if s.CoinFlip && flipCoin() {
		teams[0], teams[1] = teams[1], teams[0]
	}
	s.Slots = [2]string{teams[0], teams[1]}
	s.Started = true
	s.Cursor = 0
	return []Event{{Type: EvtSessionStarted, TeamName: s.Slots[0]}}, s, nil
}

func applyVeto(s State, cmd Command) ([]Event, State, error) {
	if !s.Started {
		return nil, s, ErrNotStarted
	}
	if s.Cursor >= len(s.Sequence) {
		return nil, s, ErrSessionComplete
	}

	step := s.Sequence[s.Cursor]
	want := format.KindBan
	if cmd.Type == CmdPick {
		want = format.KindPick
	}
	if step.Kind != want {
		return nil, s, ErrNotYourTurn
	}

	team := s.Slots[step.Slot-1]
	if bound, ok := bindingOf(s, cmd.Key); !ok || bound != team {
		return nil, s, ErrNotYourTurn
	}

	if !slices.Contains(s.Remaining, cmd.Map) {
		return nil, s, ErrInvalidMap
	}

	if cmd.Type == CmdPick {
		if step.Side && !format.ValidSide(cmd.Side) {
			return nil, s, ErrInvalidSide
		}
		if !step.Side && cmd.Side != "" {
			return nil, s, ErrInvalidSide
		}
	}

	s.Remaining = slices.DeleteFunc(slices.Clone(s.Remaining), func(m string) bool { return m == cmd.Map })
	var events []Event
	if cmd.Type == CmdPick {
		s.Picked = append(slices.Clone(s.Picked), PickedMap{Map: cmd.Map, TeamName: team, Side: cmd.Side})
		events = append(events, Event{Type: EvtMapPicked, TeamName: team, Map: cmd.Map, Side: cmd.Side})
	} else {
		s.Banned = append(slices.Clone(s.Banned), BannedMap{Map: cmd.Map, TeamName: team})
		events = append(events, Event{Type: EvtMapBanned, TeamName: team, Map: cmd.Map})
	}
	s.Cursor++
	events = append(events, Event{Type: EvtTurnAdvanced})
	if s.Cursor == len(s.Sequence) {
		events = append(events, Event{Type: EvtSessionCompleted})
	}
	return events, s, nil
}
