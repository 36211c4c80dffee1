package tfgo

import (
	"slices"
	"sync"
)

// Point is a map coordinate. It is carried as opaque data; nothing in this
// package computes distances.
type Point struct {
	X float64 `json:"X"`
	Y float64 `json:"Y"`
}

// GameMode is one of the server's match modes.
type GameMode string

const (
	ModeSingleCapture GameMode = "SingleCapture"
	ModeMultiCapture  GameMode = "MultiCapture"
	ModePayload       GameMode = "Payload"
)

// Valid reports whether m is a mode the server understands.
func (m GameMode) Valid() bool {
	switch m {
	case ModeSingleCapture, ModeMultiCapture, ModePayload:
		return true
	}
	return false
}

// Team names as sent by the server. The zero value means unassigned.
type Team string

const (
	TeamRed  Team = "Red"
	TeamBlue Team = "Blue"
)

// User is the local player.
type User struct {
	Name           string
	Icon           string
	Location       Point
	Orientation    float64 // heading in degrees
	Health         int
	Armor          int
	Status         string
	Weapons        []string
	SelectedWeapon string
	Host           bool
}

func (u User) clone() User {
	u.Weapons = slices.Clone(u.Weapons)
	return u
}

// Player is a roster entry, keyed by Name within a game.
type Player struct {
	Name        string
	Icon        string
	Team        Team
	Orientation float64
	Location    Point
}

// Objective is a capturable point, keyed by ID.
type Objective struct {
	ID        string
	Location  Point
	Radius    float64
	Owner     Team
	Occupants []string
	Progress  int
}

// Pickup is keyed by its exact Location; the feed carries no ID.
type Pickup struct {
	Location  Point
	Type      string
	Amount    int
	Available bool
}

// Base is a team's home zone.
type Base struct {
	Location Point
	Radius   float64
}

// Game is either a discovered summary or the detailed current game.
type Game struct {
	ID            string
	Name          string
	Password      string
	Mode          GameMode
	Description   string
	MaxPlayers    int
	MaxPoints     int
	MaxObjectives int
	TimeLimit     int // minutes
	Location      Point
	Boundaries    []Point
	Players       []Player
	Objectives    []Objective
	Pickups       []Pickup
	RedBase       Base
	BlueBase      Base
	RedPoints     int
	BluePoints    int
	StartTime     string
}

// Started reports whether the server has announced a start time.
func (g Game) Started() bool {
	return g.StartTime != ""
}

// PlayerIndex returns the roster position of name.
func (g *Game) PlayerIndex(name string) (int, bool) {
	i := slices.IndexFunc(g.Players, func(p Player) bool { return p.Name == name })
	return i, i >= 0
}

// ObjectiveIndex returns the position of the objective with id.
func (g *Game) ObjectiveIndex(id string) (int, bool) {
	i := slices.IndexFunc(g.Objectives, func(o Objective) bool { return o.ID == id })
	return i, i >= 0
}

// PickupIndex returns the position of the pickup at exactly loc.
func (g *Game) PickupIndex(loc Point) (int, bool) {
	i := slices.IndexFunc(g.Pickups, func(p Pickup) bool { return p.Location == loc })
	return i, i >= 0
}

func (g Game) clone() Game {
	g.Boundaries = slices.Clone(g.Boundaries)
	g.Players = slices.Clone(g.Players)
	g.Pickups = slices.Clone(g.Pickups)
	if g.Objectives != nil {
		objs := make([]Objective, len(g.Objectives))
		for i, o := range g.Objectives {
			o.Occupants = slices.Clone(o.Occupants)
			objs[i] = o
		}
		g.Objectives = objs
	}
	return g
}

// Snapshot is a consistent copy of the whole store.
type Snapshot struct {
	User       User
	Current    Game
	Discovered []Game
}

// Store holds the shared game state. Dispatch handlers are its only writer on
// the network side; the presentation layer reads snapshots and may apply its
// own edits through the Update methods. All access goes through mu.
type Store struct {
	mu         sync.RWMutex
	user       User
	current    Game
	discovered []Game
}

// NewStore returns a store for the given local user.
func NewStore(user User) *Store {
	return &Store{user: user.clone()}
}

// User returns a copy of the local user.
func (s *Store) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.clone()
}

// SetUser replaces the local user.
func (s *Store) SetUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u.clone()
}

// UpdateUser applies fn to a copy of the local user under the write lock and
// stores the result. References fn keeps to the copy do not alias the store.
func (s *Store) UpdateUser(fn func(*User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user.clone()
	fn(&u)
	s.user = u.clone()
}

// CurrentGame returns a copy of the current game.
func (s *Store) CurrentGame() Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.clone()
}

// SetCurrentGame replaces the current game, discarding the previous one.
func (s *Store) SetCurrentGame(g Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = g.clone()
}

// UpdateCurrentGame applies fn to a copy of the current game under the write
// lock and stores the result. References fn keeps to the copy do not alias
// the store.
func (s *Store) UpdateCurrentGame(fn func(*Game)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.current.clone()
	fn(&g)
	s.current = g.clone()
}

// DiscoveredGames returns a copy of the discovered game summaries.
func (s *Store) DiscoveredGames() []Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneGames(s.discovered)
}

// HasGame reports whether a discovered game with id is known.
func (s *Store) HasGame(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hasGame(id)
}

func (s *Store) hasGame(id string) bool {
	return slices.ContainsFunc(s.discovered, func(g Game) bool { return g.ID == id })
}

// SelectDiscovered promotes the discovered game with id to the current game.
func (s *Store) SelectDiscovered(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.discovered {
		if g.ID == id {
			s.current = g.clone()
			return true
		}
	}
	return false
}

// Snapshot returns a consistent copy of user, current game and discovered games.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		User:       s.user.clone(),
		Current:    s.current.clone(),
		Discovered: cloneGames(s.discovered),
	}
}

// mutate runs fn with exclusive access to the raw state.
func (s *Store) mutate(fn func(u *User, cur *Game, discovered *[]Game) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.user, &s.current, &s.discovered)
}

func cloneGames(games []Game) []Game {
	if games == nil {
		return nil
	}
	out := make([]Game, len(games))
	for i, g := range games {
		out[i] = g.clone()
	}
	return out
}
