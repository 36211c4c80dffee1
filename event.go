package tfgo

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Event is a decoded, validated server record. The set of implementations is
// closed; Dispatcher.Apply switches over all of them.
type Event interface {
	Type() MessageType
	isEvent()
}

// PlayerListUpdate replaces the current game's roster.
type PlayerListUpdate struct {
	Players []Player
}

// AvailableGames replaces the discovered games.
type AvailableGames struct {
	Games []Game
}

// GameInfo carries details of the game being viewed or joined.
type GameInfo struct {
	Description string
	PlayerLimit int
	PointLimit  int
	TimeLimit   int // minutes
	Boundaries  []Point
	Players     []Player
}

// JoinGameError reports a refused join.
type JoinGameError struct {
	Reason string
}

// LeaveGame acknowledges that the user left the current game.
type LeaveGame struct{}

// PlayerTeam is a team assignment from GameStartInfo.
type PlayerTeam struct {
	Name string
	Team Team
}

// GameStartInfo carries the layout of a game that is about to start.
type GameStartInfo struct {
	Teams      []PlayerTeam
	Objectives []Objective
	Pickups    []Pickup
	RedBase    Base
	BlueBase   Base
	StartTime  string
}

// PlayerPosition is one roster entry of a GameUpdate.
type PlayerPosition struct {
	Name        string
	Orientation float64
	Location    Point
}

// ObjectiveState is one objective entry of a GameUpdate.
type ObjectiveState struct {
	ID        string
	Owner     Team
	Occupants []string
	Progress  int
}

// GameUpdate is the periodic in-game state push.
type GameUpdate struct {
	Players    []PlayerPosition
	RedPoints  int
	BluePoints int
	Objectives []ObjectiveState
}

// StatusUpdate sets the user's status string.
type StatusUpdate struct {
	Status string
}

// VitalsUpdate sets the user's health and armor.
type VitalsUpdate struct {
	Health int
	Armor  int
}

// Gameover announces the winning team.
type Gameover struct {
	Winner string
}

// AcquireWeapon adds a weapon to the user's arsenal.
type AcquireWeapon struct {
	Weapon string
}

// PickupUpdate toggles the availability of the pickup at Location.
type PickupUpdate struct {
	Location  Point
	Available bool
}

func (PlayerListUpdate) Type() MessageType { return TypePlayerListUpdate }
func (AvailableGames) Type() MessageType   { return TypeAvailableGames }
func (GameInfo) Type() MessageType         { return TypeGameInfo }
func (JoinGameError) Type() MessageType    { return TypeJoinGameError }
func (LeaveGame) Type() MessageType        { return TypeLeaveGame }
func (GameStartInfo) Type() MessageType    { return TypeGameStartInfo }
func (GameUpdate) Type() MessageType       { return TypeGameUpdate }
func (StatusUpdate) Type() MessageType     { return TypeStatusUpdate }
func (VitalsUpdate) Type() MessageType     { return TypeVitalsUpdate }
func (Gameover) Type() MessageType         { return TypeGameover }
func (AcquireWeapon) Type() MessageType    { return TypeAcquireWeapon }
func (PickupUpdate) Type() MessageType     { return TypePickupUpdate }

func (PlayerListUpdate) isEvent() {}
func (AvailableGames) isEvent()   {}
func (GameInfo) isEvent()         {}
func (JoinGameError) isEvent()    {}
func (LeaveGame) isEvent()        {}
func (GameStartInfo) isEvent()    {}
func (GameUpdate) isEvent()       {}
func (StatusUpdate) isEvent()     {}
func (VitalsUpdate) isEvent()     {}
func (Gameover) isEvent()         {}
func (AcquireWeapon) isEvent()    {}
func (PickupUpdate) isEvent()     {}

type decodeFunc func(data json.RawMessage) (Event, error)

// decoders is the dispatch table: one entry per inbound Type tag.
var decoders = map[MessageType]decodeFunc{
	TypePlayerListUpdate: decodePlayerListUpdate,
	TypeAvailableGames:   decodeAvailableGames,
	TypeGameInfo:         decodeGameInfo,
	TypeJoinGameError:    decodeJoinGameError,
	TypeLeaveGame:        decodeLeaveGame,
	TypeGameStartInfo:    decodeGameStartInfo,
	TypeGameUpdate:       decodeGameUpdate,
	TypeStatusUpdate:     decodeStatusUpdate,
	TypeVitalsUpdate:     decodeVitalsUpdate,
	TypeGameover:         decodeGameover,
	TypeAcquireWeapon:    decodeAcquireWeapon,
	TypePickupUpdate:     decodePickupUpdate,
}

// DecodeEvent validates rec's payload and returns the typed event.
// Unknown tags yield *UnknownTypeError, invalid payloads *FieldError.
func DecodeEvent(rec Record) (Event, error) {
	decode, ok := decoders[rec.Type]
	if !ok {
		return nil, &UnknownTypeError{Type: rec.Type}
	}
	ev, err := decode(rec.Data)
	if err != nil {
		var fe *FieldError
		if errors.As(err, &fe) {
			fe.Type = rec.Type
			return nil, fe
		}
		return nil, &FieldError{Type: rec.Type, Err: err}
	}
	return ev, nil
}

func missing(field string) error {
	return &FieldError{Field: field, Err: errMissing}
}

func indexed(field string, i int, sub string) string {
	return fmt.Sprintf("%s[%d].%s", field, i, sub)
}

// unmarshalData decodes a payload, mapping JSON type mismatches onto the
// offending field.
func unmarshalData(data json.RawMessage, v any) error {
	if len(data) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return missing("Data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) {
			field := ute.Field
			if field == "" {
				field = "Data"
			}
			return &FieldError{Field: field, Err: err}
		}
		return &FieldError{Field: "Data", Err: err}
	}
	return nil
}

type wirePoint struct {
	X *float64 `json:"X"`
	Y *float64 `json:"Y"`
}

func (p *wirePoint) point(field string) (Point, error) {
	if p == nil {
		return Point{}, missing(field)
	}
	if p.X == nil {
		return Point{}, missing(field + ".X")
	}
	if p.Y == nil {
		return Point{}, missing(field + ".Y")
	}
	return Point{X: *p.X, Y: *p.Y}, nil
}

type wirePlayer struct {
	Name *string `json:"Name"`
	Icon *string `json:"Icon"`
}

func players(field string, in []wirePlayer) ([]Player, error) {
	out := make([]Player, 0, len(in))
	for i, p := range in {
		if p.Name == nil {
			return nil, missing(indexed(field, i, "Name"))
		}
		if p.Icon == nil {
			return nil, missing(indexed(field, i, "Icon"))
		}
		out = append(out, Player{Name: *p.Name, Icon: *p.Icon})
	}
	return out, nil
}

func points(field string, in []*wirePoint) ([]Point, error) {
	out := make([]Point, 0, len(in))
	for i, p := range in {
		pt, err := p.point(fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return nil, err
		}
		out = append(out, pt)
	}
	return out, nil
}

func decodePlayerListUpdate(data json.RawMessage) (Event, error) {
	var in []wirePlayer
	if err := unmarshalData(data, &in); err != nil {
		return nil, err
	}
	ps, err := players("Data", in)
	if err != nil {
		return nil, err
	}
	return PlayerListUpdate{Players: ps}, nil
}

type wireGameSummary struct {
	ID         *string       `json:"ID"`
	Name       *string       `json:"Name"`
	Mode       *GameMode     `json:"Mode"`
	Location   *wirePoint    `json:"Location"`
	Boundaries []*wirePoint  `json:"Boundaries"`
	PlayerList *[]wirePlayer `json:"PlayerList"`
}

func decodeAvailableGames(data json.RawMessage) (Event, error) {
	var in []wireGameSummary
	if err := unmarshalData(data, &in); err != nil {
		return nil, err
	}
	games := make([]Game, 0, len(in))
	for i, w := range in {
		switch {
		case w.ID == nil:
			return nil, missing(indexed("Data", i, "ID"))
		case w.Name == nil:
			return nil, missing(indexed("Data", i, "Name"))
		case w.Mode == nil:
			return nil, missing(indexed("Data", i, "Mode"))
		case !w.Mode.Valid():
			return nil, &FieldError{Field: indexed("Data", i, "Mode"), Err: errors.Errorf("unknown mode %q", *w.Mode)}
		case w.PlayerList == nil:
			return nil, missing(indexed("Data", i, "PlayerList"))
		}
		loc, err := w.Location.point(indexed("Data", i, "Location"))
		if err != nil {
			return nil, err
		}
		bounds, err := points(indexed("Data", i, "Boundaries"), w.Boundaries)
		if err != nil {
			return nil, err
		}
		ps, err := players(indexed("Data", i, "PlayerList"), *w.PlayerList)
		if err != nil {
			return nil, err
		}
		g := Game{
			ID:       *w.ID,
			Name:     *w.Name,
			Mode:     *w.Mode,
			Location: loc,
			Players:  ps,
		}
		if len(bounds) > 0 {
			g.Boundaries = bounds
		}
		games = append(games, g)
	}
	return AvailableGames{Games: games}, nil
}

type wireGameInfo struct {
	Description *string       `json:"Description"`
	PlayerLimit *int          `json:"PlayerLimit"`
	PointLimit  *int          `json:"PointLimit"`
	TimeLimit   *string       `json:"TimeLimit"`
	Boundaries  *[]*wirePoint `json:"Boundaries"`
	PlayerList  *[]wirePlayer `json:"PlayerList"`
}

func decodeGameInfo(data json.RawMessage) (Event, error) {
	var in wireGameInfo
	if err := unmarshalData(data, &in); err != nil {
		return nil, err
	}
	switch {
	case in.Description == nil:
		return nil, missing("Description")
	case in.PlayerLimit == nil:
		return nil, missing("PlayerLimit")
	case in.PointLimit == nil:
		return nil, missing("PointLimit")
	case in.TimeLimit == nil:
		return nil, missing("TimeLimit")
	case in.Boundaries == nil:
		return nil, missing("Boundaries")
	case in.PlayerList == nil:
		return nil, missing("PlayerList")
	}
	minutes, err := ParseTimeLimit(*in.TimeLimit)
	if err != nil {
		return nil, &FieldError{Field: "TimeLimit", Err: err}
	}
	bounds, err := points("Boundaries", *in.Boundaries)
	if err != nil {
		return nil, err
	}
	ps, err := players("PlayerList", *in.PlayerList)
	if err != nil {
		return nil, err
	}
	return GameInfo{
		Description: *in.Description,
		PlayerLimit: *in.PlayerLimit,
		PointLimit:  *in.PointLimit,
		TimeLimit:   minutes,
		Boundaries:  bounds,
		Players:     ps,
	}, nil
}

// decodeJoinGameError accepts any payload; a string is kept as the reason.
func decodeJoinGameError(data json.RawMessage) (Event, error) {
	var reason string
	_ = json.Unmarshal(data, &reason)
	return JoinGameError{Reason: reason}, nil
}

func decodeLeaveGame(json.RawMessage) (Event, error) {
	return LeaveGame{}, nil
}

type wireBase struct {
	Location *wirePoint `json:"Location"`
	Radius   *float64   `json:"Radius"`
}

func (b *wireBase) base(field string) (Base, error) {
	if b == nil {
		return Base{}, missing(field)
	}
	loc, err := b.Location.point(field + ".Location")
	if err != nil {
		return Base{}, err
	}
	if b.Radius == nil {
		return Base{}, missing(field + ".Radius")
	}
	return Base{Location: loc, Radius: *b.Radius}, nil
}

type wireGameStartInfo struct {
	PlayerList *[]struct {
		Name *string `json:"Name"`
		Team *Team   `json:"Team"`
	} `json:"PlayerList"`
	Objectives *[]struct {
		ID       *string    `json:"ID"`
		Location *wirePoint `json:"Location"`
		Radius   *float64   `json:"Radius"`
	} `json:"Objectives"`
	Pickups *[]struct {
		Location *wirePoint `json:"Location"`
		Type     *string    `json:"Type"`
		Amount   *int       `json:"Amount"`
	} `json:"Pickups"`
	RedBase   *wireBase `json:"RedBase"`
	BlueBase  *wireBase `json:"BlueBase"`
	StartTime *string   `json:"StartTime"`
}

func decodeGameStartInfo(data json.RawMessage) (Event, error) {
	var in wireGameStartInfo
	if err := unmarshalData(data, &in); err != nil {
		return nil, err
	}
	switch {
	case in.PlayerList == nil:
		return nil, missing("PlayerList")
	case in.Objectives == nil:
		return nil, missing("Objectives")
	case in.Pickups == nil:
		return nil, missing("Pickups")
	case in.StartTime == nil:
		return nil, missing("StartTime")
	}

	ev := GameStartInfo{StartTime: *in.StartTime}
	for i, p := range *in.PlayerList {
		if p.Name == nil {
			return nil, missing(indexed("PlayerList", i, "Name"))
		}
		if p.Team == nil {
			return nil, missing(indexed("PlayerList", i, "Team"))
		}
		ev.Teams = append(ev.Teams, PlayerTeam{Name: *p.Name, Team: *p.Team})
	}
	for i, o := range *in.Objectives {
		if o.ID == nil {
			return nil, missing(indexed("Objectives", i, "ID"))
		}
		if o.Radius == nil {
			return nil, missing(indexed("Objectives", i, "Radius"))
		}
		loc, err := o.Location.point(indexed("Objectives", i, "Location"))
		if err != nil {
			return nil, err
		}
		ev.Objectives = append(ev.Objectives, Objective{ID: *o.ID, Location: loc, Radius: *o.Radius})
	}
	ev.Pickups = make([]Pickup, 0, len(*in.Pickups))
	for i, p := range *in.Pickups {
		if p.Type == nil {
			return nil, missing(indexed("Pickups", i, "Type"))
		}
		if p.Amount == nil {
			return nil, missing(indexed("Pickups", i, "Amount"))
		}
		loc, err := p.Location.point(indexed("Pickups", i, "Location"))
		if err != nil {
			return nil, err
		}
		ev.Pickups = append(ev.Pickups, Pickup{Location: loc, Type: *p.Type, Amount: *p.Amount, Available: true})
	}
	var err error
	if ev.RedBase, err = in.RedBase.base("RedBase"); err != nil {
		return nil, err
	}
	if ev.BlueBase, err = in.BlueBase.base("BlueBase"); err != nil {
		return nil, err
	}
	return ev, nil
}

type wireGameUpdate struct {
	PlayerList *[]struct {
		Name        *string    `json:"Name"`
		Orientation *float64   `json:"Orientation"`
		Location    *wirePoint `json:"Location"`
	} `json:"PlayerList"`
	Points *struct {
		Red  *int `json:"Red"`
		Blue *int `json:"Blue"`
	} `json:"Points"`
	Objectives *[]struct {
		ID        *string   `json:"ID"`
		Occupying *[]string `json:"Occupying"`
		BelongsTo *Team     `json:"BelongsTo"`
		Progress  *int      `json:"Progress"`
	} `json:"Objectives"`
}

func decodeGameUpdate(data json.RawMessage) (Event, error) {
	var in wireGameUpdate
	if err := unmarshalData(data, &in); err != nil {
		return nil, err
	}
	switch {
	case in.PlayerList == nil:
		return nil, missing("PlayerList")
	case in.Points == nil:
		return nil, missing("Points")
	case in.Points.Red == nil:
		return nil, missing("Points.Red")
	case in.Points.Blue == nil:
		return nil, missing("Points.Blue")
	case in.Objectives == nil:
		return nil, missing("Objectives")
	}

	ev := GameUpdate{RedPoints: *in.Points.Red, BluePoints: *in.Points.Blue}
	for i, p := range *in.PlayerList {
		if p.Name == nil {
			return nil, missing(indexed("PlayerList", i, "Name"))
		}
		if p.Orientation == nil {
			return nil, missing(indexed("PlayerList", i, "Orientation"))
		}
		loc, err := p.Location.point(indexed("PlayerList", i, "Location"))
		if err != nil {
			return nil, err
		}
		ev.Players = append(ev.Players, PlayerPosition{Name: *p.Name, Orientation: *p.Orientation, Location: loc})
	}
	for i, o := range *in.Objectives {
		switch {
		case o.ID == nil:
			return nil, missing(indexed("Objectives", i, "ID"))
		case o.Occupying == nil:
			return nil, missing(indexed("Objectives", i, "Occupying"))
		case o.BelongsTo == nil:
			return nil, missing(indexed("Objectives", i, "BelongsTo"))
		case o.Progress == nil:
			return nil, missing(indexed("Objectives", i, "Progress"))
		}
		ev.Objectives = append(ev.Objectives, ObjectiveState{
			ID:        *o.ID,
			Owner:     *o.BelongsTo,
			Occupants: *o.Occupying,
			Progress:  *o.Progress,
		})
	}
	return ev, nil
}

func decodeString(data json.RawMessage) (string, error) {
	var s *string
	if err := unmarshalData(data, &s); err != nil {
		return "", err
	}
	if s == nil {
		return "", missing("Data")
	}
	return *s, nil
}

func decodeStatusUpdate(data json.RawMessage) (Event, error) {
	s, err := decodeString(data)
	if err != nil {
		return nil, err
	}
	return StatusUpdate{Status: s}, nil
}

func decodeVitalsUpdate(data json.RawMessage) (Event, error) {
	var in struct {
		Health *int `json:"Health"`
		Armor  *int `json:"Armor"`
	}
	if err := unmarshalData(data, &in); err != nil {
		return nil, err
	}
	if in.Health == nil {
		return nil, missing("Health")
	}
	if in.Armor == nil {
		return nil, missing("Armor")
	}
	return VitalsUpdate{Health: *in.Health, Armor: *in.Armor}, nil
}

func decodeGameover(data json.RawMessage) (Event, error) {
	s, err := decodeString(data)
	if err != nil {
		return nil, err
	}
	return Gameover{Winner: s}, nil
}

func decodeAcquireWeapon(data json.RawMessage) (Event, error) {
	s, err := decodeString(data)
	if err != nil {
		return nil, err
	}
	return AcquireWeapon{Weapon: s}, nil
}

func decodePickupUpdate(data json.RawMessage) (Event, error) {
	var in struct {
		Location  *wirePoint `json:"Location"`
		Available *bool      `json:"Available"`
	}
	if err := unmarshalData(data, &in); err != nil {
		return nil, err
	}
	loc, err := in.Location.point("Location")
	if err != nil {
		return nil, err
	}
	if in.Available == nil {
		return nil, missing("Available")
	}
	return PickupUpdate{Location: loc, Available: *in.Available}, nil
}
