package tfgo

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Outbound payloads. Each one is the Data object of its Action.

// RegisterPlayerRequest introduces the user to the server.
type RegisterPlayerRequest struct {
	Name string `json:"Name"`
	Icon string `json:"Icon"`
}

// HostInfo identifies the creator of a game.
type HostInfo struct {
	Name string `json:"Name"`
	Icon string `json:"Icon"`
}

// CreateGameRequest asks the server to open a new game hosted by the user.
type CreateGameRequest struct {
	Name        string   `json:"Name"`
	Password    string   `json:"Password"`
	Description string   `json:"Description"`
	PlayerLimit int      `json:"PlayerLimit"`
	PointLimit  int      `json:"PointLimit"`
	TimeLimit   string   `json:"TimeLimit"`
	Mode        GameMode `json:"Mode"`
	Boundaries  []Point  `json:"Boundaries"`
	NumCP       int      `json:"NumCP"`
	Host        HostInfo `json:"Host"`
}

// ShowGamesRequest asks for the list of open games.
type ShowGamesRequest struct{}

// ShowGameInfoRequest asks for the details of one game.
type ShowGameInfoRequest struct {
	GameID string `json:"GameID"`
}

// JoinGameRequest asks to join a game.
type JoinGameRequest struct {
	GameID string `json:"GameID"`
}

// LeaveGameRequest leaves the current game.
type LeaveGameRequest struct{}

// StartGameRequest starts the hosted game.
type StartGameRequest struct{}

// LocationUpdateRequest reports the user's position and heading.
type LocationUpdateRequest struct {
	Location    Point   `json:"Location"`
	Orientation float64 `json:"Orientation"`
}

// FireRequest fires the selected weapon in a direction.
type FireRequest struct {
	Weapon    string  `json:"Weapon"`
	Direction float64 `json:"Direction"`
}

func (RegisterPlayerRequest) Action() Action { return ActionRegisterPlayer }
func (CreateGameRequest) Action() Action     { return ActionCreateGame }
func (ShowGamesRequest) Action() Action      { return ActionShowGames }
func (ShowGameInfoRequest) Action() Action   { return ActionShowGameInfo }
func (JoinGameRequest) Action() Action       { return ActionJoinGame }
func (LeaveGameRequest) Action() Action      { return ActionLeaveGame }
func (StartGameRequest) Action() Action      { return ActionStartGame }
func (LocationUpdateRequest) Action() Action { return ActionLocationUpdate }
func (FireRequest) Action() Action           { return ActionFire }

// FormatTimeLimit renders minutes the way the server parses durations.
func FormatTimeLimit(minutes int) string {
	return fmt.Sprintf("0h%dm0s", minutes)
}

// ParseTimeLimit parses a server duration string into whole minutes.
func ParseTimeLimit(s string) (int, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrap(err, "parse time limit")
	}
	return int(d / time.Minute), nil
}

// RegisterPlayerMessage builds the RegisterPlayer payload for u.
func RegisterPlayerMessage(u User) RegisterPlayerRequest {
	return RegisterPlayerRequest{Name: u.Name, Icon: u.Icon}
}

// CreateGameMessage builds the CreateGame payload for g with host as its
// first player. g must have exactly four boundary corners; they are sent in
// the order given.
func CreateGameMessage(g Game, host User) (CreateGameRequest, error) {
	if len(g.Boundaries) != 4 {
		return CreateGameRequest{}, errors.Wrapf(ErrBoundaryCorners, "got %d", len(g.Boundaries))
	}
	return CreateGameRequest{
		Name:        g.Name,
		Password:    g.Password,
		Description: g.Description,
		PlayerLimit: g.MaxPlayers,
		PointLimit:  g.MaxPoints,
		TimeLimit:   FormatTimeLimit(g.TimeLimit),
		Mode:        g.Mode,
		Boundaries:  []Point{g.Boundaries[0], g.Boundaries[1], g.Boundaries[2], g.Boundaries[3]},
		NumCP:       g.MaxObjectives,
		Host:        HostInfo{Name: host.Name, Icon: host.Icon},
	}, nil
}

// ShowGamesMessage builds the ShowGames payload.
func ShowGamesMessage() ShowGamesRequest { return ShowGamesRequest{} }

// ShowGameInfoMessage builds the ShowGameInfo payload for id.
func ShowGameInfoMessage(id string) ShowGameInfoRequest { return ShowGameInfoRequest{GameID: id} }

// JoinGameMessage builds the JoinGame payload for id.
func JoinGameMessage(id string) JoinGameRequest { return JoinGameRequest{GameID: id} }

// LeaveGameMessage builds the LeaveGame payload.
func LeaveGameMessage() LeaveGameRequest { return LeaveGameRequest{} }

// StartGameMessage builds the StartGame payload.
func StartGameMessage() StartGameRequest { return StartGameRequest{} }

// LocationUpdateMessage builds the LocationUpdate payload from u.
func LocationUpdateMessage(u User) LocationUpdateRequest {
	return LocationUpdateRequest{Location: u.Location, Orientation: u.Orientation}
}

// FireMessage builds the Fire payload for u's selected weapon, aimed along
// u's heading. The weapon must exist in catalog.
func FireMessage(u User, catalog Catalog) (FireRequest, error) {
	if _, ok := catalog.Lookup(u.SelectedWeapon); !ok {
		return FireRequest{}, errors.Wrapf(ErrUnknownWeapon, "%q", u.SelectedWeapon)
	}
	return FireRequest{Weapon: u.SelectedWeapon, Direction: u.Orientation}, nil
}
