package tfgo

import "encoding/json"

// MessageType is the Type tag of a record sent by the server.
type MessageType string

// Server -> client message types.
const (
	TypePlayerListUpdate MessageType = "PlayerListUpdate"
	TypeAvailableGames   MessageType = "AvailableGames"
	TypeGameInfo         MessageType = "GameInfo"
	TypeJoinGameError    MessageType = "JoinGameError"
	TypeLeaveGame        MessageType = "LeaveGame"
	TypeGameStartInfo    MessageType = "GameStartInfo"
	TypeGameUpdate       MessageType = "GameUpdate"
	TypeStatusUpdate     MessageType = "StatusUpdate"
	TypeVitalsUpdate     MessageType = "VitalsUpdate"
	TypeGameover         MessageType = "Gameover"
	TypeAcquireWeapon    MessageType = "AcquireWeapon"
	TypePickupUpdate     MessageType = "PickupUpdate"
)

// Action is the Action tag of a record sent to the server.
type Action string

// Client -> server actions.
const (
	ActionRegisterPlayer Action = "RegisterPlayer"
	ActionCreateGame     Action = "CreateGame"
	ActionShowGames      Action = "ShowGames"
	ActionShowGameInfo   Action = "ShowGameInfo"
	ActionJoinGame       Action = "JoinGame"
	ActionLeaveGame      Action = "LeaveGame"
	ActionStartGame      Action = "StartGame"
	ActionLocationUpdate Action = "LocationUpdate"
	ActionFire           Action = "Fire"
)

// Record is one inbound line: a Type tag and its still-encoded payload.
type Record struct {
	Type MessageType     `json:"Type"`
	Data json.RawMessage `json:"Data"`
}

// Message is an outbound payload. The codec wraps it as
// {"Action": m.Action(), "Data": m}.
type Message interface {
	Action() Action
}

// envelope is the outbound wire shape.
type envelope struct {
	Action Action  `json:"Action"`
	Data   Message `json:"Data"`
}
