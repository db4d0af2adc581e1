package network

import "encoding/json"

// Message types - Client → Server
const (
	MsgTypeJoin           = "join"
	MsgTypeLeave          = "leave"
	MsgTypeChat           = "chat"
	MsgTypePing           = "ping"
	MsgTypeClaimHex       = "claim_hex"
	MsgTypeMoveUnit       = "move_unit"
	MsgTypeBuildStructure = "build_structure"
)

// Message types - Server → Client
const (
	MsgTypeWelcome       = "welcome"
	MsgTypePlayerInfo    = "player_info"
	MsgTypePlayerJoined  = "player_joined"
	MsgTypePlayerLeft    = "player_left"
	MsgTypeChatBroadcast = "chat"
	MsgTypeEnergyUpdate  = "energy_update"
	MsgTypeLedgerUpdate  = "ledger_update"
	MsgTypeStateDelta    = "state_delta"
	MsgTypeHarvest       = "harvest"
	MsgTypeDeposit       = "deposit"
	MsgTypeBuildOK       = "build_ok"
	MsgTypeError         = "error"
	MsgTypePong          = "pong"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Client Message Payloads ---

// JoinPayload is sent by client to join the room
type JoinPayload struct {
	Name string `json:"name,omitempty"`
}

// ChatPayload is sent by client to send a chat message
type ChatPayload struct {
	Message string `json:"message"`
}

// ClaimHexPayload asks to claim a hex. Coordinates are validated and
// rounded server side.
type ClaimHexPayload struct {
	Q float64 `json:"q"`
	R float64 `json:"r"`
}

// MoveUnitPayload orders a unit to a hex
type MoveUnitPayload struct {
	UnitID string  `json:"unit_id"`
	Q      float64 `json:"q"`
	R      float64 `json:"r"`
}

// BuildStructurePayload orders a unit's owner to build storage on a hex
type BuildStructurePayload struct {
	UnitID string  `json:"unit_id"`
	Q      float64 `json:"q"`
	R      float64 `json:"r"`
}

// --- Server Message Payloads ---

// WelcomePayload is sent to client after joining a room
type WelcomePayload struct {
	PlayerID      string        `json:"player_id"`
	Username      string        `json:"username"`
	Color         string        `json:"color"`
	RoomID        string        `json:"room_id"`
	HexSize       float64       `json:"hex_size"`
	SessionStatus SessionStatus `json:"session_status"`
}

// PlayerInfoPayload carries the persisted player record
type PlayerInfoPayload struct {
	Name          string `json:"name"`
	Color         string `json:"color"`
	TotalCaptures int    `json:"total_captures"`
}

// PlayerJoinedPayload notifies clients when a player joins
type PlayerJoinedPayload struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
	Color    string `json:"color"`
}

// PlayerLeftPayload notifies clients when a player leaves
type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// ChatBroadcastPayload broadcasts a chat message to all clients
type ChatBroadcastPayload struct {
	PlayerID  string `json:"player_id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"` // Unix timestamp
}

// EnergyPayload reports the floored energy of the player
type EnergyPayload struct {
	Energy int `json:"energy"`
}

// LedgerPayload reports the resource totals of the player
type LedgerPayload struct {
	Wood  int `json:"wood"`
	Stone int `json:"stone"`
	Scrap int `json:"scrap"`
}

// FeedbackPayload is a visual harvest or deposit event
type FeedbackPayload struct {
	UnitID   string `json:"unit_id"`
	Q        int    `json:"q"`
	R        int    `json:"r"`
	Resource string `json:"resource"`
	Amount   int    `json:"amount"`
}

// BuildOKPayload confirms a structure
type BuildOKPayload struct {
	UnitID string `json:"unit_id"`
	Q      int    `json:"q"`
	R      int    `json:"r"`
}

// CellView is a hex as seen by one player
type CellView struct {
	Q              int    `json:"q"`
	R              int    `json:"r"`
	Owner          string `json:"owner"`
	Color          string `json:"color"`
	Terrain        string `json:"terrain"`
	ResourceAmount int    `json:"resource_amount"`
	Structure      string `json:"structure,omitempty"`
	StructureHP    int    `json:"structure_hp,omitempty"`
}

// HexRef is a bare axial coordinate
type HexRef struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// UnitView is a unit as seen by one player. Private fields are only filled
// for the owner.
type UnitView struct {
	ID    string  `json:"id"`
	Owner string  `json:"owner"`
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	HP    int     `json:"hp"`
	MaxHP int     `json:"max_hp"`

	Inventory    *int     `json:"inventory,omitempty"`
	MaxInventory *int     `json:"max_inventory,omitempty"`
	Cargo        string   `json:"cargo,omitempty"`
	Action       string   `json:"action,omitempty"`
	Path         []HexRef `json:"path,omitempty"`
}

// StateDeltaPayload carries the changes one player may see since the last
// tick
type StateDeltaPayload struct {
	Tick        int64      `json:"tick"`
	Cells       []CellView `json:"cells,omitempty"`
	Units       []UnitView `json:"units,omitempty"`
	HiddenUnits []string   `json:"hidden_units,omitempty"`
}

// SessionStatus represents the current room state
type SessionStatus struct {
	State       string `json:"state"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	ServerTick  int64  `json:"server_tick"`
	Uptime      int64  `json:"uptime"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
