package messages

import "github.com/castlebridge/play-server/pkg/chess"

// Outbound event names.
const (
	EventConnected        = "CONNECTED"
	EventMatchFound       = "MATCH_FOUND"
	EventSearchCancelled  = "SEARCH_CANCELLED"
	EventGameState        = "GAME_STATE"
	EventMovePlayed       = "MOVE_PLAYED"
	EventOpponentResigned = "OPPONENT_RESIGNED"
	EventDrawOffered      = "DRAW_OFFERED"
	EventDrawOccurred     = "DRAW_OCCURRED"
	EventDrawRejected     = "DRAW_REJECTED"
	EventMessageReceived  = "MESSAGE_RECEIVED"
	EventGameOver         = "GAME_OVER"
	EventError            = "ERROR"
)

// OutboundMessage is how we wrap responses before sending them to the
// client.
type OutboundMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
}

// ConnectedPayload confirms registration with the assigned connection id.
type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// PlayerInfo is the public identity of one player.
type PlayerInfo struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

// MatchFoundPayload seeds a paired player with everything needed to join
// the new session.
type MatchFoundPayload struct {
	RoomID     string      `json:"room_id"`
	Color      chess.Color `json:"color"`
	InitialFEN string      `json:"initial_fen"`
	WhiteTime  int64       `json:"white_time"`
	BlackTime  int64       `json:"black_time"`
	Opponent   PlayerInfo  `json:"opponent"`
}

// GameStatePayload is the session snapshot sent on join/reconnect. Clock
// values are anchored to ServerTime (unix milliseconds) so the receiver
// can compute remaining time with its own local clock.
type GameStatePayload struct {
	RoomID       string      `json:"room_id"`
	FEN          string      `json:"fen"`
	Turn         chess.Color `json:"turn"`
	WhiteTime    int64       `json:"white_time"`
	BlackTime    int64       `json:"black_time"`
	RunningColor chess.Color `json:"running_color,omitempty"`
	WhiteMoved   bool        `json:"white_moved"`
	BlackMoved   bool        `json:"black_moved"`
	White        PlayerInfo  `json:"white"`
	Black        PlayerInfo  `json:"black"`
	Status       string      `json:"status"`
	Reason       string      `json:"reason,omitempty"`
	Winner       chess.Color `json:"winner,omitempty"`
	ServerTime   int64       `json:"server_time"`
}

// MovePlayedPayload is broadcast after a successful move.
type MovePlayedPayload struct {
	RoomID     string      `json:"room_id"`
	FEN        string      `json:"fen"`
	Move       string      `json:"move"`
	SAN        string      `json:"san"`
	Turn       chess.Color `json:"turn"`
	WhiteTime  int64       `json:"white_time"`
	BlackTime  int64       `json:"black_time"`
	ServerTime int64       `json:"server_time"`
}

// DrawOfferedPayload notifies the opponent of a pending draw offer.
type DrawOfferedPayload struct {
	OfferedBy chess.Color `json:"offered_by"`
}

// GameOverPayload reports the terminal state of a session.
type GameOverPayload struct {
	RoomID string      `json:"room_id"`
	Reason string      `json:"reason"`
	Winner chess.Color `json:"winner,omitempty"`
}

// MessageReceivedPayload carries a relayed chat message.
type MessageReceivedPayload struct {
	Message string `json:"message"`
}

// ErrorPayload reports a rejected intent to the sender only.
type ErrorPayload struct {
	Message string `json:"message"`
}
