// Package messages defines the wire envelopes exchanged with clients.
package messages

import "encoding/json"

// Inbound message types.
const (
	TypeFindGame     = "FIND_GAME"
	TypeCancelSearch = "CANCEL_SEARCH"
	TypeJoinRoom     = "JOIN_ROOM"
	TypeGetGameData  = "GET_GAME_DATA"
	TypeMove         = "MOVE"
	TypeResign       = "RESIGN"
	TypeOfferDraw    = "OFFER_DRAW"
	TypeRespondDraw  = "RESPOND_DRAW"
	TypeSendMessage  = "SEND_MESSAGE"
)

// InboundMessage is the generic wrapper for messages coming from the client.
// The "type" field tells us the action; "payload" is the data we parse further.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// FindGamePayload starts a matchmaking search.
type FindGamePayload struct {
	// RatingBand limits how far the opponent's rating may be from the
	// searcher's. Zero accepts anyone.
	RatingBand int `json:"rating_band"`
}

// JoinRoomPayload binds the connection to a room.
type JoinRoomPayload struct {
	RoomID string `json:"room_id"`
}

// GetGameDataPayload requests the current session snapshot.
type GetGameDataPayload struct {
	RoomID string `json:"room_id"`
}

// MovePayload submits a move in UCI (or algebraic) notation. The server
// asks the legality engine for the resulting position itself; clients do
// not submit board state.
type MovePayload struct {
	RoomID string `json:"room_id"`
	Move   string `json:"move"`
}

// ResignPayload resigns the game.
type ResignPayload struct {
	RoomID string `json:"room_id"`
}

// OfferDrawPayload offers a draw to the opponent.
type OfferDrawPayload struct {
	RoomID string `json:"room_id"`
}

// RespondDrawPayload answers the outstanding draw offer.
type RespondDrawPayload struct {
	RoomID string `json:"room_id"`
	Accept bool   `json:"accept"`
}

// SendMessagePayload relays a chat message to the other room members.
type SendMessagePayload struct {
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}
