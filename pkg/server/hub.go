// Package server hosts the websocket hub: connection registration, room
// membership and the single-threaded dispatch of player intents into the
// session layer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/castlebridge/play-server/pkg/chess"
	"github.com/castlebridge/play-server/pkg/events"
	"github.com/castlebridge/play-server/pkg/game"
	"github.com/castlebridge/play-server/pkg/matchmaking"
	"github.com/castlebridge/play-server/pkg/messages"
	"github.com/castlebridge/play-server/pkg/rules"
	"github.com/castlebridge/play-server/pkg/store"
)

// InboundHubMessage are the messages that the hub receives.
type InboundHubMessage struct {
	Conn    *Connection             // who sent it
	Message messages.InboundMessage // decoded envelope
}

// Hub keeps track of all active connections and rooms, and routes every
// inbound intent to the matching component. Run consumes all channels from
// a single goroutine, so intents are handled one at a time: no two handlers
// for the same session ever interleave partway through a mutation.
type Hub struct {
	connections map[uuid.UUID]*Connection
	rooms       map[uuid.UUID]map[uuid.UUID]*Connection

	register   chan *Connection
	unregister chan *Connection
	inbound    chan InboundHubMessage
	quit       chan struct{}

	registry    *game.Registry
	queue       *matchmaking.Queue
	players     store.PlayerStore
	publisher   *events.Publisher
	initialTime time.Duration

	logger *zap.Logger
}

// NewHub creates a hub wired to its collaborators. initialTime is the time
// budget each player starts with.
func NewHub(
	registry *game.Registry,
	queue *matchmaking.Queue,
	players store.PlayerStore,
	publisher *events.Publisher,
	initialTime time.Duration,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID]*Connection),
		rooms:       make(map[uuid.UUID]map[uuid.UUID]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		inbound:     make(chan InboundHubMessage),
		quit:        make(chan struct{}),
		registry:    registry,
		queue:       queue,
		players:     players,
		publisher:   publisher,
		initialTime: initialTime,
		logger:      logger,
	}
}

// Run is the main execution loop of the hub.
func (h *Hub) Run() {
	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case msg := <-h.inbound:
			h.handleInbound(msg)

		case <-h.quit:
			return
		}
	}
}

// Shutdown stops the run loop.
func (h *Hub) Shutdown() {
	close(h.quit)
}

// Register hands a new connection to the run loop.
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister hands a closed connection to the run loop.
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

func (h *Hub) registerConnection(conn *Connection) {
	h.connections[conn.ID] = conn

	h.logger.Info("connection registered",
		zap.String("connection_id", conn.ID.String()),
		zap.String("user_id", conn.Identity.UserID),
		zap.Int("connections", len(h.connections)))

	conn.SendJSON(messages.OutboundMessage{
		Event: messages.EventConnected,
		Payload: messages.ConnectedPayload{
			ConnectionID: conn.ID.String(),
		},
	})
}

func (h *Hub) unregisterConnection(conn *Connection) {
	if _, ok := h.connections[conn.ID]; !ok {
		return
	}
	delete(h.connections, conn.ID)
	h.leaveAllRooms(conn)
	h.queue.Withdraw(conn.ID)

	// No reconnection grace: a bound player disconnecting mid-game
	// forfeits to the opponent.
	if session, ok := h.registry.Lookup(conn.ID); ok {
		if _, err := session.Abandon(conn.ID, time.Now()); err == nil {
			h.broadcastGameOver(session, conn.ID)
			h.finishSession(session)
		} else {
			h.registry.Unbind(conn.ID)
		}
	}

	close(conn.send)

	h.publisher.Publish(events.Event{
		Type: events.EventConnectionClosed,
		Payload: map[string]string{
			"connection_id": conn.ID.String(),
		},
	})

	h.logger.Info("connection unregistered",
		zap.String("connection_id", conn.ID.String()),
		zap.Int("connections", len(h.connections)))
}

// handleInbound decodes and routes one intent from a client.
func (h *Hub) handleInbound(msg InboundHubMessage) {
	switch msg.Message.Type {
	case messages.TypeFindGame:
		h.handleFindGame(msg)
	case messages.TypeCancelSearch:
		h.handleCancelSearch(msg.Conn)
	case messages.TypeJoinRoom:
		h.handleJoinRoom(msg)
	case messages.TypeGetGameData:
		h.handleGetGameData(msg)
	case messages.TypeMove:
		h.handleMove(msg)
	case messages.TypeResign:
		h.handleResign(msg)
	case messages.TypeOfferDraw:
		h.handleOfferDraw(msg)
	case messages.TypeRespondDraw:
		h.handleRespondDraw(msg)
	case messages.TypeSendMessage:
		h.handleSendMessage(msg)
	default:
		h.sendError(msg.Conn, "unknown message type")
	}
}

func (h *Hub) handleFindGame(msg InboundHubMessage) {
	var payload messages.FindGamePayload
	if len(msg.Message.Payload) > 0 {
		if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
			h.sendError(msg.Conn, "invalid FIND_GAME payload")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	record, err := h.players.EnsurePlayer(ctx, msg.Conn.Identity.UserID, msg.Conn.Identity.Username)
	cancel()
	if err != nil {
		h.logger.Error("player lookup failed", zap.Error(err))
		h.sendError(msg.Conn, "matchmaking unavailable")
		return
	}

	pairs := h.queue.Enqueue(matchmaking.Entry{
		ConnectionID: msg.Conn.ID,
		UserID:       record.UserID,
		Username:     record.Username,
		Rating:       record.Rating,
		RatingBand:   payload.RatingBand,
		EnqueuedAt:   time.Now(),
	})

	for _, pair := range pairs {
		h.createMatch(pair)
	}
}

func (h *Hub) handleCancelSearch(conn *Connection) {
	h.queue.Withdraw(conn.ID)
	conn.SendJSON(messages.OutboundMessage{Event: messages.EventSearchCancelled})
}

// createMatch turns a matched pair into a live session and seeds both
// players.
func (h *Hub) createMatch(pair matchmaking.Pair) {
	white := game.Player{
		ConnectionID: pair.White.ConnectionID,
		UserID:       pair.White.UserID,
		Username:     pair.White.Username,
		Rating:       pair.White.Rating,
		Color:        chess.White,
	}
	black := game.Player{
		ConnectionID: pair.Black.ConnectionID,
		UserID:       pair.Black.UserID,
		Username:     pair.Black.Username,
		Rating:       pair.Black.Rating,
		Color:        chess.Black,
	}

	session := h.registry.CreateSession(game.Config{
		White:       white,
		Black:       black,
		InitialFEN:  rules.StartingFEN,
		InitialTime: h.initialTime,
	})

	initialMs := h.initialTime.Milliseconds()
	seed := func(player, opponent game.Player) messages.MatchFoundPayload {
		return messages.MatchFoundPayload{
			RoomID:     session.RoomID.String(),
			Color:      player.Color,
			InitialFEN: rules.StartingFEN,
			WhiteTime:  initialMs,
			BlackTime:  initialMs,
			Opponent: messages.PlayerInfo{
				UserID:   opponent.UserID,
				Username: opponent.Username,
				Rating:   opponent.Rating,
			},
		}
	}

	if conn, ok := h.connections[white.ConnectionID]; ok {
		conn.SendJSON(messages.OutboundMessage{
			Event:   messages.EventMatchFound,
			Payload: seed(white, black),
		})
	}
	if conn, ok := h.connections[black.ConnectionID]; ok {
		conn.SendJSON(messages.OutboundMessage{
			Event:   messages.EventMatchFound,
			Payload: seed(black, white),
		})
	}

	h.publisher.Publish(events.Event{
		Type:   events.EventMatchCreated,
		RoomID: session.RoomID.String(),
	})
}

func (h *Hub) handleJoinRoom(msg InboundHubMessage) {
	var payload messages.JoinRoomPayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, "invalid JOIN_ROOM payload")
		return
	}

	roomID, err := uuid.Parse(payload.RoomID)
	if err != nil {
		h.sendError(msg.Conn, "invalid room id")
		return
	}

	if err := h.registry.Bind(msg.Conn.ID, roomID); err != nil {
		h.sendError(msg.Conn, err.Error())
		return
	}

	h.joinRoom(roomID, msg.Conn)
}

func (h *Hub) handleGetGameData(msg InboundHubMessage) {
	var payload messages.GetGameDataPayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, "invalid GET_GAME_DATA payload")
		return
	}

	session, err := h.resolveRoom(payload.RoomID)
	if err != nil {
		h.sendError(msg.Conn, err.Error())
		return
	}

	now := time.Now()
	h.expireIfFlagged(session, now)

	snap := session.Snapshot(now)
	msg.Conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventGameState,
		Payload: snapshotPayload(snap),
	})
}

func (h *Hub) handleMove(msg InboundHubMessage) {
	var payload messages.MovePayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, "invalid MOVE payload")
		return
	}

	session, err := h.resolveRoom(payload.RoomID)
	if err != nil {
		h.sendError(msg.Conn, err.Error())
		return
	}

	now := time.Now()
	h.expireIfFlagged(session, now)

	result, err := session.ApplyMove(msg.Conn.ID, payload.Move, now)
	if err != nil {
		h.sendError(msg.Conn, err.Error())
		return
	}

	h.broadcastToRoom(session.RoomID, uuid.Nil, messages.OutboundMessage{
		Event: messages.EventMovePlayed,
		Payload: messages.MovePlayedPayload{
			RoomID:     session.RoomID.String(),
			FEN:        result.FEN,
			Move:       result.UCI,
			SAN:        result.SAN,
			Turn:       result.Turn,
			WhiteTime:  result.WhiteMs,
			BlackTime:  result.BlackMs,
			ServerTime: now.UnixMilli(),
		},
	})

	h.publisher.Publish(events.Event{
		Type:    events.EventMoveProcessed,
		RoomID:  session.RoomID.String(),
		Payload: result.UCI,
	})

	if result.Over {
		h.broadcastGameOver(session, uuid.Nil)
		h.finishSession(session)
	}
}

func (h *Hub) handleResign(msg InboundHubMessage) {
	var payload messages.ResignPayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, "invalid RESIGN payload")
		return
	}

	session, err := h.resolveRoom(payload.RoomID)
	if err != nil {
		h.sendError(msg.Conn, err.Error())
		return
	}

	now := time.Now()
	h.expireIfFlagged(session, now)

	if _, err := session.Resign(msg.Conn.ID, now); err != nil {
		h.sendError(msg.Conn, err.Error())
		return
	}

	h.broadcastToRoom(session.RoomID, msg.Conn.ID, messages.OutboundMessage{
		Event: messages.EventOpponentResigned,
	})
	h.broadcastGameOver(session, uuid.Nil)
	h.finishSession(session)
}

func (h *Hub) handleOfferDraw(msg InboundHubMessage) {
	var payload messages.OfferDrawPayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, "invalid OFFER_DRAW payload")
		return
	}

	session, err := h.resolveRoom(payload.RoomID)
	if err != nil {
		h.sendError(msg.Conn, err.Error())
		return
	}

	h.expireIfFlagged(session, time.Now())

	offeredBy, err := session.OfferDraw(msg.Conn.ID)
	if err != nil {
		h.sendError(msg.Conn, err.Error())
		return
	}

	h.broadcastToRoom(session.RoomID, msg.Conn.ID, messages.OutboundMessage{
		Event:   messages.EventDrawOffered,
		Payload: messages.DrawOfferedPayload{OfferedBy: offeredBy},
	})
}

func (h *Hub) handleRespondDraw(msg InboundHubMessage) {
	var payload messages.RespondDrawPayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, "invalid RESPOND_DRAW payload")
		return
	}

	session, err := h.resolveRoom(payload.RoomID)
	if err != nil {
		h.sendError(msg.Conn, err.Error())
		return
	}

	now := time.Now()
	h.expireIfFlagged(session, now)

	accepted, err := session.RespondDraw(msg.Conn.ID, payload.Accept, now)
	if err != nil {
		h.sendError(msg.Conn, err.Error())
		return
	}

	if accepted {
		// Both members learn the game is drawn.
		h.broadcastToRoom(session.RoomID, uuid.Nil, messages.OutboundMessage{
			Event: messages.EventDrawOccurred,
		})
		h.finishSession(session)
		return
	}

	// Only the original offerer learns about the rejection.
	h.broadcastToRoom(session.RoomID, msg.Conn.ID, messages.OutboundMessage{
		Event: messages.EventDrawRejected,
	})
}

// handleSendMessage is a stateless pass-through: the message reaches every
// other member of the room, never the sender, never another room.
func (h *Hub) handleSendMessage(msg InboundHubMessage) {
	var payload messages.SendMessagePayload
	if err := json.Unmarshal(msg.Message.Payload, &payload); err != nil {
		h.sendError(msg.Conn, "invalid SEND_MESSAGE payload")
		return
	}

	roomID, err := uuid.Parse(payload.RoomID)
	if err != nil {
		h.sendError(msg.Conn, "invalid room id")
		return
	}

	h.broadcastToRoom(roomID, msg.Conn.ID, messages.OutboundMessage{
		Event:   messages.EventMessageReceived,
		Payload: messages.MessageReceivedPayload{Message: payload.Message},
	})
}

// resolveRoom parses a room id and resolves the live session behind it.
// Every room-scoped intent goes through here, so a stale room after the
// session ended degrades into an error to the sender.
func (h *Hub) resolveRoom(raw string) (*game.Session, error) {
	roomID, err := uuid.Parse(raw)
	if err != nil {
		return nil, errors.New("invalid room id")
	}
	session, ok := h.registry.LookupByRoom(roomID)
	if !ok {
		return nil, game.ErrNoSuchSession
	}
	return session, nil
}

// expireIfFlagged evaluates lazy clock expiry before an intent is handled.
// A fallen flag ends the session and is announced to the whole room.
func (h *Hub) expireIfFlagged(session *game.Session, now time.Time) {
	if _, fell := session.CheckFlagFall(now); fell {
		h.broadcastGameOver(session, uuid.Nil)
		h.finishSession(session)
	}
}

// finishSession publishes the result for persistence and releases the
// registry entry. Room membership survives so post-game chat keeps
// working until the players disconnect.
func (h *Hub) finishSession(session *game.Session) {
	result, ok := session.Result()
	if !ok {
		return
	}

	h.publisher.Publish(events.Event{
		Type:   events.EventSessionEnded,
		RoomID: session.RoomID.String(),
		Payload: store.GameResult{
			WhiteID: result.White.UserID,
			BlackID: result.Black.UserID,
			Result:  resultFrom(result.Winner),
			Reason:  string(result.Reason),
		},
	})

	h.registry.Release(session.RoomID)
}

func (h *Hub) broadcastGameOver(session *game.Session, exclude uuid.UUID) {
	result, ok := session.Result()
	if !ok {
		return
	}
	h.broadcastToRoom(session.RoomID, exclude, messages.OutboundMessage{
		Event: messages.EventGameOver,
		Payload: messages.GameOverPayload{
			RoomID: session.RoomID.String(),
			Reason: string(result.Reason),
			Winner: result.Winner,
		},
	})
}

// joinRoom adds a connection to a room's membership set. Joining twice is
// a no-op.
func (h *Hub) joinRoom(roomID uuid.UUID, conn *Connection) {
	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[uuid.UUID]*Connection)
		h.rooms[roomID] = members
	}
	members[conn.ID] = conn
}

func (h *Hub) leaveAllRooms(conn *Connection) {
	for roomID, members := range h.rooms {
		delete(members, conn.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// broadcastToRoom sends a message to every room member except the excluded
// connection. Pass uuid.Nil to reach the whole room.
func (h *Hub) broadcastToRoom(roomID uuid.UUID, exclude uuid.UUID, msg messages.OutboundMessage) {
	for id, conn := range h.rooms[roomID] {
		if id == exclude {
			continue
		}
		conn.SendJSON(msg)
	}
}

func (h *Hub) sendError(conn *Connection, text string) {
	conn.SendJSON(messages.OutboundMessage{
		Event:   messages.EventError,
		Payload: messages.ErrorPayload{Message: text},
	})
}

func snapshotPayload(snap game.Snapshot) messages.GameStatePayload {
	return messages.GameStatePayload{
		RoomID:       snap.RoomID.String(),
		FEN:          snap.FEN,
		Turn:         snap.Turn,
		WhiteTime:    snap.WhiteMs,
		BlackTime:    snap.BlackMs,
		RunningColor: snap.RunningColor,
		WhiteMoved:   snap.WhiteMoved,
		BlackMoved:   snap.BlackMoved,
		White: messages.PlayerInfo{
			UserID:   snap.White.UserID,
			Username: snap.White.Username,
			Rating:   snap.White.Rating,
		},
		Black: messages.PlayerInfo{
			UserID:   snap.Black.UserID,
			Username: snap.Black.Username,
			Rating:   snap.Black.Rating,
		},
		Status:     string(snap.Status),
		Reason:     string(snap.EndReason),
		Winner:     snap.Winner,
		ServerTime: snap.ServerTime.UnixMilli(),
	}
}

func resultFrom(winner chess.Color) store.Result {
	switch winner {
	case chess.White:
		return store.ResultWhiteWins
	case chess.Black:
		return store.ResultBlackWins
	default:
		return store.ResultDraw
	}
}
