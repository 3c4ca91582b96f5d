package store

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/castlebridge/play-server/pkg/events"
)

// GameResult is the SESSION_ENDED event payload the recorder consumes.
type GameResult struct {
	WhiteID string
	BlackID string
	Result  Result
	Reason  string
}

// Recorder subscribes to session-ended events and persists the outcome.
// Keeping persistence behind the publisher means the hub never blocks on
// the store mid-dispatch.
type Recorder struct {
	store  PlayerStore
	logger *zap.Logger
}

// NewRecorder creates a recorder writing to the given store.
func NewRecorder(store PlayerStore, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// Attach subscribes the recorder to the publisher.
func (r *Recorder) Attach(publisher *events.Publisher) {
	publisher.Subscribe(events.EventSessionEnded, r.handle)
}

func (r *Recorder) handle(event events.Event) {
	result, ok := event.Payload.(GameResult)
	if !ok {
		r.logger.Error("invalid session ended payload",
			zap.String("room_id", event.RoomID))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.RecordResult(ctx, result.WhiteID, result.BlackID, result.Result); err != nil {
		r.logger.Error("failed to record game result",
			zap.String("room_id", event.RoomID),
			zap.Error(err))
		return
	}

	r.logger.Info("game result recorded",
		zap.String("room_id", event.RoomID),
		zap.String("result", string(result.Result)),
		zap.String("reason", result.Reason))
}
