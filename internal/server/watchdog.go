package server

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/cardroomlabs/tourneycore/internal/engine"
)

// turnWatchdog folds the player on turn when they run out of time. It
// is re-armed from every snapshot; the pending turn is captured at arm
// time and re-checked by the engine, so a timer firing after the
// player acted loses the race on the turn check and is dropped.
type turnWatchdog struct {
	server  *Server
	clock   quartz.Clock
	timeout time.Duration

	mu    sync.Mutex
	timer *quartz.Timer
}

func (w *turnWatchdog) init(s *Server, clock quartz.Clock, timeoutSeconds int) {
	w.server = s
	w.clock = clock
	w.timeout = time.Duration(timeoutSeconds) * time.Second
}

// arm schedules a forced fold for the player on turn, replacing any
// pending timer. Showdown snapshots disarm instead.
func (w *turnWatchdog) arm(snap *engine.Snapshot) {
	if w.timeout <= 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if snap.Hand == nil || snap.Hand.CurrentRound == engine.Showdown {
		return
	}

	gameID := snap.Hand.GameID
	handID := snap.Hand.ID
	playerID := snap.Hand.CurrentTurn
	w.timer = w.clock.AfterFunc(w.timeout, func() {
		w.fire(gameID, handID, playerID)
	})
}

func (w *turnWatchdog) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// fire synthesizes a fold for the player captured at arm time.
func (w *turnWatchdog) fire(gameID, handID, playerID uuid.UUID) {
	s := w.server
	snap, err := s.engine.PlayerAction(context.Background(), gameID, handID, playerID, engine.ActionFold, 0)
	if err != nil {
		// The player acted or the hand ended before the timer fired.
		s.logger.Debug("Turn timeout skipped", "hand", handID, "player", playerID, "error", err)
		return
	}
	s.logger.Info("Turn timed out, player folded", "hand", handID, "player", playerID)

	timeoutMsg, err := NewMessage(MessageTypeTurnTimeout, TurnTimeoutData{
		GameID:   gameID.String(),
		HandID:   handID.String(),
		PlayerID: playerID.String(),
		Action:   string(engine.ActionFold),
	})
	if err == nil {
		s.Broadcast(timeoutMsg)
	}
	snapMsg, err := NewMessage(MessageTypeSnapshot, snapshotData(snap))
	if err == nil {
		s.Broadcast(snapMsg)
	}
	w.arm(snap)
}
