package engine

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
)

// Engine is the tournament betting engine. All state lives in the
// store; the engine holds no hand or player data across commands. Each
// command runs inside one store transaction, serialized per game.
type Engine struct {
	store Store
	log   *log.Logger
	clock quartz.Clock
	seats []Seat

	locks sync.Map // uuid.UUID -> *sync.Mutex
	// startMu serializes game creation, which has no game id to lock
	// on yet.
	startMu sync.Mutex
}

// New creates an engine over the given store. seats is the roster used
// when a game starts; it needs at least four entries so the first hand
// can seat a dealer, both blinds and a first actor.
func New(store Store, logger *log.Logger, clock quartz.Clock, seats []Seat) *Engine {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Engine{
		store: store,
		log:   logger.WithPrefix("engine"),
		clock: clock,
		seats: seats,
	}
}

// lockGame serializes commands per game: the observable behavior is a
// single writer per game, with the store transaction as the inner
// consistency boundary.
func (e *Engine) lockGame(id uuid.UUID) func() {
	v, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// PlayerAction validates and applies one action for the player on
// turn, advances the hand, and returns the resulting snapshot.
func (e *Engine) PlayerAction(ctx context.Context, gameID, handID, playerID uuid.UUID, action ActionType, betAmount int64) (*Snapshot, error) {
	unlock := e.lockGame(gameID)
	defer unlock()

	var snap *Snapshot
	err := e.store.Transact(ctx, func(tx Tx) error {
		if err := e.processAction(ctx, tx, gameID, handID, playerID, action, betAmount, false); err != nil {
			return err
		}
		var err error
		snap, err = e.snapshotTx(ctx, tx, gameID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// EndGame stamps the end time on the active game.
func (e *Engine) EndGame(ctx context.Context, gameID uuid.UUID) (bool, error) {
	unlock := e.lockGame(gameID)
	defer unlock()

	err := e.store.Transact(ctx, func(tx Tx) error {
		g, err := tx.ActiveGame(ctx)
		if err == ErrNoRows {
			return notFoundErrorf("no active game")
		}
		if err != nil {
			return err
		}
		if g.ID != gameID {
			return domainErrorf("game %s is not the active game", gameID)
		}
		return tx.SetGameEnded(ctx, g.ID, e.clock.Now())
	})
	if err != nil {
		return false, err
	}
	e.log.Info("game ended", "game", gameID)
	return true, nil
}

// ActiveGame returns the snapshot of the live game, or nil when no
// game is running.
func (e *Engine) ActiveGame(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := e.store.Transact(ctx, func(tx Tx) error {
		g, err := tx.ActiveGame(ctx)
		if err == ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		snap, err = e.snapshotTx(ctx, tx, g.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Rebuy restores a busted player's stack to the game's starting stack.
// Valid only in the settle window: handID must be the game's current
// hand and that hand must be at showdown, so a seat never re-enters a
// street it already left.
func (e *Engine) Rebuy(ctx context.Context, gameID, handID, playerID uuid.UUID) (*Snapshot, error) {
	unlock := e.lockGame(gameID)
	defer unlock()

	var snap *Snapshot
	err := e.store.Transact(ctx, func(tx Tx) error {
		g, err := tx.GameByID(ctx, gameID)
		if err == ErrNoRows {
			return notFoundErrorf("game %s not found", gameID)
		}
		if err != nil {
			return err
		}
		p, err := tx.PlayerByID(ctx, playerID)
		if err == ErrNoRows {
			return notFoundErrorf("player %s not found", playerID)
		}
		if err != nil {
			return err
		}
		if p.GameID != gameID {
			return domainErrorf("player %s is not in game %s", playerID, gameID)
		}
		h, err := tx.LastHandByGame(ctx, gameID)
		if err == ErrNoRows {
			return notFoundErrorf("game %s has no hands", gameID)
		}
		if err != nil {
			return err
		}
		if h.ID != handID {
			return domainErrorf("hand %s is not the game's current hand", handID)
		}
		// A fresh stack appearing mid-street would hand an all-in or
		// folded seat the turn again.
		if h.CurrentRound != Showdown {
			return domainErrorf("hand %s is still in progress", handID)
		}
		if p.Amount != 0 {
			return domainErrorf("player %s still has chips", playerID)
		}
		if err := e.rebuyPlayer(ctx, tx, g, p); err != nil {
			return err
		}
		snap, err = e.snapshotTx(ctx, tx, gameID)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("player rebought", "game", gameID, "player", playerID)
	return snap, nil
}

// rebuyPlayer resets a seat to a fresh stack. Shared by the rebuy
// command and the next-hand rebuy list.
func (e *Engine) rebuyPlayer(ctx context.Context, tx Tx, g *Game, p *Player) error {
	p.Amount = g.Chips
	p.IsActive = true
	p.Action = ActionNone
	p.ActionAmount = 0
	p.AllBetSum = 0
	p.InactiveHandID = nil
	return tx.UpdatePlayer(ctx, p)
}

// snapshotTx assembles the client-facing snapshot inside the current
// transaction so two reads without intervening commands are identical.
func (e *Engine) snapshotTx(ctx context.Context, tx Tx, gameID uuid.UUID) (*Snapshot, error) {
	g, err := tx.GameByID(ctx, gameID)
	if err == ErrNoRows {
		return nil, notFoundErrorf("game %s not found", gameID)
	}
	if err != nil {
		return nil, err
	}
	h, err := tx.LastHandByGame(ctx, gameID)
	if err == ErrNoRows {
		return nil, notFoundErrorf("game %s has no hands", gameID)
	}
	if err != nil {
		return nil, err
	}
	players, err := tx.PlayersByGame(ctx, gameID)
	if err != nil {
		return nil, err
	}

	opps := &Opportunities{}
	if h.CurrentRound != Showdown {
		var turn *Player
		for _, p := range players {
			if p.ID == h.CurrentTurn {
				turn = p
				break
			}
		}
		if turn != nil {
			opps, err = e.opportunities(ctx, tx, h, turn)
			if err != nil {
				return nil, err
			}
		}
	}

	return &Snapshot{
		Players:       players,
		Hand:          h,
		Level:         g.Level,
		BlindTime:     g.BlindTime,
		BlindDeadline: g.StartTime.Add(time.Duration(g.Level*g.BlindTime) * time.Second),
		PlayerActions: opps,
	}, nil
}
