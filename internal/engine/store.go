package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ErrNoRows is returned by Tx lookups when the entity does not exist.
// Implementations translate their driver's sentinel into this one.
type noRowsError struct{}

func (noRowsError) Error() string { return "no rows" }

// ErrNoRows is the store-agnostic missing-row sentinel.
var ErrNoRows error = noRowsError{}

// Store is the transactional repository the engine runs against. Every
// command is applied within exactly one Transact call: fn returning an
// error rolls the transaction back, otherwise it commits.
type Store interface {
	Transact(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the repository surface available inside a transaction.
type Tx interface {
	// Games.
	CreateGame(ctx context.Context, g *Game) error
	GameByID(ctx context.Context, id uuid.UUID) (*Game, error)
	// ActiveGame returns the game with no end time, or ErrNoRows.
	ActiveGame(ctx context.Context) (*Game, error)
	SetGameLevel(ctx context.Context, id uuid.UUID, level int) error
	SetGameEnded(ctx context.Context, id uuid.UUID, at time.Time) error

	// Blind schedule, keyed by level (not a foreign key).
	BlindForLevel(ctx context.Context, level int) (*GameBlind, error)
	PutBlindLevel(ctx context.Context, b *GameBlind) error

	// Players. PlayersByGame returns seat order: created_at, then id.
	CreatePlayer(ctx context.Context, p *Player) error
	PlayerByID(ctx context.Context, id uuid.UUID) (*Player, error)
	PlayersByGame(ctx context.Context, gameID uuid.UUID) ([]*Player, error)
	UpdatePlayer(ctx context.Context, p *Player) error
	// CreditPlayer adjusts a stack by delta without rewriting the row.
	CreditPlayer(ctx context.Context, id uuid.UUID, delta int64) error
	// ResetStreetState clears action/action_amount for every non-folded
	// non-all-in player of the game (street transition bulk update).
	ResetStreetState(ctx context.Context, gameID uuid.UUID) error
	// ResetHandState clears action, action_amount and all_bet_sum for
	// every player of the game (new hand).
	ResetHandState(ctx context.Context, gameID uuid.UUID) error

	// Hands.
	CreateHand(ctx context.Context, h *Hand) error
	HandByID(ctx context.Context, id uuid.UUID) (*Hand, error)
	LastHandByGame(ctx context.Context, gameID uuid.UUID) (*Hand, error)
	UpdateHand(ctx context.Context, h *Hand) error

	// Action log.
	AppendAction(ctx context.Context, a *Action) error
	LastAction(ctx context.Context, handID uuid.UUID) (*Action, error)
	// ActionsForRound returns the street's log in action order.
	ActionsForRound(ctx context.Context, handID uuid.UUID, round Round) ([]*Action, error)
	// StreetSum aggregates bet_amount for one player on one street.
	StreetSum(ctx context.Context, handID, playerID uuid.UUID, round Round) (int64, error)
	// HandSum aggregates bet_amount for one player across the hand.
	HandSum(ctx context.Context, handID, playerID uuid.UUID) (int64, error)
	// ActionTypesForRound returns the distinct action types logged on
	// one street.
	ActionTypesForRound(ctx context.Context, handID uuid.UUID, round Round) (map[ActionType]bool, error)
}
