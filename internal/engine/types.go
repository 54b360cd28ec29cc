package engine

import (
	"time"

	"github.com/google/uuid"
)

// Round is a betting street within a hand.
type Round string

const (
	Preflop  Round = "preflop"
	Flop     Round = "flop"
	Turn     Round = "turn"
	River    Round = "river"
	Showdown Round = "showdown"
)

// nextRound maps each street to its successor.
var nextRound = map[Round]Round{
	Preflop: Flop,
	Flop:    Turn,
	Turn:    River,
	River:   Showdown,
}

// ActionType is a player action as stored in the action log and on the
// player row. The empty string means the player has not acted this
// street.
type ActionType string

const (
	ActionNone    ActionType = ""
	ActionBet     ActionType = "bet"
	ActionFold    ActionType = "fold"
	ActionCall    ActionType = "call"
	ActionCheck   ActionType = "check"
	ActionRaise   ActionType = "raise"
	ActionReRaise ActionType = "re-raise"
	ActionAllIn   ActionType = "all-in"
)

// Game is one tournament session. At most one game is active
// (EndTime == nil) at a time.
type Game struct {
	ID        uuid.UUID  `json:"id"`
	BlindTime int        `json:"blindTime"` // seconds per blind level
	Level     int        `json:"level"`
	Chips     int64      `json:"chips"` // starting stack
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

// GameBlind is one row of the blind schedule, keyed by level.
type GameBlind struct {
	Level      int   `json:"level"`
	SmallBlind int64 `json:"smallBlindAmount"`
	BigBlind   int64 `json:"bigBlindAmount"`
	Ante       int64 `json:"ante"`
}

// Player is a seat occupant within a game. Seat order is the insertion
// order (CreatedAt, then ID) and never changes once a hand has begun.
type Player struct {
	ID           uuid.UUID  `json:"id"`
	GameID       uuid.UUID  `json:"gameId"`
	Name         string     `json:"name"`
	Amount       int64      `json:"amount"` // current stack
	IsOnline     bool       `json:"isOnline"`
	IsActive     bool       `json:"isActive"` // still in the tournament
	Action       ActionType `json:"action"`   // last action this street
	ActionAmount int64      `json:"actionAmount"` // committed this street
	AllBetSum    int64      `json:"allBetSum"`    // committed this hand
	// InactiveHandID records the hand at which the player busted. It
	// freezes the seat slot so rotation accounting stays stable.
	InactiveHandID *uuid.UUID `json:"inactiveTimeHandId,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// Hand is one dealt hand.
type Hand struct {
	ID              uuid.UUID  `json:"id"`
	GameID          uuid.UUID  `json:"gameId"`
	Level           int        `json:"level"`
	Dealer          uuid.UUID  `json:"dealer"`
	SmallBlind      *uuid.UUID `json:"smallBlind,omitempty"` // nil on a dead small blind
	BigBlind        uuid.UUID  `json:"bigBlind"`
	CurrentTurn     uuid.UUID  `json:"currentPlayerTurnId"`
	PotAmount       int64      `json:"potAmount"`
	Ante            int64      `json:"ante"`
	SmallBlindAmt   int64      `json:"smallBlindAmount"`
	BigBlindAmt     int64      `json:"bigBlindAmount"`
	LastCallAmount  int64      `json:"lastCallAmount"`
	CurrentMaxBet   int64      `json:"currentMaxBet"`   // largest street commitment
	LastRaiseAmount int64      `json:"lastRaiseAmount"` // last legal raise increment
	CurrentRound    Round      `json:"currentRound"`
	// RoundChanged is set right after a street transition so the next
	// actor is anchored at the dealer's left instead of the last seat
	// that acted. Cleared once an actor is picked within the street.
	RoundChanged bool      `json:"isChangedCurrentRound"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Action is one append-only log entry. BetAmount is the number of chips
// the action moved into the pot (the delta, not the street total).
type Action struct {
	ID           uuid.UUID  `json:"id"`
	HandID       uuid.UUID  `json:"handId"`
	PlayerID     uuid.UUID  `json:"playerId"`
	Round        Round      `json:"round"`
	BettingRound int        `json:"bettingRound"` // monotonic per hand
	ActionOrder  int        `json:"actionOrder"`  // monotonic per hand
	Type         ActionType `json:"actionType"`
	BetAmount    int64      `json:"betAmount"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// Opportunities is the legal-action set for the player on turn.
type Opportunities struct {
	IsCanFold      bool  `json:"isCanFold"`
	IsCanCall      bool  `json:"isCanCall"`
	IsCanCheck     bool  `json:"isCanCheck"`
	IsCanBet       bool  `json:"isCanBet"`
	IsCanRaise     bool  `json:"isCanRaise"`
	IsCanReRaise   bool  `json:"isCanReRaise"`
	IsCanAllIn     bool  `json:"isCanAllIn"`
	BetMinAmount   int64 `json:"betMinAmount"`
	RaiseMinAmount int64 `json:"raiseMinAmount"`
	AllInAmount    int64 `json:"allInAmount"`
}

// Snapshot is the state returned to clients after every command.
type Snapshot struct {
	Players       []*Player      `json:"players"`
	Hand          *Hand          `json:"hand"`
	Level         int            `json:"level"`
	BlindTime     int            `json:"blindTime"`
	BlindDeadline time.Time      `json:"blindDeadline"`
	PlayerActions *Opportunities `json:"playerActions"`
}

// Winner is a caller-supplied pot share for NextHand. Shares are not
// validated against the pot; showdown evaluation happens outside the
// engine.
type Winner struct {
	PlayerID uuid.UUID `json:"id"`
	Amount   int64     `json:"amount"`
}

// Seat describes one roster entry used when a game starts.
type Seat struct {
	Name     string
	IsOnline bool
	IsActive bool
}
