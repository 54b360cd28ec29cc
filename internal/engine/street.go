package engine

import (
	"github.com/google/uuid"
)

// streetState is the betting picture of one street, replayed from the
// action log. The log is ground truth; hand-row counters mirror it but
// the advancer and capping work from the replay.
type streetState struct {
	totals     map[uuid.UUID]int64 // chips committed this street, per player
	actedOrder map[uuid.UUID]int   // last voluntary action order, per player
	maxBet     int64
	lastRaise  int64
	lastRaiser uuid.UUID
	// prevMaxBeforeRaise is the street max just before the last raising
	// action; capping needs it to rebuild last_raise_amount after a
	// refund.
	prevMaxBeforeRaise int64
	// reopenOrder is the action order of the last full raise. A player
	// whose last voluntary action predates it may raise again; a short
	// all-in moves the max without moving this.
	reopenOrder int
}

// blindPosts returns how many forced post actions sit at the head of
// the preflop log: small blind and big blind, or big blind alone when
// the small blind seat is dead.
func blindPosts(h *Hand) int {
	if h.SmallBlind != nil {
		return 2
	}
	return 1
}

// replayStreet folds the street's log into a streetState. Forced blind
// posts count toward totals and the current max but are not voluntary
// actions, so the big blind keeps the preflop option.
func replayStreet(h *Hand, actions []*Action) *streetState {
	st := &streetState{
		totals:     make(map[uuid.UUID]int64),
		actedOrder: make(map[uuid.UUID]int),
	}
	posts := blindPosts(h)

	for _, a := range actions {
		st.totals[a.PlayerID] += a.BetAmount
		newTotal := st.totals[a.PlayerID]
		forced := a.Round == Preflop && a.ActionOrder <= posts

		switch a.Type {
		case ActionBet, ActionRaise, ActionReRaise:
			if newTotal > st.maxBet {
				st.prevMaxBeforeRaise = st.maxBet
				if forced {
					// The big blind post counts as a full bet, so the
					// first preflop raise must go to at least two big
					// blinds.
					st.lastRaise = newTotal
				} else {
					st.lastRaise = newTotal - st.maxBet
				}
				st.maxBet = newTotal
				st.lastRaiser = a.PlayerID
				st.reopenOrder = a.ActionOrder
			}
		case ActionAllIn:
			if newTotal > st.maxBet {
				required := st.lastRaise
				if st.maxBet == 0 {
					required = h.BigBlindAmt
				}
				full := newTotal-st.maxBet >= required
				st.prevMaxBeforeRaise = st.maxBet
				if full {
					st.lastRaise = newTotal - st.maxBet
					st.reopenOrder = a.ActionOrder
				}
				st.maxBet = newTotal
				st.lastRaiser = a.PlayerID
			}
		}

		if !forced {
			st.actedOrder[a.PlayerID] = a.ActionOrder
		}
	}
	return st
}

// total returns the chips a player has committed this street.
func (st *streetState) total(id uuid.UUID) int64 {
	return st.totals[id]
}

// acted reports whether the player has taken a voluntary action this
// street. Blind posts do not count, which is what gives the big blind
// its preflop option.
func (st *streetState) acted(id uuid.UUID) bool {
	_, ok := st.actedOrder[id]
	return ok
}

// mayRaise reports whether the player is allowed to raise: either they
// have not acted this street, or a full raise arrived after their last
// action. A short all-in does not reopen the betting.
func (st *streetState) mayRaise(id uuid.UUID) bool {
	last, ok := st.actedOrder[id]
	if !ok {
		return true
	}
	return st.reopenOrder > last
}
