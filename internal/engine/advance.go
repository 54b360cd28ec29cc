package engine

import (
	"context"

	"github.com/google/uuid"
)

// advance runs after every applied action: it detects hand and round
// completion, advances the street, fast-forwards all-in runouts, and
// otherwise picks the next actor. actorID is the player whose action
// was just applied; mid-street turn order continues from their seat.
func (e *Engine) advance(ctx context.Context, tx Tx, h *Hand, actorID uuid.UUID) error {
	players, err := tx.PlayersByGame(ctx, h.GameID)
	if err != nil {
		return err
	}

	var live, liveNotAllIn []*Player
	for _, p := range players {
		if p.IsActive && p.Action != ActionFold {
			live = append(live, p)
			if p.Action != ActionAllIn {
				liveNotAllIn = append(liveNotAllIn, p)
			}
		}
	}

	// One player left: everyone else folded, hand over.
	if len(live) < 2 {
		return e.finishHand(ctx, tx, h, players)
	}

	actions, err := tx.ActionsForRound(ctx, h.ID, h.CurrentRound)
	if err != nil {
		return err
	}
	st := replayStreet(h, actions)

	everyoneActed := true
	equalized := true
	for _, p := range liveNotAllIn {
		if !st.acted(p.ID) {
			everyoneActed = false
		}
		if st.total(p.ID) != st.maxBet {
			equalized = false
		}
	}
	// Players who cannot match the max are all-in; the street is done
	// once every player still holding chips has acted and matched.
	roundOver := everyoneActed && equalized && !h.RoundChanged

	if !roundOver {
		next := nextLiveSeat(players, actorID, func(p *Player) bool {
			return p.IsActive && p.Action != ActionFold && p.Action != ActionAllIn
		})
		if next == nil {
			// Nobody with chips left to act; treat the street as done.
			return e.finishHand(ctx, tx, h, players)
		}
		h.CurrentTurn = next.ID
		h.RoundChanged = false
		return tx.UpdateHand(ctx, h)
	}

	if err := e.applyChipCapping(ctx, tx, h, players); err != nil {
		return err
	}

	// River complete, or betting impossible with fewer than two stacks
	// in play: run out to showdown with no further betting.
	if h.CurrentRound == River || len(liveNotAllIn) < 2 {
		h.CurrentRound = Showdown
		e.log.Debug("hand reached showdown", "hand", h.ID, "pot", h.PotAmount)
		return tx.UpdateHand(ctx, h)
	}

	if err := tx.ResetStreetState(ctx, h.GameID); err != nil {
		return err
	}
	h.CurrentRound = nextRound[h.CurrentRound]
	h.CurrentMaxBet = 0
	h.LastRaiseAmount = 0
	h.LastCallAmount = 0
	h.RoundChanged = true

	first := nextLiveSeat(players, h.Dealer, func(p *Player) bool {
		return p.IsActive && p.Action != ActionFold && p.Action != ActionAllIn
	})
	if first == nil {
		h.CurrentRound = Showdown
		return tx.UpdateHand(ctx, h)
	}
	h.CurrentTurn = first.ID

	e.log.Debug("street advanced",
		"hand", h.ID, "round", h.CurrentRound, "first_to_act", first.ID)
	return tx.UpdateHand(ctx, h)
}

// finishHand caps the final street and marks the hand complete.
func (e *Engine) finishHand(ctx context.Context, tx Tx, h *Hand, players []*Player) error {
	if err := e.applyChipCapping(ctx, tx, h, players); err != nil {
		return err
	}
	h.CurrentRound = Showdown
	e.log.Debug("hand complete", "hand", h.ID, "pot", h.PotAmount)
	return tx.UpdateHand(ctx, h)
}

// nextLiveSeat returns the first player matching pred strictly after
// fromID in seat order, wrapping around; nil when nobody matches.
func nextLiveSeat(players []*Player, fromID uuid.UUID, pred func(*Player) bool) *Player {
	from := seatIndex(players, fromID)
	n := len(players)
	for i := 1; i <= n; i++ {
		p := players[(from+i)%n]
		if p.ID != fromID && pred(p) {
			return p
		}
	}
	return nil
}

func seatIndex(players []*Player, id uuid.UUID) int {
	for i, p := range players {
		if p.ID == id {
			return i
		}
	}
	return 0
}
