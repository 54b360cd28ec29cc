package engine

import (
	"context"
)

// applyChipCapping returns the uncalled surplus of the street's top
// commitment to its bettor. Runs before every street transition and at
// hand end. Contributions from folded players still count toward the
// matched portion: chips they called before folding stay in the pot.
//
// Mutates h in memory; the caller persists the hand row.
func (e *Engine) applyChipCapping(ctx context.Context, tx Tx, h *Hand, players []*Player) error {
	actions, err := tx.ActionsForRound(ctx, h.ID, h.CurrentRound)
	if err != nil {
		return err
	}
	st := replayStreet(h, actions)

	var maxBet int64
	for _, total := range st.totals {
		if total > maxBet {
			maxBet = total
		}
	}
	if maxBet == 0 {
		return nil
	}

	var top *Player
	topCount := 0
	for _, p := range players {
		if st.total(p.ID) == maxBet {
			top = p
			topCount++
		}
	}
	if topCount != 1 {
		return nil // matched by at least one opponent
	}

	var secondMax int64
	for _, total := range st.totals {
		if total < maxBet && total > secondMax {
			secondMax = total
		}
	}
	refund := maxBet - secondMax
	if refund <= 0 {
		return nil
	}

	// The log keeps the full capped bet; the hand commitment is the
	// logged total minus what came back.
	handTotal, err := tx.HandSum(ctx, h.ID, top.ID)
	if err != nil {
		return err
	}
	top.Amount += refund
	top.AllBetSum = handTotal - refund
	top.ActionAmount = secondMax
	if err := tx.UpdatePlayer(ctx, top); err != nil {
		return err
	}

	h.PotAmount -= refund
	h.CurrentMaxBet = secondMax
	if st.lastRaiser == top.ID {
		// The capped bet was the last raise; rebuild the increment from
		// what actually got matched.
		rebuilt := secondMax - st.prevMaxBeforeRaise
		if rebuilt < 0 {
			rebuilt = 0
		}
		h.LastRaiseAmount = rebuilt
	}

	e.log.Debug("uncalled bet refunded",
		"hand", h.ID, "player", top.ID, "refund", refund, "matched", secondMax)
	return nil
}
