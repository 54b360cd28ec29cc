package engine

import (
	"context"

	"github.com/google/uuid"
)

// processAction validates and applies one player action inside the
// current transaction, then hands off to the advancer. forced marks
// the synthetic blind posts created at hand start: they skip the turn
// and sizing checks but flow through the same mutation and logging
// path as in-game actions.
func (e *Engine) processAction(ctx context.Context, tx Tx, gameID, handID, playerID uuid.UUID, action ActionType, betAmount int64, forced bool) error {
	h, err := tx.HandByID(ctx, handID)
	if err == ErrNoRows {
		return notFoundErrorf("hand %s not found", handID)
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
	if h.GameID != gameID {
		return domainErrorf("hand %s does not belong to game %s", handID, gameID)
	}
	if p.GameID != gameID {
		return domainErrorf("player %s does not belong to game %s", playerID, gameID)
	}
	if !p.IsActive {
		return domainErrorf("player %s is out of the tournament", playerID)
	}
	if h.CurrentRound == Showdown {
		return domainErrorf("hand %s is over", handID)
	}
	if !forced && h.CurrentTurn != p.ID {
		// Turn state is re-read inside the transaction, so the loser of
		// a race on the same hand lands here.
		return conflictingTurnErrorf("it is not player %s's turn", playerID)
	}

	committed, err := tx.StreetSum(ctx, h.ID, p.ID, h.CurrentRound)
	if err != nil {
		return err
	}

	// delta is what this action moves from the stack into the pot.
	var delta int64
	label := action

	switch action {
	case ActionBet:
		if h.CurrentMaxBet != 0 {
			return domainErrorf("street already has a bet")
		}
		if betAmount <= 0 {
			return domainErrorf("bet requires a positive amount")
		}
		if forced && betAmount > p.Amount {
			betAmount = p.Amount // short-stacked blind posts all-in
		}
		if betAmount > p.Amount {
			return domainErrorf("bet %d exceeds stack %d", betAmount, p.Amount)
		}
		if !forced && betAmount < h.BigBlindAmt && betAmount < p.Amount {
			return domainErrorf("bet below minimum %d", h.BigBlindAmt)
		}
		delta = betAmount
		h.CurrentMaxBet = betAmount
		h.LastRaiseAmount = betAmount
		if delta == p.Amount {
			label = ActionAllIn
		}

	case ActionRaise, ActionReRaise:
		// Re-raise is raise with chips already committed this street;
		// the wire keeps the distinction, the sizing rule does not.
		if h.CurrentMaxBet == 0 && !forced {
			return domainErrorf("nothing to raise, bet instead")
		}
		if forced && betAmount-committed > p.Amount {
			betAmount = committed + p.Amount // short-stacked blind posts all-in
		}
		delta = betAmount - committed
		if delta <= 0 {
			return domainErrorf("raise to %d does not add chips", betAmount)
		}
		if delta > p.Amount {
			return domainErrorf("raise to %d exceeds stack", betAmount)
		}
		if !forced {
			minIncrement := h.LastRaiseAmount
			if minIncrement < h.BigBlindAmt {
				minIncrement = h.BigBlindAmt
			}
			if betAmount < h.CurrentMaxBet+minIncrement {
				return domainErrorf("raise to %d below minimum %d", betAmount, h.CurrentMaxBet+minIncrement)
			}
			ok, err := e.mayRaiseNow(ctx, tx, h, p.ID)
			if err != nil {
				return err
			}
			if !ok {
				return domainErrorf("betting is closed for player %s this street", p.ID)
			}
		}
		if forced {
			// Big blind post: the full post is the raise-to amount, so
			// the first preflop raise must reach two big blinds.
			h.LastRaiseAmount = betAmount
		} else {
			h.LastRaiseAmount = betAmount - h.CurrentMaxBet
		}
		h.CurrentMaxBet = betAmount
		if delta == p.Amount {
			label = ActionAllIn
		}

	case ActionCall:
		owed := h.CurrentMaxBet - committed
		if owed <= 0 {
			return domainErrorf("nothing to call")
		}
		delta = owed
		if delta >= p.Amount {
			delta = p.Amount
			label = ActionAllIn
		}
		h.LastCallAmount = delta

	case ActionCheck:
		if h.CurrentMaxBet > committed {
			return domainErrorf("cannot check facing a bet of %d", h.CurrentMaxBet)
		}

	case ActionFold:
		// No chips move; the seat stays in rotation accounting.

	case ActionAllIn:
		if p.Amount <= 0 {
			return domainErrorf("player %s has no chips", p.ID)
		}
		delta = p.Amount
		newTotal := committed + delta
		if newTotal > h.CurrentMaxBet {
			required := h.LastRaiseAmount
			if h.CurrentMaxBet == 0 {
				required = h.BigBlindAmt
			}
			if newTotal-h.CurrentMaxBet >= required {
				h.LastRaiseAmount = newTotal - h.CurrentMaxBet
			}
			// A short all-in moves the max without reopening action or
			// resizing the minimum raise.
			h.CurrentMaxBet = newTotal
		}

	default:
		return domainErrorf("unknown action type %q", action)
	}

	p.Amount -= delta
	if delta > 0 {
		p.ActionAmount = committed + delta
		p.AllBetSum += delta
		h.PotAmount += delta
	}
	p.Action = label

	bettingRound, order := 1, 1
	last, err := tx.LastAction(ctx, h.ID)
	if err != nil && err != ErrNoRows {
		return err
	}
	if err == nil {
		bettingRound = last.BettingRound + 1
		order = last.ActionOrder + 1
	}

	entry := &Action{
		ID:           uuid.New(),
		HandID:       h.ID,
		PlayerID:     p.ID,
		Round:        h.CurrentRound,
		BettingRound: bettingRound,
		ActionOrder:  order,
		Type:         label,
		BetAmount:    delta,
		CreatedAt:    e.clock.Now(),
	}
	if err := tx.AppendAction(ctx, entry); err != nil {
		return err
	}
	if !forced {
		// A voluntary action means the street is underway; the
		// transition sentinel has served its purpose.
		h.RoundChanged = false
	}
	if err := tx.UpdatePlayer(ctx, p); err != nil {
		return err
	}
	if err := tx.UpdateHand(ctx, h); err != nil {
		return err
	}

	e.log.Debug("action applied",
		"hand", h.ID, "player", p.ID, "action", label, "amount", delta,
		"pot", h.PotAmount, "max_bet", h.CurrentMaxBet)

	return e.advance(ctx, tx, h, p.ID)
}

// mayRaiseNow replays the street to decide whether the player is still
// allowed to raise: a short all-in since their last action does not
// reopen the betting.
func (e *Engine) mayRaiseNow(ctx context.Context, tx Tx, h *Hand, playerID uuid.UUID) (bool, error) {
	actions, err := tx.ActionsForRound(ctx, h.ID, h.CurrentRound)
	if err != nil {
		return false, err
	}
	return replayStreet(h, actions).mayRaise(playerID), nil
}
