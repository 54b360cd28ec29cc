package engine

import (
	"context"
)

// opportunities computes the legal-action set for the player on turn.
// Flags derive from the distinct action types logged on the current
// street. The forced blind posts count as the street's opening bet,
// not as raises: both the big blind option and the first raise over
// the blind surface as raise rather than re-raise.
func (e *Engine) opportunities(ctx context.Context, tx Tx, h *Hand, turn *Player) (*Opportunities, error) {
	var types map[ActionType]bool
	if h.CurrentRound == Preflop {
		actions, err := tx.ActionsForRound(ctx, h.ID, h.CurrentRound)
		if err != nil {
			return nil, err
		}
		posts := blindPosts(h)
		types = make(map[ActionType]bool)
		for _, a := range actions {
			if a.ActionOrder <= posts {
				types[ActionBet] = true
				continue
			}
			types[a.Type] = true
		}
	} else {
		var err error
		types, err = tx.ActionTypesForRound(ctx, h.ID, h.CurrentRound)
		if err != nil {
			return nil, err
		}
	}
	committed, err := tx.StreetSum(ctx, h.ID, turn.ID, h.CurrentRound)
	if err != nil {
		return nil, err
	}
	mayRaise, err := e.mayRaiseNow(ctx, tx, h, turn.ID)
	if err != nil {
		return nil, err
	}

	hasBet := types[ActionBet]
	hasRaise := types[ActionRaise] || types[ActionReRaise]
	hasAllIn := types[ActionAllIn]
	hasBetOrAllIn := hasBet || hasRaise || hasAllIn

	owed := h.CurrentMaxBet - committed
	raiseMin := 2 * h.CurrentMaxBet

	return &Opportunities{
		IsCanFold: hasBetOrAllIn,
		// Nothing owed means the bet is already matched: the big blind
		// closing a limped preflop checks rather than calls.
		IsCanCall:      hasBetOrAllIn && owed > 0,
		IsCanCheck:     !hasBetOrAllIn || owed <= 0,
		IsCanBet:       !hasBetOrAllIn,
		IsCanRaise:     hasBetOrAllIn && !hasRaise && mayRaise,
		IsCanReRaise:   hasRaise && turn.Amount > raiseMin && mayRaise,
		IsCanAllIn:     true,
		BetMinAmount:   h.BigBlindAmt,
		RaiseMinAmount: raiseMin,
		AllInAmount:    turn.Amount,
	}, nil
}
