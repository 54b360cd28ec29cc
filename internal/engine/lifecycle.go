package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// StartGame creates the tournament at level 1, seats the configured
// roster, deals the first hand and posts the blinds. Blind posts are
// synthesized through the normal action processor so pot, max bet and
// last raise end up exactly as if the seats had acted themselves.
func (e *Engine) StartGame(ctx context.Context, blindTime int, chips int64) (*Snapshot, error) {
	if blindTime <= 0 {
		return nil, domainErrorf("blind time must be positive")
	}
	if chips <= 0 {
		return nil, domainErrorf("starting stack must be positive")
	}
	if len(e.seats) < 4 {
		return nil, domainErrorf("need at least 4 seats, have %d", len(e.seats))
	}

	e.startMu.Lock()
	defer e.startMu.Unlock()

	var snap *Snapshot
	err := e.store.Transact(ctx, func(tx Tx) error {
		if _, err := tx.ActiveGame(ctx); err == nil {
			return domainErrorf("a game is already active")
		} else if err != ErrNoRows {
			return err
		}
		blind, err := tx.BlindForLevel(ctx, 1)
		if err == ErrNoRows {
			return notFoundErrorf("no blinds configured for level 1")
		}
		if err != nil {
			return err
		}

		now := e.clock.Now()
		g := &Game{
			ID:        uuid.New(),
			BlindTime: blindTime,
			Level:     1,
			Chips:     chips,
			StartTime: now,
		}
		if err := tx.CreateGame(ctx, g); err != nil {
			return err
		}

		players := make([]*Player, 0, len(e.seats))
		for i, seat := range e.seats {
			p := &Player{
				ID:       uuid.New(),
				GameID:   g.ID,
				Name:     seat.Name,
				Amount:   chips,
				IsOnline: seat.IsOnline,
				IsActive: seat.IsActive,
				// Strictly increasing timestamps keep seat order equal
				// to roster order.
				CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
			}
			if err := tx.CreatePlayer(ctx, p); err != nil {
				return err
			}
			players = append(players, p)
		}

		// First hand: fixed positions off the top of the roster, no
		// ante (the ante is a next-hand charge).
		if err := e.dealHand(ctx, tx, g, blind, players[0], players[1], players[2], players[3], false); err != nil {
			return err
		}

		snap, err = e.snapshotTx(ctx, tx, g.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("game started",
		"game", snap.Hand.GameID, "blind_time", blindTime, "chips", chips, "seats", len(e.seats))
	return snap, nil
}

// NextHand settles the finished hand and deals the next one: credit
// the caller-supplied winner shares, apply rebuys, bump the level,
// mark bust-outs, rotate positions and post the new blinds.
func (e *Engine) NextHand(ctx context.Context, gameID, lastHandID uuid.UUID, winners []Winner, newLevel int, rebuyIDs []uuid.UUID) (*Snapshot, error) {
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
		if g.EndTime != nil {
			return domainErrorf("game %s is over", gameID)
		}
		lastHand, err := tx.HandByID(ctx, lastHandID)
		if err == ErrNoRows {
			return notFoundErrorf("hand %s not found", lastHandID)
		}
		if err != nil {
			return err
		}
		if lastHand.GameID != gameID {
			return domainErrorf("hand %s does not belong to game %s", lastHandID, gameID)
		}
		latest, err := tx.LastHandByGame(ctx, gameID)
		if err != nil {
			return err
		}
		if latest.ID != lastHandID {
			// Settling an old hand twice would credit its winners twice
			// and deal over the live hand.
			return domainErrorf("hand %s is not the game's latest hand", lastHandID)
		}
		if lastHand.CurrentRound != Showdown {
			return domainErrorf("hand %s is still in progress", lastHandID)
		}

		// Winner shares are caller-supplied; showdown evaluation is
		// outside the engine and the shares are credited as given.
		for _, w := range winners {
			p, err := tx.PlayerByID(ctx, w.PlayerID)
			if err == ErrNoRows {
				return notFoundErrorf("winner %s not found", w.PlayerID)
			}
			if err != nil {
				return err
			}
			if p.GameID != gameID {
				return domainErrorf("winner %s is not in game %s", w.PlayerID, gameID)
			}
			if err := tx.CreditPlayer(ctx, p.ID, w.Amount); err != nil {
				return err
			}
		}

		for _, id := range rebuyIDs {
			p, err := tx.PlayerByID(ctx, id)
			if err == ErrNoRows {
				return notFoundErrorf("rebuy player %s not found", id)
			}
			if err != nil {
				return err
			}
			if p.GameID != gameID {
				return domainErrorf("rebuy player %s is not in game %s", id, gameID)
			}
			if err := e.rebuyPlayer(ctx, tx, g, p); err != nil {
				return err
			}
		}

		if err := tx.SetGameLevel(ctx, gameID, newLevel); err != nil {
			return err
		}
		g.Level = newLevel
		blind, err := tx.BlindForLevel(ctx, newLevel)
		if err == ErrNoRows {
			return notFoundErrorf("no blinds configured for level %d", newLevel)
		}
		if err != nil {
			return err
		}

		// Bust-outs: freeze the seat slot at the hand it emptied so
		// rotation can tell a fresh bust from a long-dead seat.
		players, err := tx.PlayersByGame(ctx, gameID)
		if err != nil {
			return err
		}
		for _, p := range players {
			if p.Amount == 0 && p.InactiveHandID == nil {
				p.IsActive = false
				p.InactiveHandID = &lastHandID
				if err := tx.UpdatePlayer(ctx, p); err != nil {
					return err
				}
			}
		}

		if err := tx.ResetHandState(ctx, gameID); err != nil {
			return err
		}
		players, err = tx.PlayersByGame(ctx, gameID)
		if err != nil {
			return err
		}

		dealer, sb, bb, first, err := rotatePositions(players, lastHand.Dealer, lastHandID)
		if err != nil {
			return err
		}
		if err := e.dealHand(ctx, tx, g, blind, dealer, sb, bb, first, true); err != nil {
			return err
		}

		snap, err = e.snapshotTx(ctx, tx, gameID)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("next hand dealt", "game", gameID, "level", newLevel, "hand", snap.Hand.ID)
	return snap, nil
}

// rotatePositions advances dealer, blinds and first actor one seat.
// The small blind comes back nil when the seat due to post it busted
// on the hand just settled (dead small blind); long-dead seats are
// skipped outright.
func rotatePositions(players []*Player, prevDealer, lastHandID uuid.UUID) (dealer, sb, bb, first *Player, err error) {
	active := func(p *Player) bool { return p.IsActive }

	dealer = nextLiveSeat(players, prevDealer, active)
	if dealer == nil {
		return nil, nil, nil, nil, domainErrorf("no active players to rotate to")
	}

	// Walk seats after the dealer: the first active seat posts the
	// small blind, but a seat that busted on the settled hand leaves
	// the small blind dead instead.
	n := len(players)
	from := seatIndex(players, dealer.ID)
	var bbAnchor *Player
	for i := 1; i <= n; i++ {
		s := players[(from+i)%n]
		if s.ID == dealer.ID {
			break
		}
		if s.IsActive {
			sb = s
			bbAnchor = s
			break
		}
		if s.InactiveHandID != nil && *s.InactiveHandID == lastHandID {
			bbAnchor = s // dead small blind
			break
		}
	}
	if bbAnchor == nil {
		return nil, nil, nil, nil, domainErrorf("cannot seat a small blind")
	}

	bb = nextLiveSeat(players, bbAnchor.ID, active)
	if bb == nil {
		return nil, nil, nil, nil, domainErrorf("cannot seat a big blind")
	}
	first = nextLiveSeat(players, bb.ID, active)
	if first == nil {
		return nil, nil, nil, nil, domainErrorf("cannot seat a first actor")
	}
	return dealer, sb, bb, first, nil
}

// dealHand creates the hand row, charges the big blind ante when due,
// and posts the blinds through the action processor.
func (e *Engine) dealHand(ctx context.Context, tx Tx, g *Game, blind *GameBlind, dealer, sb, bb, first *Player, chargeAnte bool) error {
	h := &Hand{
		ID:            uuid.New(),
		GameID:        g.ID,
		Level:         g.Level,
		Dealer:        dealer.ID,
		BigBlind:      bb.ID,
		CurrentTurn:   first.ID,
		Ante:          blind.Ante,
		SmallBlindAmt: blind.SmallBlind,
		BigBlindAmt:   blind.BigBlind,
		CurrentRound:  Preflop,
		CreatedAt:     e.clock.Now(),
	}
	if sb != nil {
		h.SmallBlind = &sb.ID
	}

	// The ante is posted by the big blind alone, straight into the
	// pot: it is dead money, not part of the street commitment.
	if chargeAnte && blind.Ante > 0 {
		pay := blind.Ante
		if pay > bb.Amount {
			pay = bb.Amount
		}
		bb.Amount -= pay
		h.PotAmount += pay
		if err := tx.UpdatePlayer(ctx, bb); err != nil {
			return err
		}
	}

	if err := tx.CreateHand(ctx, h); err != nil {
		return err
	}

	if sb != nil {
		if err := e.processAction(ctx, tx, g.ID, h.ID, sb.ID, ActionBet, blind.SmallBlind, true); err != nil {
			return err
		}
		return e.processAction(ctx, tx, g.ID, h.ID, bb.ID, ActionRaise, blind.BigBlind, true)
	}
	// Dead small blind: the big blind opens the betting alone.
	return e.processAction(ctx, tx, g.ID, h.ID, bb.ID, ActionBet, blind.BigBlind, true)
}
