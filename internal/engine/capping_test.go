package engine_test

import (
	"context"
	"testing"

	"github.com/cardroomlabs/tourneycore/internal/engine"
)

func TestHand_HeadsUpAllInFastForward(t *testing.T) {
	eng, _ := newTestEngine(t)

	snap, err := eng.StartGame(context.Background(), 600, 10000)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	// dave shoves, two folds, the big blind calls for the rest of her
	// stack. No betting remains, so the hand runs out to showdown with
	// no further turns.
	snap = act(t, eng, snap, "dave", engine.ActionAllIn, 0)
	snap = act(t, eng, snap, "alice", engine.ActionFold, 0)
	snap = act(t, eng, snap, "bob", engine.ActionFold, 0)
	snap = act(t, eng, snap, "carol", engine.ActionCall, 0)

	h := snap.Hand
	if h.CurrentRound != engine.Showdown {
		t.Fatalf("Expected showdown, got %s", h.CurrentRound)
	}

	carol := find(t, snap, "carol")
	dave := find(t, snap, "dave")
	if carol.Amount != 0 || dave.Amount != 0 {
		t.Errorf("Expected both stacks in the pot, got %d and %d", carol.Amount, dave.Amount)
	}
	if carol.Action != engine.ActionAllIn {
		t.Errorf("Expected carol's call converted to all-in, got %s", carol.Action)
	}

	// 10000 each plus the folded small blind; commitments matched, so
	// no refund.
	if h.PotAmount != 20050 {
		t.Errorf("Expected pot 20050, got %d", h.PotAmount)
	}
}

func TestChipCapping_UncalledBetRefund(t *testing.T) {
	eng, db := newTestEngine(t)

	snap, err := eng.StartGame(context.Background(), 600, 10000)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	// Limp to the flop.
	snap = act(t, eng, snap, "dave", engine.ActionCall, 0)
	snap = act(t, eng, snap, "alice", engine.ActionFold, 0)
	snap = act(t, eng, snap, "bob", engine.ActionCall, 0)
	snap = act(t, eng, snap, "carol", engine.ActionCheck, 0)
	if snap.Hand.CurrentRound != engine.Flop {
		t.Fatalf("Expected flop, got %s", snap.Hand.CurrentRound)
	}
	if snap.Hand.PotAmount != 300 {
		t.Fatalf("Expected pot 300 going to the flop, got %d", snap.Hand.PotAmount)
	}

	// bob shoves 5000 into dave, who can only cover 800.
	setStack(t, db, snap, "bob", 5000)
	setStack(t, db, snap, "dave", 800)

	snap = act(t, eng, snap, "bob", engine.ActionAllIn, 0)
	snap = act(t, eng, snap, "carol", engine.ActionFold, 0)
	snap = act(t, eng, snap, "dave", engine.ActionCall, 0)

	h := snap.Hand
	if h.CurrentRound != engine.Showdown {
		t.Fatalf("Expected showdown, got %s", h.CurrentRound)
	}

	bob := find(t, snap, "bob")
	dave := find(t, snap, "dave")

	// bob's 5000 was callable only to 800: 4200 comes back.
	if bob.Amount != 4200 {
		t.Errorf("Expected 4200 refunded to bob, got stack %d", bob.Amount)
	}
	if h.CurrentMaxBet != 800 {
		t.Errorf("Expected max bet capped at 800, got %d", h.CurrentMaxBet)
	}
	if bob.ActionAmount != 800 {
		t.Errorf("Expected bob's street commitment capped at 800, got %d", bob.ActionAmount)
	}
	// 100 preflop plus 800 capped on the flop.
	if bob.AllBetSum != 900 {
		t.Errorf("Expected bob committed 900 this hand, got %d", bob.AllBetSum)
	}
	if dave.Amount != 0 || dave.Action != engine.ActionAllIn {
		t.Errorf("Expected dave all-in for 800, got %d %s", dave.Amount, dave.Action)
	}

	// 300 preflop + 800 + 800 on the flop after the refund.
	if h.PotAmount != 1900 {
		t.Errorf("Expected pot 1900 after refund, got %d", h.PotAmount)
	}
}

func TestHand_ChipConservation(t *testing.T) {
	eng, _ := newTestEngine(t)

	snap, err := eng.StartGame(context.Background(), 600, 10000)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	assertConserved := func(snap *engine.Snapshot) {
		t.Helper()
		var total int64
		for _, p := range snap.Players {
			total += p.Amount
		}
		total += snap.Hand.PotAmount
		if total != 40000 {
			t.Errorf("Expected 40000 chips in play, got %d", total)
		}
	}

	assertConserved(snap)
	snap = act(t, eng, snap, "dave", engine.ActionRaise, 250)
	assertConserved(snap)
	snap = act(t, eng, snap, "alice", engine.ActionCall, 0)
	assertConserved(snap)
	snap = act(t, eng, snap, "bob", engine.ActionFold, 0)
	assertConserved(snap)
	snap = act(t, eng, snap, "carol", engine.ActionCall, 0)
	assertConserved(snap)
	if snap.Hand.CurrentRound != engine.Flop {
		t.Fatalf("Expected flop, got %s", snap.Hand.CurrentRound)
	}

	snap = act(t, eng, snap, "carol", engine.ActionCheck, 0)
	snap = act(t, eng, snap, "dave", engine.ActionBet, 500)
	assertConserved(snap)
	snap = act(t, eng, snap, "alice", engine.ActionRaise, 1200)
	assertConserved(snap)
	snap = act(t, eng, snap, "carol", engine.ActionFold, 0)
	snap = act(t, eng, snap, "dave", engine.ActionCall, 0)
	assertConserved(snap)
	if snap.Hand.CurrentRound != engine.Turn {
		t.Fatalf("Expected turn, got %s", snap.Hand.CurrentRound)
	}

	snap = act(t, eng, snap, "dave", engine.ActionCheck, 0)
	snap = act(t, eng, snap, "alice", engine.ActionCheck, 0)
	if snap.Hand.CurrentRound != engine.River {
		t.Fatalf("Expected river, got %s", snap.Hand.CurrentRound)
	}

	snap = act(t, eng, snap, "dave", engine.ActionBet, 1000)
	snap = act(t, eng, snap, "alice", engine.ActionFold, 0)
	assertConserved(snap)

	// The river bet went uncalled and came back.
	if snap.Hand.CurrentRound != engine.Showdown {
		t.Fatalf("Expected showdown, got %s", snap.Hand.CurrentRound)
	}
	dave := find(t, snap, "dave")
	if dave.Amount != 10000-250-1200 {
		t.Errorf("Expected dave's uncalled river bet refunded, got stack %d", dave.Amount)
	}
}

func TestHand_ActionOrderGapless(t *testing.T) {
	eng, db := newTestEngine(t)

	snap, err := eng.StartGame(context.Background(), 600, 10000)
	if err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	snap = act(t, eng, snap, "dave", engine.ActionCall, 0)
	snap = act(t, eng, snap, "alice", engine.ActionFold, 0)
	snap = act(t, eng, snap, "bob", engine.ActionCall, 0)
	snap = act(t, eng, snap, "carol", engine.ActionCheck, 0)
	snap = act(t, eng, snap, "bob", engine.ActionBet, 300)
	snap = act(t, eng, snap, "carol", engine.ActionFold, 0)
	snap = act(t, eng, snap, "dave", engine.ActionFold, 0)

	handID := snap.Hand.ID
	var orders []int
	err = db.Transact(context.Background(), func(tx engine.Tx) error {
		for _, round := range []engine.Round{engine.Preflop, engine.Flop} {
			actions, err := tx.ActionsForRound(context.Background(), handID, round)
			if err != nil {
				return err
			}
			for _, a := range actions {
				orders = append(orders, a.ActionOrder)
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("read action log: %v", err)
	}

	// 2 blind posts + 4 preflop actions + 3 flop actions.
	if len(orders) != 9 {
		t.Fatalf("Expected 9 logged actions, got %d", len(orders))
	}
	for i, order := range orders {
		if order != i+1 {
			t.Errorf("Expected action order %d at position %d, got %d", i+1, i, order)
		}
	}
}
