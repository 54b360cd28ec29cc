package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomlabs/tourneycore/internal/engine"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTransact_RollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	gameID := uuid.New()
	err := s.Transact(ctx, func(tx engine.Tx) error {
		require.NoError(t, tx.CreateGame(ctx, &engine.Game{
			ID: gameID, BlindTime: 600, Level: 1, Chips: 10000, StartTime: time.Now(),
		}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.Transact(ctx, func(tx engine.Tx) error {
		_, err := tx.GameByID(ctx, gameID)
		return err
	})
	assert.ErrorIs(t, err, engine.ErrNoRows, "rolled back insert should not be visible")
}

func TestGameRoundTripAndActiveGame(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Second)
	g := &engine.Game{ID: uuid.New(), BlindTime: 600, Level: 1, Chips: 10000, StartTime: start}

	require.NoError(t, s.Transact(ctx, func(tx engine.Tx) error {
		if err := tx.CreateGame(ctx, g); err != nil {
			return err
		}
		got, err := tx.GameByID(ctx, g.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, g.ID, got.ID)
		assert.Equal(t, 600, got.BlindTime)
		assert.Nil(t, got.EndTime)

		active, err := tx.ActiveGame(ctx)
		if err != nil {
			return err
		}
		assert.Equal(t, g.ID, active.ID)

		if err := tx.SetGameLevel(ctx, g.ID, 3); err != nil {
			return err
		}
		if err := tx.SetGameEnded(ctx, g.ID, start.Add(time.Hour)); err != nil {
			return err
		}
		got, err = tx.GameByID(ctx, g.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, 3, got.Level)
		require.NotNil(t, got.EndTime)

		_, err = tx.ActiveGame(ctx)
		assert.ErrorIs(t, err, engine.ErrNoRows, "ended game is not active")
		return nil
	}))
}

func TestBlindLevels_Upsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedBlindLevels(ctx, []*engine.GameBlind{
		{Level: 1, SmallBlind: 50, BigBlind: 100},
		{Level: 2, SmallBlind: 100, BigBlind: 200, Ante: 25},
	}))
	// Re-seeding replaces rather than duplicates.
	require.NoError(t, s.SeedBlindLevels(ctx, []*engine.GameBlind{
		{Level: 2, SmallBlind: 150, BigBlind: 300, Ante: 50},
	}))

	require.NoError(t, s.Transact(ctx, func(tx engine.Tx) error {
		b, err := tx.BlindForLevel(ctx, 2)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(150), b.SmallBlind)
		assert.Equal(t, int64(300), b.BigBlind)
		assert.Equal(t, int64(50), b.Ante)

		_, err = tx.BlindForLevel(ctx, 9)
		assert.ErrorIs(t, err, engine.ErrNoRows)
		return nil
	}))
}

func TestPlayers_SeatOrderAndStreetReset(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	gameID := uuid.New()
	base := time.Now().UTC()
	names := []string{"alice", "bob", "carol"}

	require.NoError(t, s.Transact(ctx, func(tx engine.Tx) error {
		// Inserted out of roster order; created_at decides seating.
		for _, i := range []int{2, 0, 1} {
			err := tx.CreatePlayer(ctx, &engine.Player{
				ID:        uuid.New(),
				GameID:    gameID,
				Name:      names[i],
				Amount:    10000,
				IsActive:  true,
				CreatedAt: base.Add(time.Duration(i) * time.Microsecond),
			})
			if err != nil {
				return err
			}
		}
		return nil
	}))

	handID := uuid.New()
	require.NoError(t, s.Transact(ctx, func(tx engine.Tx) error {
		players, err := tx.PlayersByGame(ctx, gameID)
		if err != nil {
			return err
		}
		require.Len(t, players, 3)
		for i, p := range players {
			assert.Equal(t, names[i], p.Name)
		}

		players[0].Action = engine.ActionFold
		players[1].Action = engine.ActionAllIn
		players[2].Action = engine.ActionCall
		for _, p := range players {
			p.ActionAmount = 500
			p.AllBetSum = 700
			p.InactiveHandID = nil
			if err := tx.UpdatePlayer(ctx, p); err != nil {
				return err
			}
		}

		// Street reset spares folded and all-in players.
		if err := tx.ResetStreetState(ctx, gameID); err != nil {
			return err
		}
		players, err = tx.PlayersByGame(ctx, gameID)
		if err != nil {
			return err
		}
		assert.Equal(t, engine.ActionFold, players[0].Action)
		assert.Equal(t, engine.ActionAllIn, players[1].Action)
		assert.Equal(t, engine.ActionNone, players[2].Action)
		assert.Equal(t, int64(500), players[0].ActionAmount)
		assert.Equal(t, int64(0), players[2].ActionAmount)
		assert.Equal(t, int64(700), players[2].AllBetSum)

		// Hand reset clears everyone.
		if err := tx.ResetHandState(ctx, gameID); err != nil {
			return err
		}
		players, err = tx.PlayersByGame(ctx, gameID)
		if err != nil {
			return err
		}
		for _, p := range players {
			assert.Equal(t, engine.ActionNone, p.Action)
			assert.Equal(t, int64(0), p.ActionAmount)
			assert.Equal(t, int64(0), p.AllBetSum)
		}

		// Credit and bust bookkeeping round-trip.
		if err := tx.CreditPlayer(ctx, players[0].ID, 2500); err != nil {
			return err
		}
		players[1].InactiveHandID = &handID
		players[1].IsActive = false
		if err := tx.UpdatePlayer(ctx, players[1]); err != nil {
			return err
		}
		players, err = tx.PlayersByGame(ctx, gameID)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(12500), players[0].Amount)
		require.NotNil(t, players[1].InactiveHandID)
		assert.Equal(t, handID, *players[1].InactiveHandID)
		return nil
	}))
}

func TestActions_LogAndAggregates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	handID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	type row struct {
		player uuid.UUID
		round  engine.Round
		typ    engine.ActionType
		amount int64
	}
	rows := []row{
		{alice, engine.Preflop, engine.ActionBet, 50},
		{bob, engine.Preflop, engine.ActionRaise, 100},
		{alice, engine.Preflop, engine.ActionCall, 50},
		{alice, engine.Flop, engine.ActionBet, 300},
		{bob, engine.Flop, engine.ActionFold, 0},
	}

	require.NoError(t, s.Transact(ctx, func(tx engine.Tx) error {
		for i, r := range rows {
			err := tx.AppendAction(ctx, &engine.Action{
				ID:           uuid.New(),
				HandID:       handID,
				PlayerID:     r.player,
				Round:        r.round,
				BettingRound: i + 1,
				ActionOrder:  i + 1,
				Type:         r.typ,
				BetAmount:    r.amount,
				CreatedAt:    time.Now(),
			})
			if err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, s.Transact(ctx, func(tx engine.Tx) error {
		last, err := tx.LastAction(ctx, handID)
		if err != nil {
			return err
		}
		assert.Equal(t, 5, last.ActionOrder)
		assert.Equal(t, engine.ActionFold, last.Type)

		_, err = tx.LastAction(ctx, uuid.New())
		assert.ErrorIs(t, err, engine.ErrNoRows)

		preflop, err := tx.ActionsForRound(ctx, handID, engine.Preflop)
		if err != nil {
			return err
		}
		require.Len(t, preflop, 3)
		assert.Equal(t, 1, preflop[0].ActionOrder)

		sum, err := tx.StreetSum(ctx, handID, alice, engine.Preflop)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(100), sum)

		total, err := tx.HandSum(ctx, handID, alice)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(400), total)

		none, err := tx.StreetSum(ctx, handID, alice, engine.River)
		if err != nil {
			return err
		}
		assert.Zero(t, none, "empty street sums to zero, not ErrNoRows")

		types, err := tx.ActionTypesForRound(ctx, handID, engine.Preflop)
		if err != nil {
			return err
		}
		assert.True(t, types[engine.ActionBet])
		assert.True(t, types[engine.ActionRaise])
		assert.True(t, types[engine.ActionCall])
		assert.False(t, types[engine.ActionFold])
		return nil
	}))
}

func TestHands_RoundTripAndLastHand(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	gameID := uuid.New()
	dealer := uuid.New()
	sb := uuid.New()
	bb := uuid.New()
	base := time.Now().UTC()

	first := &engine.Hand{
		ID: uuid.New(), GameID: gameID, Level: 1,
		Dealer: dealer, SmallBlind: &sb, BigBlind: bb, CurrentTurn: bb,
		SmallBlindAmt: 50, BigBlindAmt: 100,
		CurrentRound: engine.Preflop, CreatedAt: base,
	}
	second := &engine.Hand{
		ID: uuid.New(), GameID: gameID, Level: 2,
		Dealer: sb, SmallBlind: nil, BigBlind: dealer, CurrentTurn: dealer,
		SmallBlindAmt: 100, BigBlindAmt: 200,
		CurrentRound: engine.Preflop, CreatedAt: base,
	}

	require.NoError(t, s.Transact(ctx, func(tx engine.Tx) error {
		if err := tx.CreateHand(ctx, first); err != nil {
			return err
		}
		return tx.CreateHand(ctx, second)
	}))

	require.NoError(t, s.Transact(ctx, func(tx engine.Tx) error {
		// Equal timestamps: insertion order breaks the tie.
		last, err := tx.LastHandByGame(ctx, gameID)
		if err != nil {
			return err
		}
		assert.Equal(t, second.ID, last.ID)
		assert.Nil(t, last.SmallBlind, "dead small blind survives the round trip")

		got, err := tx.HandByID(ctx, first.ID)
		if err != nil {
			return err
		}
		require.NotNil(t, got.SmallBlind)
		assert.Equal(t, sb, *got.SmallBlind)

		got.PotAmount = 1500
		got.CurrentMaxBet = 500
		got.LastRaiseAmount = 400
		got.CurrentRound = engine.Turn
		got.RoundChanged = true
		got.SmallBlind = nil
		if err := tx.UpdateHand(ctx, got); err != nil {
			return err
		}
		got, err = tx.HandByID(ctx, first.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, int64(1500), got.PotAmount)
		assert.Equal(t, engine.Turn, got.CurrentRound)
		assert.True(t, got.RoundChanged)
		assert.Nil(t, got.SmallBlind)

		_, err = tx.LastHandByGame(ctx, uuid.New())
		assert.ErrorIs(t, err, engine.ErrNoRows)
		return nil
	}))
}
