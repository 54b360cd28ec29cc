// Package store persists the engine's state in sqlite. Every engine
// command runs inside one transaction; the schema mirrors the domain
// model one table per entity.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cardroomlabs/tourneycore/internal/engine"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	blind_time INTEGER NOT NULL,
	level      INTEGER NOT NULL,
	chips      INTEGER NOT NULL,
	start_time TIMESTAMP NOT NULL,
	end_time   TIMESTAMP
);

CREATE TABLE IF NOT EXISTS game_blinds (
	game_level         INTEGER PRIMARY KEY,
	small_blind_amount INTEGER NOT NULL,
	big_blind_amount   INTEGER NOT NULL,
	ante               INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS players (
	id                    TEXT PRIMARY KEY,
	game_id               TEXT NOT NULL,
	name                  TEXT NOT NULL,
	amount                INTEGER NOT NULL,
	is_online             INTEGER NOT NULL DEFAULT 0,
	is_active             INTEGER NOT NULL DEFAULT 1,
	action                TEXT NOT NULL DEFAULT ''
		CHECK (action IN ('', 'bet', 'fold', 'call', 'check', 'raise', 're-raise', 'all-in')),
	action_amount         INTEGER NOT NULL DEFAULT 0,
	all_bet_sum           INTEGER NOT NULL DEFAULT 0,
	inactive_time_hand_id TEXT,
	created_at            TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS hands (
	id                       TEXT PRIMARY KEY,
	game_id                  TEXT NOT NULL,
	level                    INTEGER NOT NULL,
	dealer                   TEXT NOT NULL,
	small_blind              TEXT,
	big_blind                TEXT NOT NULL,
	current_player_turn_id   TEXT NOT NULL,
	pot_amount               INTEGER NOT NULL DEFAULT 0,
	ante                     INTEGER NOT NULL DEFAULT 0,
	small_blind_amount       INTEGER NOT NULL,
	big_blind_amount         INTEGER NOT NULL,
	last_call_amount         INTEGER NOT NULL DEFAULT 0,
	current_max_bet          INTEGER NOT NULL DEFAULT 0,
	last_raise_amount        INTEGER NOT NULL DEFAULT 0,
	current_round            TEXT NOT NULL,
	is_changed_current_round INTEGER NOT NULL DEFAULT 0,
	created_at               TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS actions (
	id            TEXT PRIMARY KEY,
	hand_id       TEXT NOT NULL,
	player_id     TEXT NOT NULL,
	round         TEXT NOT NULL,
	betting_round INTEGER NOT NULL,
	action_order  INTEGER NOT NULL,
	action_type   TEXT NOT NULL,
	bet_amount    INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_players_game ON players (game_id, created_at, id);
CREATE INDEX IF NOT EXISTS idx_hands_game ON hands (game_id);
CREATE INDEX IF NOT EXISTS idx_actions_hand ON actions (hand_id, action_order);
`

// SQLite implements engine.Store on a sqlite database file.
type SQLite struct {
	db *sql.DB
}

// Open opens (and if needed creates) the database at path.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// The engine serializes per game; one writer connection keeps
	// sqlite happy across goroutines.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Transact runs fn inside one transaction, committing when it returns
// nil and rolling back otherwise.
func (s *SQLite) Transact(ctx context.Context, fn func(tx engine.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SeedBlindLevels writes the blind schedule outside any engine
// command; used at bootstrap.
func (s *SQLite) SeedBlindLevels(ctx context.Context, levels []*engine.GameBlind) error {
	return s.Transact(ctx, func(tx engine.Tx) error {
		for _, b := range levels {
			if err := tx.PutBlindLevel(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

type sqlTx struct {
	tx *sql.Tx
}

// --- games ---

func (t *sqlTx) CreateGame(ctx context.Context, g *engine.Game) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO games (id, blind_time, level, chips, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID.String(), g.BlindTime, g.Level, g.Chips, g.StartTime, nullTime(g.EndTime))
	return err
}

func (t *sqlTx) GameByID(ctx context.Context, id uuid.UUID) (*engine.Game, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, blind_time, level, chips, start_time, end_time
		FROM games WHERE id = ?`, id.String())
	return scanGame(row)
}

func (t *sqlTx) ActiveGame(ctx context.Context) (*engine.Game, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, blind_time, level, chips, start_time, end_time
		FROM games WHERE end_time IS NULL
		ORDER BY start_time DESC LIMIT 1`)
	return scanGame(row)
}

func (t *sqlTx) SetGameLevel(ctx context.Context, id uuid.UUID, level int) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE games SET level = ? WHERE id = ?`, level, id.String())
	return err
}

func (t *sqlTx) SetGameEnded(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE games SET end_time = ? WHERE id = ?`, at, id.String())
	return err
}

// --- blind schedule ---

func (t *sqlTx) BlindForLevel(ctx context.Context, level int) (*engine.GameBlind, error) {
	b := &engine.GameBlind{}
	err := t.tx.QueryRowContext(ctx, `
		SELECT game_level, small_blind_amount, big_blind_amount, ante
		FROM game_blinds WHERE game_level = ?`, level).
		Scan(&b.Level, &b.SmallBlind, &b.BigBlind, &b.Ante)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (t *sqlTx) PutBlindLevel(ctx context.Context, b *engine.GameBlind) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO game_blinds (game_level, small_blind_amount, big_blind_amount, ante)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (game_level) DO UPDATE SET
			small_blind_amount = excluded.small_blind_amount,
			big_blind_amount = excluded.big_blind_amount,
			ante = excluded.ante`,
		b.Level, b.SmallBlind, b.BigBlind, b.Ante)
	return err
}

// --- players ---

func (t *sqlTx) CreatePlayer(ctx context.Context, p *engine.Player) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO players (id, game_id, name, amount, is_online, is_active,
			action, action_amount, all_bet_sum, inactive_time_hand_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.GameID.String(), p.Name, p.Amount, p.IsOnline, p.IsActive,
		string(p.Action), p.ActionAmount, p.AllBetSum, nullUUID(p.InactiveHandID), p.CreatedAt)
	return err
}

const playerCols = `id, game_id, name, amount, is_online, is_active,
	action, action_amount, all_bet_sum, inactive_time_hand_id, created_at`

func (t *sqlTx) PlayerByID(ctx context.Context, id uuid.UUID) (*engine.Player, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+playerCols+` FROM players WHERE id = ?`, id.String())
	return scanPlayer(row)
}

func (t *sqlTx) PlayersByGame(ctx context.Context, gameID uuid.UUID) ([]*engine.Player, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+playerCols+` FROM players WHERE game_id = ? ORDER BY created_at, id`,
		gameID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []*engine.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (t *sqlTx) UpdatePlayer(ctx context.Context, p *engine.Player) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE players SET name = ?, amount = ?, is_online = ?, is_active = ?,
			action = ?, action_amount = ?, all_bet_sum = ?, inactive_time_hand_id = ?
		WHERE id = ?`,
		p.Name, p.Amount, p.IsOnline, p.IsActive,
		string(p.Action), p.ActionAmount, p.AllBetSum, nullUUID(p.InactiveHandID),
		p.ID.String())
	return err
}

func (t *sqlTx) CreditPlayer(ctx context.Context, id uuid.UUID, delta int64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE players SET amount = amount + ? WHERE id = ?`, delta, id.String())
	return err
}

func (t *sqlTx) ResetStreetState(ctx context.Context, gameID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE players SET action = '', action_amount = 0
		WHERE game_id = ? AND action NOT IN ('fold', 'all-in')`,
		gameID.String())
	return err
}

func (t *sqlTx) ResetHandState(ctx context.Context, gameID uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE players SET action = '', action_amount = 0, all_bet_sum = 0
		WHERE game_id = ?`,
		gameID.String())
	return err
}

// --- hands ---

const handCols = `id, game_id, level, dealer, small_blind, big_blind,
	current_player_turn_id, pot_amount, ante, small_blind_amount,
	big_blind_amount, last_call_amount, current_max_bet,
	last_raise_amount, current_round, is_changed_current_round, created_at`

func (t *sqlTx) CreateHand(ctx context.Context, h *engine.Hand) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO hands (`+handCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID.String(), h.GameID.String(), h.Level, h.Dealer.String(),
		nullUUID(h.SmallBlind), h.BigBlind.String(), h.CurrentTurn.String(),
		h.PotAmount, h.Ante, h.SmallBlindAmt, h.BigBlindAmt,
		h.LastCallAmount, h.CurrentMaxBet, h.LastRaiseAmount,
		string(h.CurrentRound), h.RoundChanged, h.CreatedAt)
	return err
}

func (t *sqlTx) HandByID(ctx context.Context, id uuid.UUID) (*engine.Hand, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+handCols+` FROM hands WHERE id = ?`, id.String())
	return scanHand(row)
}

func (t *sqlTx) LastHandByGame(ctx context.Context, gameID uuid.UUID) (*engine.Hand, error) {
	row := t.tx.QueryRowContext(ctx,
		`SELECT `+handCols+` FROM hands WHERE game_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, gameID.String())
	return scanHand(row)
}

func (t *sqlTx) UpdateHand(ctx context.Context, h *engine.Hand) error {
	_, err := t.tx.ExecContext(ctx, `
		UPDATE hands SET small_blind = ?, current_player_turn_id = ?,
			pot_amount = ?, last_call_amount = ?, current_max_bet = ?,
			last_raise_amount = ?, current_round = ?, is_changed_current_round = ?
		WHERE id = ?`,
		nullUUID(h.SmallBlind), h.CurrentTurn.String(),
		h.PotAmount, h.LastCallAmount, h.CurrentMaxBet,
		h.LastRaiseAmount, string(h.CurrentRound), h.RoundChanged,
		h.ID.String())
	return err
}

// --- action log ---

func (t *sqlTx) AppendAction(ctx context.Context, a *engine.Action) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO actions (id, hand_id, player_id, round, betting_round,
			action_order, action_type, bet_amount, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID.String(), a.HandID.String(), a.PlayerID.String(), string(a.Round),
		a.BettingRound, a.ActionOrder, string(a.Type), a.BetAmount, a.CreatedAt)
	return err
}

func (t *sqlTx) LastAction(ctx context.Context, handID uuid.UUID) (*engine.Action, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT id, hand_id, player_id, round, betting_round, action_order,
			action_type, bet_amount, created_at
		FROM actions WHERE hand_id = ?
		ORDER BY action_order DESC LIMIT 1`, handID.String())
	return scanAction(row)
}

func (t *sqlTx) ActionsForRound(ctx context.Context, handID uuid.UUID, round engine.Round) ([]*engine.Action, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT id, hand_id, player_id, round, betting_round, action_order,
			action_type, bet_amount, created_at
		FROM actions WHERE hand_id = ? AND round = ?
		ORDER BY action_order`, handID.String(), string(round))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*engine.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

func (t *sqlTx) StreetSum(ctx context.Context, handID, playerID uuid.UUID, round engine.Round) (int64, error) {
	var sum int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(bet_amount), 0) FROM actions
		WHERE hand_id = ? AND player_id = ? AND round = ?`,
		handID.String(), playerID.String(), string(round)).Scan(&sum)
	return sum, err
}

func (t *sqlTx) HandSum(ctx context.Context, handID, playerID uuid.UUID) (int64, error) {
	var sum int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(bet_amount), 0) FROM actions
		WHERE hand_id = ? AND player_id = ?`,
		handID.String(), playerID.String()).Scan(&sum)
	return sum, err
}

func (t *sqlTx) ActionTypesForRound(ctx context.Context, handID uuid.UUID, round engine.Round) (map[engine.ActionType]bool, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT DISTINCT action_type FROM actions
		WHERE hand_id = ? AND round = ?`, handID.String(), string(round))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make(map[engine.ActionType]bool)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		types[engine.ActionType(s)] = true
	}
	return types, rows.Err()
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*engine.Game, error) {
	g := &engine.Game{}
	var id string
	var end sql.NullTime
	err := row.Scan(&id, &g.BlindTime, &g.Level, &g.Chips, &g.StartTime, &end)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	if g.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if end.Valid {
		g.EndTime = &end.Time
	}
	return g, nil
}

func scanPlayer(row rowScanner) (*engine.Player, error) {
	p := &engine.Player{}
	var id, gameID, action string
	var inactive sql.NullString
	err := row.Scan(&id, &gameID, &p.Name, &p.Amount, &p.IsOnline, &p.IsActive,
		&action, &p.ActionAmount, &p.AllBetSum, &inactive, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if p.GameID, err = uuid.Parse(gameID); err != nil {
		return nil, err
	}
	p.Action = engine.ActionType(action)
	if inactive.Valid {
		u, err := uuid.Parse(inactive.String)
		if err != nil {
			return nil, err
		}
		p.InactiveHandID = &u
	}
	return p, nil
}

func scanHand(row rowScanner) (*engine.Hand, error) {
	h := &engine.Hand{}
	var id, gameID, dealer, bigBlind, turn, round string
	var smallBlind sql.NullString
	err := row.Scan(&id, &gameID, &h.Level, &dealer, &smallBlind, &bigBlind,
		&turn, &h.PotAmount, &h.Ante, &h.SmallBlindAmt, &h.BigBlindAmt,
		&h.LastCallAmount, &h.CurrentMaxBet, &h.LastRaiseAmount,
		&round, &h.RoundChanged, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	if h.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if h.GameID, err = uuid.Parse(gameID); err != nil {
		return nil, err
	}
	if h.Dealer, err = uuid.Parse(dealer); err != nil {
		return nil, err
	}
	if h.BigBlind, err = uuid.Parse(bigBlind); err != nil {
		return nil, err
	}
	if h.CurrentTurn, err = uuid.Parse(turn); err != nil {
		return nil, err
	}
	if smallBlind.Valid {
		u, err := uuid.Parse(smallBlind.String)
		if err != nil {
			return nil, err
		}
		h.SmallBlind = &u
	}
	h.CurrentRound = engine.Round(round)
	return h, nil
}

func scanAction(row rowScanner) (*engine.Action, error) {
	a := &engine.Action{}
	var id, handID, playerID, round, typ string
	err := row.Scan(&id, &handID, &playerID, &round, &a.BettingRound,
		&a.ActionOrder, &typ, &a.BetAmount, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, engine.ErrNoRows
	}
	if err != nil {
		return nil, err
	}
	if a.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if a.HandID, err = uuid.Parse(handID); err != nil {
		return nil, err
	}
	if a.PlayerID, err = uuid.Parse(playerID); err != nil {
		return nil, err
	}
	a.Round = engine.Round(round)
	a.Type = engine.ActionType(typ)
	return a, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullUUID(u *uuid.UUID) any {
	if u == nil {
		return nil
	}
	return u.String()
}
