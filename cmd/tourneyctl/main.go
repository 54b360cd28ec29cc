package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cardroomlabs/tourneycore/internal/server"
)

var CLI struct {
	Server string `short:"s" long:"server" default:"ws://localhost:8080/ws" help:"Server URL to connect to"`

	Start    StartCmd    `cmd:"" help:"Start a new tournament"`
	End      EndCmd      `cmd:"" help:"End the active tournament"`
	Status   StatusCmd   `cmd:"" help:"Show the active tournament"`
	Act      ActCmd      `cmd:"" help:"Submit a player action"`
	NextHand NextHandCmd `cmd:"" name:"next-hand" help:"Settle the finished hand and deal the next one"`
	Rebuy    RebuyCmd    `cmd:"" help:"Rebuy a busted player"`
}

type StartCmd struct {
	BlindTime int   `long:"blind-time" help:"Seconds per blind level (server default when omitted)"`
	Chips     int64 `long:"chips" help:"Starting stack (server default when omitted)"`
}

type EndCmd struct {
	Game string `arg:"" help:"Game id"`
}

type StatusCmd struct{}

type ActCmd struct {
	Game   string `arg:"" help:"Game id"`
	Hand   string `arg:"" help:"Hand id"`
	Player string `arg:"" help:"Player id"`
	Action string `arg:"" help:"Action: bet, call, check, fold, raise, re-raise, all-in"`
	Amount int64  `arg:"" optional:"" help:"Street total for bet/raise"`
}

type NextHandCmd struct {
	Game    string   `arg:"" help:"Game id"`
	Hand    string   `arg:"" help:"Hand id being settled"`
	Level   int      `long:"level" required:"" help:"Blind level for the next hand"`
	Winners []string `long:"winner" help:"Winner share as playerId=amount (repeatable)"`
	Rebuys  []string `long:"rebuy" help:"Player id to rebuy before dealing (repeatable)"`
}

type RebuyCmd struct {
	Game   string `arg:"" help:"Game id"`
	Hand   string `arg:"" help:"Hand id"`
	Player string `arg:"" help:"Player id"`
}

func main() {
	ctx := kong.Parse(&CLI)
	ctx.FatalIfErrorf(ctx.Run())
}

// client is a one-shot request/response connection to the server.
type client struct {
	conn *websocket.Conn
}

func dial() (*client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(CLI.Server, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", CLI.Server, err)
	}
	return &client{conn: conn}, nil
}

func (c *client) close() { _ = c.conn.Close() }

// request sends one command and waits for the reply carrying the same
// request id, skipping broadcasts meant for other clients.
func (c *client) request(msgType server.MessageType, data interface{}) (*server.Message, error) {
	msg, err := server.NewMessage(msgType, data)
	if err != nil {
		return nil, err
	}
	msg.RequestID = uuid.NewString()

	if err := c.conn.WriteJSON(msg); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		_ = c.conn.SetReadDeadline(deadline)
		var reply server.Message
		if err := c.conn.ReadJSON(&reply); err != nil {
			return nil, err
		}
		if reply.RequestID != msg.RequestID {
			continue
		}
		if reply.Type == server.MessageTypeError {
			var e server.ErrorData
			if err := json.Unmarshal(reply.Data, &e); err != nil {
				return nil, fmt.Errorf("server error")
			}
			return nil, fmt.Errorf("%s: %s", e.Code, e.Message)
		}
		return &reply, nil
	}
}

func printSnapshotReply(reply *server.Message) error {
	var snap server.SnapshotData
	if err := json.Unmarshal(reply.Data, &snap); err != nil {
		return err
	}
	fmt.Println(renderSnapshot(&snap))
	return nil
}

func (cmd *StartCmd) Run() error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.close()

	reply, err := c.request(server.MessageTypeStartGame, server.StartGameData{
		BlindTime: cmd.BlindTime,
		Chips:     cmd.Chips,
	})
	if err != nil {
		return err
	}
	return printSnapshotReply(reply)
}

func (cmd *EndCmd) Run() error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.close()

	if _, err := c.request(server.MessageTypeEndGame, server.EndGameData{GameID: cmd.Game}); err != nil {
		return err
	}
	fmt.Println("game ended")
	return nil
}

func (cmd *StatusCmd) Run() error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.close()

	reply, err := c.request(server.MessageTypeActiveGame, struct{}{})
	if err != nil {
		return err
	}
	if reply.Type == server.MessageTypeNoGame {
		fmt.Println("no active game")
		return nil
	}
	return printSnapshotReply(reply)
}

func (cmd *ActCmd) Run() error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.close()

	reply, err := c.request(server.MessageTypePlayerAction, server.PlayerActionData{
		GameID:   cmd.Game,
		HandID:   cmd.Hand,
		PlayerID: cmd.Player,
		Action:   cmd.Action,
		Amount:   cmd.Amount,
	})
	if err != nil {
		return err
	}
	return printSnapshotReply(reply)
}

func (cmd *NextHandCmd) Run() error {
	winners := make([]server.WinnerShare, 0, len(cmd.Winners))
	for _, w := range cmd.Winners {
		id, amount, ok := strings.Cut(w, "=")
		if !ok {
			return fmt.Errorf("winner %q: expected playerId=amount", w)
		}
		n, err := strconv.ParseInt(amount, 10, 64)
		if err != nil {
			return fmt.Errorf("winner %q: %w", w, err)
		}
		winners = append(winners, server.WinnerShare{PlayerID: id, Amount: n})
	}

	c, err := dial()
	if err != nil {
		return err
	}
	defer c.close()

	reply, err := c.request(server.MessageTypeNextHand, server.NextHandData{
		GameID:  cmd.Game,
		HandID:  cmd.Hand,
		Winners: winners,
		Level:   cmd.Level,
		Rebuys:  cmd.Rebuys,
	})
	if err != nil {
		return err
	}
	return printSnapshotReply(reply)
}

func (cmd *RebuyCmd) Run() error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.close()

	reply, err := c.request(server.MessageTypeRebuy, server.RebuyData{
		GameID:   cmd.Game,
		HandID:   cmd.Hand,
		PlayerID: cmd.Player,
	})
	if err != nil {
		return err
	}
	return printSnapshotReply(reply)
}
