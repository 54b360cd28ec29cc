package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cardroomlabs/tourneycore/internal/engine"
	"github.com/cardroomlabs/tourneycore/internal/server"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1).
			Bold(true)
	turnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)
	foldedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
	allInStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4"))
)

// renderSnapshot formats a snapshot for the terminal: hand header, one
// line per seat, then the legal actions for the player on turn.
func renderSnapshot(snap *server.SnapshotData) string {
	var b strings.Builder

	h := snap.Hand
	b.WriteString(headerStyle.Render(fmt.Sprintf("Hand %s", h.ID)))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"game %s  level %d  %s  pot %d  max bet %d  blinds %d/%d ante %d",
		h.GameID, snap.Level, h.CurrentRound, h.PotAmount, h.CurrentMaxBet,
		h.SmallBlindAmt, h.BigBlindAmt, h.Ante)))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("blinds go up at %s", snap.BlindDeadline.Format("15:04:05"))))
	b.WriteString("\n\n")

	for _, p := range snap.Players {
		line := fmt.Sprintf("%-12s  stack %-8d street %-8d %s",
			p.Name, p.Amount, p.ActionAmount, seatTags(snap, p))
		switch {
		case h.CurrentRound != engine.Showdown && p.ID == h.CurrentTurn:
			line = turnStyle.Render("→ " + line)
		case p.Action == engine.ActionFold || !p.IsActive:
			line = foldedStyle.Render("  " + line)
		case p.Action == engine.ActionAllIn:
			line = allInStyle.Render("  " + line)
		default:
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if h.CurrentRound == engine.Showdown {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("SHOWDOWN"))
		b.WriteString("\n")
		return b.String()
	}

	if opps := snap.PlayerActions; opps != nil {
		b.WriteString("\n")
		b.WriteString(infoStyle.Render("actions: " + strings.Join(legalActions(opps), ", ")))
		b.WriteString("\n")
	}
	return b.String()
}

func seatTags(snap *server.SnapshotData, p *engine.Player) string {
	h := snap.Hand
	var tags []string
	if p.ID == h.Dealer {
		tags = append(tags, "D")
	}
	if h.SmallBlind != nil && p.ID == *h.SmallBlind {
		tags = append(tags, "SB")
	}
	if p.ID == h.BigBlind {
		tags = append(tags, "BB")
	}
	if !p.IsActive {
		tags = append(tags, "out")
	} else if p.Action != engine.ActionNone {
		tags = append(tags, string(p.Action))
	}
	return strings.Join(tags, " ")
}

func legalActions(o *engine.Opportunities) []string {
	var actions []string
	if o.IsCanFold {
		actions = append(actions, "fold")
	}
	if o.IsCanCheck {
		actions = append(actions, "check")
	}
	if o.IsCanCall {
		actions = append(actions, "call")
	}
	if o.IsCanBet {
		actions = append(actions, fmt.Sprintf("bet (min %d)", o.BetMinAmount))
	}
	if o.IsCanRaise {
		actions = append(actions, fmt.Sprintf("raise (min %d)", o.RaiseMinAmount))
	}
	if o.IsCanReRaise {
		actions = append(actions, fmt.Sprintf("re-raise (min %d)", o.RaiseMinAmount))
	}
	if o.IsCanAllIn {
		actions = append(actions, fmt.Sprintf("all-in (%d)", o.AllInAmount))
	}
	return actions
}
