package tui

import (
	"fmt"
	"sort"
	"strings"

	"unosync/internal/app"
	"unosync/internal/domain"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("UNO"))
	if m.view.SelfID != "" {
		b.WriteString("  " + dimStyle.Render("user "+m.view.SelfID))
	}
	if m.view.Match.Joined {
		b.WriteString("  " + dimStyle.Render("match "+m.view.Match.MatchID))
	}
	b.WriteString("\n\n")

	switch m.screen() {
	case app.ScreenAuth:
		b.WriteString(m.renderAuth())
	case app.ScreenLobby:
		b.WriteString(m.renderLobby())
	case app.ScreenPlaying:
		b.WriteString(m.renderPlaying())
	}

	if m.status != "" {
		style := accentStyle
		if m.statusErr {
			style = errorStyle
		}
		b.WriteString("\n" + style.Render(m.status) + "\n")
	}

	b.WriteString("\n" + m.renderLogs())
	b.WriteString("\n" + m.renderHelp())
	return b.String()
}

func (m Model) renderAuth() string {
	return normalStyle.Render("Not logged in. Press l to play as a guest.") + "\n"
}

func (m Model) renderLobby() string {
	var b strings.Builder
	if m.joining {
		b.WriteString(sectionStyle.Render("Join match") + "\n")
		b.WriteString("match id: " + selectedStyle.Render(m.input+"_") + "\n")
		return b.String()
	}

	if !m.view.Match.Joined {
		cfg, _ := domain.LookupMode(m.mode)
		b.WriteString(sectionStyle.Render("Game mode") + "\n")
		b.WriteString(goldStyle.Render(cfg.Name) + dimStyle.Render(fmt.Sprintf("  (%d seats)", cfg.PlayerCount)) + "\n")
		return b.String()
	}

	lobby := m.view.Lobby
	header := "Lobby"
	if lobby.IsTeamMode {
		header += " - team mode"
	}
	if m.view.IsHost() {
		header += " - you are host"
	}
	b.WriteString(sectionStyle.Render(header) + "\n")

	for _, seat := range lobby.Seats {
		b.WriteString(renderSeat(seat, lobby, m.view.SelfID, lobby.IsTeamMode) + "\n")
	}

	if len(lobby.Pending) > 0 {
		b.WriteString("\n" + sectionStyle.Render("Join requests") + "\n")
		ids := make([]string, 0, len(lobby.Pending))
		for id := range lobby.Pending {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			b.WriteString(warnStyle.Render("  "+lobby.Pending[id].Username) + "\n")
		}
	}

	switch {
	case lobby.CanStart:
		b.WriteString("\n" + accentStyle.Render("Ready to start") + "\n")
	case lobby.WaitingForPlayers:
		b.WriteString("\n" + dimStyle.Render("Waiting for players...") + "\n")
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n")) + "\n"
}

func renderSeat(seat domain.Seat, lobby domain.LobbySeatState, selfID string, teams bool) string {
	label := fmt.Sprintf("Seat %d: ", seat.Index+1)
	switch seat.Type {
	case domain.SeatPlayer:
		name := seat.Username
		if name == "" {
			name = lobby.Players[seat.OccupantID].Username
		}
		if seat.OccupantID == selfID {
			name += " (you)"
		}
		if seat.OccupantID == lobby.HostID {
			name += " [host]"
		}
		label += normalStyle.Render(name)
	case domain.SeatBot:
		name := seat.Username
		if name == "" {
			name = "Bot"
		}
		label += dimStyle.Render(name + " (bot)")
	default:
		label += dimStyle.Render("empty")
	}
	if teams {
		label += "  " + dimStyle.Render(seat.TeamLabel())
	}
	return label
}

func (m Model) renderPlaying() string {
	v := m.view
	var b strings.Builder

	if v.Finished() {
		b.WriteString(goldStyle.Render("Game over") + "\n")
		b.WriteString(renderScores(v.Snapshot) + "\n")
		return b.String()
	}

	snap := v.Snapshot
	if snap != nil {
		top := "none"
		if snap.TopCard != nil {
			top = cardStyle(*snap.TopCard).Render(snap.TopCard.Label())
			if snap.TopCard.IsWild() && snap.TopCard.ChosenColor != "" {
				top += dimStyle.Render(" (" + string(snap.TopCard.ChosenColor) + ")")
			}
		}
		b.WriteString("Top card: " + top + "   " + dimStyle.Render("direction "+snap.Direction.String()) + "\n")

		turn := playerName(snap, snap.CurrentTurn)
		if v.IsMyTurn() {
			turn = accentStyle.Render("your turn")
		}
		b.WriteString("Turn: " + turn)
		if v.Timer != nil {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %ds", v.Timer.SecondsRemaining)))
		}
		b.WriteString("\n\n")

		for _, id := range v.Opponents() {
			p := snap.Players[id]
			line := fmt.Sprintf("%s: %d cards", playerName(snap, id), p.HandCount)
			if p.HandCount == 1 {
				line += " UNO!"
			}
			b.WriteString(normalStyle.Render(line) + "\n")
		}
	}

	b.WriteString("\n" + sectionStyle.Render("Your hand") + "\n")
	if len(v.Hand) == 0 {
		b.WriteString(dimStyle.Render("(no cards)") + "\n")
	}
	cards := make([]string, 0, len(v.Hand))
	for i, card := range v.Hand {
		text := cardStyle(card).Render(card.Label())
		if v.CanPlay(i) {
			text += accentStyle.Render("*")
		}
		if i == m.cursor {
			text = selectedStyle.Render("[") + text + selectedStyle.Render("]")
		}
		cards = append(cards, text)
	}
	b.WriteString(strings.Join(cards, "  ") + "\n")

	if m.picking {
		b.WriteString("\n" + goldStyle.Render("Choose a color: ") +
			helpItem("r", "red") + "  " + helpItem("y", "yellow") + "  " +
			helpItem("g", "green") + "  " + helpItem("b", "blue") + "\n")
	}
	return b.String()
}

func playerName(snap *domain.GameStateSnapshot, id string) string {
	if p, ok := snap.Players[id]; ok && p.Username != "" {
		return p.Username
	}
	if id == "" {
		return "-"
	}
	return id
}

func renderScores(snap *domain.GameStateSnapshot) string {
	if snap == nil || len(snap.FinalScores) == 0 {
		return dimStyle.Render("no scores")
	}
	ids := make([]string, 0, len(snap.FinalScores))
	for id := range snap.FinalScores {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		s := snap.FinalScores[id]
		line := fmt.Sprintf("%s: %d points (%s)", s.Username, s.Score, s.Result)
		if s.Winner() {
			lines = append(lines, goldStyle.Render(line))
		} else {
			lines = append(lines, normalStyle.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderLogs() string {
	if len(m.logs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.logs))
	for _, e := range m.logs {
		lines = append(lines, dimStyle.Render(e.Timestamp.Format("15:04:05"))+" "+severityStyle(e.Severity).Render(e.Message))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m Model) renderHelp() string {
	var items []string
	switch {
	case m.joining:
		items = []string{helpItem("enter", "join"), helpItem("esc", "cancel")}
	case m.picking:
		items = []string{helpItem("esc", "cancel")}
	default:
		switch m.screen() {
		case app.ScreenAuth:
			items = []string{helpItem("l", "login")}
		case app.ScreenLobby:
			if m.view.Match.Joined {
				items = []string{helpItem("y", "copy id"), helpItem("1-4", "seat"), helpItem("e", "leave")}
				if m.view.IsHost() {
					items = append(items, helpItem("b", "bot"), helpItem("s", "start"), helpItem("a/x", "approve/deny"))
				}
			} else {
				items = []string{helpItem("m", "mode"), helpItem("c", "create"), helpItem("f", "find"), helpItem("j", "join"), helpItem("o", "logout")}
			}
		case app.ScreenPlaying:
			items = []string{helpItem("←/→", "select"), helpItem("enter", "play"), helpItem("d", "draw"), helpItem("p", "pass"), helpItem("u", "uno"), helpItem("e", "leave")}
		}
		items = append(items, helpItem("q", "quit"))
	}
	return strings.Join(items, "  ")
}
