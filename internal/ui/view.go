package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"shelfplayer/internal/app"
	"shelfplayer/internal/player"
)

// View renders the four panes: libraries and items on the left, chapters
// and the info panel on the right, controls along the bottom.
func (m Model) View() string {
	if m.width < 40 || m.height < 12 {
		return "window too small"
	}

	controlsHeight := 5
	bodyHeight := m.height - controlsHeight - 1
	leftWidth := m.width / 3
	rightWidth := m.width - leftWidth - 2

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderLibraries(leftWidth, bodyHeight/3),
		m.renderItems(leftWidth, bodyHeight-bodyHeight/3),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderChapters(rightWidth, bodyHeight/2),
		m.renderInfo(rightWidth, bodyHeight-bodyHeight/2),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	controls := m.renderControls(m.width-2, controlsHeight)

	return lipgloss.JoinVertical(lipgloss.Left, body, controls, m.renderStatusLine())
}

func (m Model) paneStyle(width, height int, focused bool) lipgloss.Style {
	border := m.theme.Border
	if focused {
		border = m.theme.Active
	}
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

func (m Model) titleStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(m.theme.Accent)
}

func (m Model) renderLibraries(width, height int) string {
	var b strings.Builder
	b.WriteString(m.titleStyle().Render("Libraries"))
	b.WriteString("\n")

	if m.app.LoadingLibraries {
		b.WriteString(m.mutedStyle().Render("loading..."))
	}
	for i, lib := range m.app.Libraries {
		b.WriteString(m.listLine(lib.Name, i == m.app.SelectedLibrary))
		b.WriteString("\n")
	}

	return m.paneStyle(width, height, m.app.Focus == app.FocusLibraries).Render(b.String())
}

func (m Model) renderItems(width, height int) string {
	var b strings.Builder
	b.WriteString(m.titleStyle().Render("Books"))
	b.WriteString("\n")

	if m.app.LoadingItems {
		b.WriteString(m.mutedStyle().Render("loading..."))
	}

	// Keep the cursor visible in long lists
	visible := height - 3
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.app.SelectedItem >= visible {
		start = m.app.SelectedItem - visible + 1
	}

	for i := start; i < len(m.app.Items) && i < start+visible; i++ {
		title := m.app.Items[i].ID
		if m.app.Items[i].Media != nil {
			title = m.app.Items[i].Media.Metadata.Title
		}
		b.WriteString(m.listLine(title, i == m.app.SelectedItem))
		b.WriteString("\n")
	}

	return m.paneStyle(width, height, m.app.Focus == app.FocusLibraries).Render(b.String())
}

func (m Model) renderChapters(width, height int) string {
	var b strings.Builder
	b.WriteString(m.titleStyle().Render("Chapters"))
	b.WriteString("\n")

	if m.app.LoadingChapters {
		b.WriteString(m.mutedStyle().Render("loading..."))
	}

	visible := height - 3
	if visible < 1 {
		visible = 1
	}
	start := 0
	if m.app.SelectedChapter >= visible {
		start = m.app.SelectedChapter - visible + 1
	}

	for i := start; i < len(m.app.Chapters) && i < start+visible; i++ {
		ch := m.app.Chapters[i]
		line := fmt.Sprintf("%s  %s", formatClock(time.Duration(ch.Start*float64(time.Second))), ch.Title)
		if m.app.CurrentChapter != nil && m.app.CurrentChapter.ID == ch.ID {
			line = "♪ " + line
		}
		b.WriteString(m.listLine(line, i == m.app.SelectedChapter))
		b.WriteString("\n")
	}

	return m.paneStyle(width, height, m.app.Focus == app.FocusChapters).Render(b.String())
}

func (m Model) renderInfo(width, height int) string {
	var b strings.Builder
	b.WriteString(m.titleStyle().Render("Now Listening"))
	b.WriteString("\n")

	if item := m.app.CurrentItem; item != nil && item.Media != nil {
		meta := item.Media.Metadata
		b.WriteString(meta.Title + "\n")
		if meta.AuthorName != "" {
			b.WriteString(m.mutedStyle().Render("by "+meta.AuthorName) + "\n")
		}
		if meta.NarratorName != "" {
			b.WriteString(m.mutedStyle().Render("read by "+meta.NarratorName) + "\n")
		}
		if meta.SeriesName != "" {
			b.WriteString(m.mutedStyle().Render(meta.SeriesName) + "\n")
		}
	} else {
		b.WriteString(m.mutedStyle().Render("nothing selected"))
	}

	if ch := m.app.CurrentChapter; ch != nil {
		b.WriteString("\n")
		b.WriteString(m.titleStyle().Render("Chapter") + "\n")
		b.WriteString(ch.Title + "\n")
	}

	if m.app.CoverPath != "" {
		b.WriteString("\n")
		b.WriteString(m.mutedStyle().Render("cover: "+filepath.Base(m.app.CoverPath)) + "\n")
	}

	return m.paneStyle(width, height, m.app.Focus == app.FocusInfo).Render(b.String())
}

func (m Model) renderControls(width, height int) string {
	var b strings.Builder

	state := m.app.PlayerState.String()
	icon := "■"
	switch m.app.PlayerState {
	case player.StatePlaying:
		icon = "▶"
	case player.StatePaused:
		icon = "⏸"
	case player.StateLoading:
		icon = "…"
	}

	line := fmt.Sprintf("%s %s   %s / %s", icon, state,
		formatClock(m.app.Position), formatClock(m.app.BookDuration()))
	if m.app.Speed != 1.0 {
		line += fmt.Sprintf("   %.1fx", m.app.Speed)
	}
	b.WriteString(line)
	b.WriteString("\n")
	b.WriteString(m.renderProgressBar(width - 4))
	b.WriteString("\n")
	b.WriteString(m.mutedStyle().Render("space play/pause  h/l seek  tab focus  +/- speed  q quit"))

	return m.paneStyle(width, height, m.app.Focus == app.FocusControls).Render(b.String())
}

func (m Model) renderProgressBar(width int) string {
	if width < 2 {
		return ""
	}
	filled := 0
	// Position is book-global, so the bar scales against the book
	// duration, not the loaded track's
	if total := m.app.BookDuration(); total > 0 {
		filled = int(float64(width) * float64(m.app.Position) / float64(total))
		if filled > width {
			filled = width
		}
	}
	return lipgloss.NewStyle().Foreground(m.theme.Accent).Render(strings.Repeat("━", filled)) +
		lipgloss.NewStyle().Foreground(m.theme.Muted).Render(strings.Repeat("─", width-filled))
}

func (m Model) renderStatusLine() string {
	active := m.app.Notices.Active()
	if len(active) == 0 {
		return ""
	}
	latest := active[len(active)-1]
	style := lipgloss.NewStyle().Foreground(m.theme.Muted)
	if latest.Level == app.LevelError {
		style = lipgloss.NewStyle().Foreground(m.theme.Error)
	}
	return style.Render(latest.Message)
}

func (m Model) listLine(text string, selected bool) string {
	if selected {
		return lipgloss.NewStyle().
			Foreground(m.theme.Active).
			Bold(true).
			Render("> " + text)
	}
	return "  " + text
}

func (m Model) mutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(m.theme.Muted)
}

// formatClock renders a duration as h:mm:ss, or m:ss under an hour.
func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	min := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, min, s)
	}
	return fmt.Sprintf("%d:%02d", min, s)
}
