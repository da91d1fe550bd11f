package app

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jwulff/attend/internal/ui"
)

const defaultWidth = 60

// View renders the kiosk screen.
func (m Model) View() string {
	width := m.width
	if width == 0 {
		width = defaultWidth
	}

	var sections []string

	// Header
	sections = append(sections, m.renderHeader())

	// Status bar
	sections = append(sections, m.renderStatusBar())

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", width)))

	sections = append(sections, m.renderBody())

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", width)))

	// Footer
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("ATTEND")
	mode := ui.ModeStyle.Render(" " + m.mode.String())

	var who string
	if !m.session.IsZero() {
		who = ui.DimStyle.Render(fmt.Sprintf("  %s (%s)", m.session.DisplayName(), m.session.UserID()))
	}
	return title + mode + who
}

func (m Model) renderStatusBar() string {
	var dot string
	switch m.phase {
	case PhaseArmed:
		dot = ui.ScanningDotStyle.Render("● SCANNING")
	case PhaseInFlight:
		dot = ui.VerifyingDotStyle.Render("● VERIFYING")
	case PhaseDone:
		dot = ui.IdleDotStyle.Render("○ DONE")
	default:
		dot = ui.IdleDotStyle.Render("○ IDLE")
	}

	var counters string
	if m.attempts > 0 {
		counters = ui.StatusStyle.Render(fmt.Sprintf("  attempts %d", m.attempts))
		if m.dropped > 0 {
			counters += ui.StatusStyle.Render(fmt.Sprintf("  skipped %d", m.dropped))
		}
	}
	return dot + counters
}

func (m Model) renderBody() string {
	switch {
	case m.fatal != "":
		return ui.ErrorStyle.Render("Camera unavailable") + "\n" + ui.ErrorTextStyle.Render(m.fatal)
	case m.phase == PhaseDone && m.result.Success:
		return m.renderSuccess()
	case m.phase == PhaseDone:
		return ui.ResultBoxStyle.Render(
			ui.ErrorStyle.Render("✗ Attendance not recorded") + "\n" + ui.ErrorTextStyle.Render(m.result.Reason),
		)
	case m.phase == PhaseArmed || m.phase == PhaseInFlight:
		lines := []string{ui.ValueStyle.Render("Look at the camera")}
		if !m.lastTick.IsZero() {
			lines = append(lines, ui.DimStyle.Render("last capture "+m.lastTick.Format("15:04:05")))
		}
		return strings.Join(lines, "\n")
	case m.aborted:
		return ui.DimStyle.Render("Cancelled")
	default:
		return ui.DimStyle.Render("Waiting for camera...")
	}
}

func (m Model) renderSuccess() string {
	rec := m.result.Record
	lines := []string{ui.SuccessStyle.Render("✓ " + rec.Message)}

	if rec.CheckInTime != "" {
		lines = append(lines, field("Check-in", rec.CheckInTime))
	}
	if rec.CheckOutTime != "" {
		lines = append(lines, field("Check-out", rec.CheckOutTime))
	}
	if rec.Similarity > 0 {
		lines = append(lines, field("Match", fmt.Sprintf("%.1f%%  distance %.3f", rec.Similarity*100, rec.Distance)))
	}
	if rec.DetectedImageURL != "" {
		lines = append(lines, field("Image", rec.DetectedImageURL))
	}
	lines = append(lines, ui.DimStyle.Render("recorded "+humanize.RelTime(rec.RecordedAt, m.now(), "ago", "from now")))
	if m.saveErr != "" {
		lines = append(lines, ui.ErrorTextStyle.Render("not saved locally: "+m.saveErr))
	}
	return ui.ResultBoxStyle.Render(strings.Join(lines, "\n"))
}

func field(label, value string) string {
	return ui.LabelStyle.Render(fmt.Sprintf("%-10s", label)) + " " + ui.ValueStyle.Render(value)
}

func (m Model) renderFooter() string {
	type binding struct{ key, desc string }
	var keys []binding
	if m.phase == PhaseDone {
		keys = append(keys, binding{"enter", "continue"})
	}
	keys = append(keys, binding{"q", "quit"})

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, ui.FooterKeyStyle.Render(k.key)+" "+ui.FooterDescStyle.Render(k.desc))
	}
	return strings.Join(parts, "  ")
}
