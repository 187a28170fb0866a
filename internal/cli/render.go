package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/daychain/internal/models"
	"github.com/julianstephens/daychain/internal/utils"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))

	seqStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(4).Align(lipgloss.Right)
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	fixedStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	skipStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// RenderPlan formats a plan as one line per block, with clock times in loc. Skipped
// blocks are listed only when showSkipped is set.
func RenderPlan(plan models.DailyPlan, loc *time.Location, showSkipped bool) string {
	var sb strings.Builder
	title := fmt.Sprintf("Plan for %s (revision %d, %s energy)", plan.Date, plan.Revision, plan.Energy)
	if plan.Status == models.PlanDegraded {
		title += " [degraded]"
	}
	if plan.TailPlan {
		title += " [tail]"
	}
	sb.WriteString(headerStyle.Render(title))
	sb.WriteString("\n")

	if plan.WakeRamp.Skipped {
		sb.WriteString(dimStyle.Render("  Wake ramp skipped: " + plan.WakeRamp.SkipReason))
		sb.WriteString("\n")
	}

	shown := 0
	for _, b := range plan.Blocks {
		if b.Status == models.BlockSkipped && !showSkipped {
			continue
		}
		sb.WriteString(RenderBlock(b, loc))
		sb.WriteString("\n")
		shown++
	}
	if shown == 0 {
		sb.WriteString("  Nothing scheduled\n")
	}

	for _, m := range plan.Meals {
		if m.Skipped {
			sb.WriteString(warnStyle.Render(fmt.Sprintf("  %s skipped: %s", m.Type, m.SkipReason)))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// RenderBlock formats one block: sequence, time range, title, and the chain step it
// belongs to.
func RenderBlock(b models.TimeBlock, loc *time.Location) string {
	span := timeStyle.Render(fmt.Sprintf("%s–%s", utils.FormatClock(b.Start.In(loc)), utils.FormatClock(b.End.In(loc))))

	name := b.Title
	if chainID, stepID, ok := models.ChainLink(b.Metadata); ok && stepID != "" {
		name += dimStyle.Render(fmt.Sprintf(" [%s/%s]", chainID, stepID))
	}

	switch {
	case b.Status == models.BlockCompleted:
		name = doneStyle.Render("✓ ") + name
	case b.Status == models.BlockSkipped:
		name = skipStyle.Render(b.Title) + dimStyle.Render(" ("+b.SkipReason+")")
	case b.IsFixed:
		name = fixedStyle.Render(name)
	case b.IsBuffer():
		name = dimStyle.Render(name)
	}

	return fmt.Sprintf("%s  %s  %s", seqStyle.Render(fmt.Sprintf("#%d", b.SequenceOrder)), span, name)
}
