package ui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/goldmine/internal/model"
	"github.com/abelbrown/goldmine/internal/store"
)

const minWidth = 40

// RenderFindings renders a scan result as a stack of framed findings.
func RenderFindings(r model.AnalysisResult, cached bool, width int) string {
	if width < minWidth {
		width = 80
	}

	var b strings.Builder
	b.WriteString(Title.Render("goldmine"))
	b.WriteString(" ")
	b.WriteString(FindingTitle.Render(r.Topic))
	b.WriteString(StageCount.Render(fmt.Sprintf("  %s · %d candidates · %s · run %s",
		r.Window, r.TotalCandidates, r.ScannedAt.Local().Format("2006-01-02 15:04"), r.ID)))
	if cached {
		b.WriteString(StageCount.Render(" · cached"))
	}
	b.WriteString("\n")
	if len(r.Degraded) > 0 {
		b.WriteString(WarnStyle.Render("degraded: " + strings.Join(r.Degraded, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if len(r.Findings) == 0 {
		b.WriteString(HelpStyle.Render("No opportunities found. Try another topic or a longer --window."))
		b.WriteString("\n")
		return b.String()
	}

	box := FindingBox.Width(width - 2)
	for _, f := range r.Findings {
		b.WriteString(box.Render(renderFinding(f, width-6)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderFinding(f model.Finding, width int) string {
	bp := f.Blueprint
	var lines []string

	head := ScoreBadge.Render(fmt.Sprintf("#%d  %d", f.Rank, f.GoldScore)) + " " +
		ChannelBadge.Render(f.Channel) +
		FindingTitle.Render(truncate(f.Title, width-lipgloss.Width(ScoreBadge.Render("#10  100"))-lipgloss.Width(ChannelBadge.Render(f.Channel))-2))
	lines = append(lines, head)

	meta := fmt.Sprintf("▲ %d  💬 %d  ≈ %d similar  ×%.2f", f.EngagementScore, f.CommentCount, f.SimilarCount, f.RelevanceMultiplier)
	if f.Intensity != "" {
		meta += "  " + f.Intensity
	}
	lines = append(lines, StageCount.Render(meta), "")

	lines = append(lines, SolutionName.Render(bp.SolutionName)+" "+Label.Render("("+string(bp.MarketSize)+" market)"))
	lines = append(lines, wrap(bp.SolutionPitch, width))
	lines = append(lines, field("Problem", bp.ProblemStatement, width))
	lines = append(lines, field("How", bp.Mechanism, width))
	if len(bp.KeyFeatures) > 0 {
		lines = append(lines, field("Features", strings.Join(bp.KeyFeatures, " · "), width))
	}
	if bp.TargetAudience != "" {
		lines = append(lines, field("Audience", bp.TargetAudience, width))
	}
	if bp.PricingModel != "" {
		lines = append(lines, field("Pricing", bp.PricingModel, width))
	}
	lines = append(lines, field("Stack", strings.Join(bp.TechStack, ", "), width))
	extra := "MRR " + bp.EstimatedMRR
	if bp.Difficulty != nil {
		extra += fmt.Sprintf(" · difficulty %d/5", *bp.Difficulty)
	}
	lines = append(lines, Label.Render(extra))
	if bp.Roadmap != nil {
		lines = append(lines, field("MVP", phase(bp.Roadmap.MVP), width))
		lines = append(lines, field("Growth", phase(bp.Roadmap.Growth), width))
	}
	if bp.Justification != "" {
		lines = append(lines, Label.Render(wrap(bp.Justification, width)))
	}
	if f.Permalink != "" {
		lines = append(lines, EventLine.Render(f.Permalink))
	}
	return strings.Join(lines, "\n")
}

func field(label, value string, width int) string {
	prefix := label + ": "
	return Label.Render(prefix) + wrap(value, width-len(prefix))
}

func phase(p model.RoadmapPhase) string {
	s := p.Name
	if p.Timeline != "" {
		s += " (" + p.Timeline + ")"
	}
	if len(p.Features) > 0 {
		s += ": " + strings.Join(p.Features, ", ")
	}
	return s
}

func wrap(s string, width int) string {
	if width < 20 {
		width = 20
	}
	return lipgloss.NewStyle().Width(width).Render(s)
}

// truncate shortens s to max runes, marking the cut with "...".
func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}

// RenderPlain renders a result without styling, for pipes and --plain.
func RenderPlain(r model.AnalysisResult, cached bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) run %s, %d candidates", r.Topic, r.Window, r.ID, r.TotalCandidates)
	if cached {
		b.WriteString(", cached")
	}
	b.WriteString("\n")
	if len(r.Degraded) > 0 {
		fmt.Fprintf(&b, "degraded: %s\n", strings.Join(r.Degraded, ", "))
	}
	if len(r.Findings) == 0 {
		b.WriteString("no opportunities found\n")
		return b.String()
	}
	for _, f := range r.Findings {
		bp := f.Blueprint
		fmt.Fprintf(&b, "\n#%d [%d] %s (%s)\n", f.Rank, f.GoldScore, f.Title, f.Channel)
		fmt.Fprintf(&b, "  %s: %s\n", bp.SolutionName, bp.SolutionPitch)
		fmt.Fprintf(&b, "  market %s, MRR %s, stack %s\n", bp.MarketSize, bp.EstimatedMRR, strings.Join(bp.TechStack, ", "))
		if len(bp.KeyFeatures) > 0 {
			fmt.Fprintf(&b, "  features: %s\n", strings.Join(bp.KeyFeatures, "; "))
		}
		if f.Permalink != "" {
			fmt.Fprintf(&b, "  %s\n", f.Permalink)
		}
	}
	return b.String()
}

// RenderHistory renders saved analyses, newest first.
func RenderHistory(entries []store.HistoryEntry) string {
	if len(entries) == 0 {
		return HelpStyle.Render("No saved scans yet. Run `goldmine scan <topic>`.") + "\n"
	}
	var b strings.Builder
	b.WriteString(Header.Render(fmt.Sprintf("%-36s  %-16s  %-5s  %-8s  %s", "ID", "SCANNED", "WIN", "FINDINGS", "TOPIC")))
	b.WriteString("\n")
	for _, e := range entries {
		line := fmt.Sprintf("%-36s  %-16s  %-5s  %-8d  %s", e.ID, e.ScannedAt.Local().Format("2006-01-02 15:04"), e.Window, e.Findings, e.Topic)
		if e.Degraded {
			line += WarnStyle.Render("  (degraded)")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// RenderFavorites renders bookmarked findings.
func RenderFavorites(favs []store.Favorite) string {
	if len(favs) == 0 {
		return HelpStyle.Render("No favorites yet. Use `goldmine favorite add <analysis-id> <rank>`.") + "\n"
	}
	var b strings.Builder
	for _, f := range favs {
		b.WriteString(ScoreBadge.Render(fmt.Sprintf("%d", f.Finding.GoldScore)))
		b.WriteString(" ")
		b.WriteString(SolutionName.Render(f.Finding.Blueprint.SolutionName))
		b.WriteString(" ")
		b.WriteString(StageCount.Render(fmt.Sprintf("%s #%d · saved %s", f.AnalysisID, f.Rank, formatAge(f.CreatedAt, time.Now()))))
		b.WriteString("\n  ")
		b.WriteString(f.Finding.Title)
		b.WriteString("\n")
	}
	return b.String()
}

func formatAge(t, now time.Time) string {
	age := now.Sub(t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
