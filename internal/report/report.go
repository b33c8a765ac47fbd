// Package report renders an issue list into the plain-text QC report.
// Output is deterministic: a stable sort by start frame, then grouping
// by issue type in first-seen order.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cutroom/cutroom-agent/internal/qc"
	"github.com/cutroom/cutroom-agent/internal/timecode"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

const rule = "======================================================================"
const thinRule = "----------------------------------------------------------------------"

var typeLabels = map[qc.Type]string{
	qc.TypeVideoGap:     "VIDEO GAPS",
	qc.TypeFlashFrame:   "FLASH FRAMES",
	qc.TypeAudioOverlap: "AUDIO OVERLAPS",
	qc.TypeAudioGap:     "AUDIO GAPS",
	qc.TypeDisabledClip: "DISABLED CLIPS",
	qc.TypeMutedTrack:   "MUTED TRACKS",
	qc.TypeOfflineMedia: "OFFLINE MEDIA",
	qc.TypeSourceEnd:    "CLIPS AT SOURCE END",
}

var severityMarkers = map[qc.Severity]string{
	qc.SeverityError:   "[!]",
	qc.SeverityWarning: "[?]",
	qc.SeverityInfo:    "[ ]",
}

// Summary counts issues by severity.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// Summarize tallies the issue list by severity.
func Summarize(issues []qc.Issue) Summary {
	var s Summary
	for _, is := range issues {
		switch is.Severity {
		case qc.SeverityError:
			s.Errors++
		case qc.SeverityWarning:
			s.Warnings++
		default:
			s.Infos++
		}
	}
	return s
}

// Sort orders issues by start frame, stable, so ties keep their
// insertion order. The input is returned sorted as a new slice.
func Sort(issues []qc.Issue) []qc.Issue {
	sorted := make([]qc.Issue, len(issues))
	copy(sorted, issues)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return sorted
}

// Render produces the full plain-text QC report for one timeline.
func Render(issues []qc.Issue, info timeline.Info) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\n  TIMELINE QC REPORT\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Timeline: %s\n", info.Name)
	fmt.Fprintf(&b, "Frame Rate: %g fps\n", info.FrameRate)
	fmt.Fprintf(&b, "Duration: %s - %s\n\n",
		timecode.Format(info.StartFrame, info.FrameRate),
		timecode.Format(info.EndFrame, info.FrameRate))

	if len(issues) == 0 {
		fmt.Fprintf(&b, "  *** NO ISSUES FOUND ***\n\n%s\n", rule)
		return b.String()
	}

	s := Summarize(issues)
	fmt.Fprintf(&b, "SUMMARY:\n  Errors:   %d\n  Warnings: %d\n  Info:     %d\n\n", s.Errors, s.Warnings, s.Infos)

	sorted := Sort(issues)

	// Group by type preserving first-seen order.
	var order []qc.Type
	groups := make(map[qc.Type][]qc.Issue)
	for _, is := range sorted {
		if _, ok := groups[is.Type]; !ok {
			order = append(order, is.Type)
		}
		groups[is.Type] = append(groups[is.Type], is)
	}

	for _, typ := range order {
		label := typeLabels[typ]
		if label == "" {
			label = string(typ)
		}
		fmt.Fprintf(&b, "%s\n%s (%d)\n%s\n", thinRule, label, len(groups[typ]), thinRule)

		for _, is := range groups[typ] {
			marker := severityMarkers[is.Severity]
			if marker == "" {
				marker = "[ ]"
			}
			fmt.Fprintf(&b, "  %s %s - %s\n", marker, timecode.Format(is.Start, info.FrameRate), is.Message)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s\n  END OF REPORT\n%s\n", rule, rule)
	return b.String()
}

// RenderAlign produces the placement summary printed after an align run.
func RenderAlign(projectName, timelineName string, rate float64, tally map[string]int, order []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\n  MULTITRACK ALIGN REPORT\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Project: %s\nTimeline: %s\nFrame Rate: %g fps\n\n", projectName, timelineName, rate)
	for _, key := range order {
		fmt.Fprintf(&b, "  %-22s %d\n", key+":", tally[key])
	}
	fmt.Fprintf(&b, "\n%s\n", rule)
	return b.String()
}
