package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/kutbudev/agenda-cli/internal/clock"
	"github.com/kutbudev/agenda-cli/internal/models"
)

// Helper functions shared across commands

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// swatch renders a small colour block followed by the hex value.
func swatch(color string) string {
	if !models.IsHexColor(color) {
		return color
	}
	block := lipgloss.NewStyle().Background(lipgloss.Color(color)).Render("  ")
	return block + " " + color
}

func tagNames(tags models.TagList) string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		if t.Name != "" {
			names = append(names, t.Name)
		} else {
			names = append(names, "#"+strconv.Itoa(t.ID))
		}
	}
	return strings.Join(names, ", ")
}

// renderMarkdown renders s for the terminal, falling back to plain text.
func renderMarkdown(s string) string {
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		width = w - 4
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return s
	}
	out, err := r.Render(s)
	if err != nil {
		return s
	}
	return strings.TrimRight(out, "\n")
}

// copyID puts id on the clipboard when --copy is set.
func copyID(c *cli.Context, id models.ID) {
	if !c.Bool("copy") {
		return
	}
	if err := clipboard.WriteAll(id.String()); err != nil {
		fmt.Printf("Could not copy id: %v\n", err)
		return
	}
	fmt.Println("📋 ID copied to clipboard")
}

// confirm asks a yes/no question. --yes skips the prompt.
func confirm(c *cli.Context, message string) (bool, error) {
	if c.Bool("yes") {
		return true, nil
	}
	ok := false
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

func requireArg(c *cli.Context, what string) (string, error) {
	if c.NArg() == 0 || strings.TrimSpace(c.Args().First()) == "" {
		return "", fmt.Errorf("%s is required", what)
	}
	return strings.TrimSpace(c.Args().First()), nil
}

func requireTagID(c *cli.Context) (int, error) {
	raw, err := requireArg(c, "tag ID")
	if err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid tag ID %q", raw)
	}
	return id, nil
}

func parseTagIDs(values []string) ([]int, error) {
	out := make([]int, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid tag ID %q", part)
			}
			out = append(out, id)
		}
	}
	return out, nil
}

// parseSlot reads the --date/--time pair. A date without a time means
// 09:00; no date at all returns a nil time of day so the engine rounds now.
func parseSlot(zone *clock.Zone, date, at string) (time.Time, *clock.TimeOfDay, error) {
	date = strings.TrimSpace(date)
	at = strings.TrimSpace(at)

	day := zone.StartOfDay(zone.Now())
	if date != "" {
		d, err := zone.ParseDate(date)
		if err != nil {
			return time.Time{}, nil, err
		}
		day = d
	}
	switch {
	case at != "":
		tod, err := clock.ParseTimeOfDay(at)
		if err != nil {
			return time.Time{}, nil, err
		}
		return day, &tod, nil
	case date != "":
		return day, &clock.TimeOfDay{Hour: 9}, nil
	default:
		return day, nil, nil
	}
}

// parseRange reads --from/--to dates into a half-open interval. An empty
// --to covers the --from day; both empty means no bound.
func parseRange(zone *clock.Zone, from, to string) (time.Time, time.Time, error) {
	var start, end time.Time
	if strings.TrimSpace(from) != "" {
		d, err := zone.ParseDate(from)
		if err != nil {
			return start, end, err
		}
		start = d
	}
	if strings.TrimSpace(to) != "" {
		d, err := zone.ParseDate(to)
		if err != nil {
			return start, end, err
		}
		end = d.AddDate(0, 0, 1)
	} else if !start.IsZero() {
		end = start.AddDate(0, 0, 1)
	}
	if !start.IsZero() && !end.After(start) {
		return start, end, fmt.Errorf("--to is before --from")
	}
	return start, end, nil
}

func formatSpan(zone *clock.Zone, e models.ScheduledEvent) string {
	start := zone.In(e.Start)
	end := zone.In(e.End)
	if e.AllDay {
		return start.Format("2006-01-02") + " all day"
	}
	if start.Format("2006-01-02") == end.Format("2006-01-02") {
		return start.Format("2006-01-02 15:04") + "-" + end.Format("15:04")
	}
	return start.Format("2006-01-02 15:04") + " → " + end.Format("2006-01-02 15:04")
}
