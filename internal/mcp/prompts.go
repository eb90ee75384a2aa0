package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// registerPrompts adds prompt templates to the server
func registerPrompts(server *mcp.Server) {
	server.AddPrompt(&mcp.Prompt{
		Name:        "plan_week",
		Title:       "Plan Week",
		Description: "Lay out a week of activities on the calendar",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "week_start",
				Description: "First day of the week, YYYY-MM-DD",
				Required:    true,
			},
			{
				Name:        "goals",
				Description: "Comma-separated goals for the week",
				Required:    false,
			},
		},
	}, handlePlanWeekPrompt)

	server.AddPrompt(&mcp.Prompt{
		Name:        "review_day",
		Title:       "Review Day",
		Description: "Review one day and reschedule what did not fit",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "date",
				Description: "Day to review, YYYY-MM-DD",
				Required:    true,
			},
		},
	}, handleReviewDayPrompt)
}

func handlePlanWeekPrompt(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	weekStart := strings.TrimSpace(req.Params.Arguments["week_start"])
	goals := req.Params.Arguments["goals"]
	if weekStart == "" {
		return nil, fmt.Errorf("week_start is required")
	}

	var goalSection string
	if goals != "" {
		var lines []string
		for _, g := range strings.Split(goals, ",") {
			if g = strings.TrimSpace(g); g != "" {
				lines = append(lines, "- "+g)
			}
		}
		if len(lines) > 0 {
			goalSection = "\n\n## Goals\n" + strings.Join(lines, "\n")
		}
	}

	text := fmt.Sprintf(`Plan the week starting %s.%s

## Steps
1. list_activities to see the available templates
2. list_events(from: "%s") to see what is already booked
3. For each goal, reuse a matching activity or create_activity for it
4. schedule_activity for each block, avoiding overlaps with booked events
5. list_events again and summarize the week day by day

## Notes
- Prefer existing activities over new ones with similar titles
- Keep blocks between 30 minutes and 2 hours unless asked otherwise`, weekStart, goalSection, weekStart)

	return &mcp.GetPromptResult{
		Description: "Week planning for " + weekStart,
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text},
		}},
	}, nil
}

func handleReviewDayPrompt(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	date := strings.TrimSpace(req.Params.Arguments["date"])
	if date == "" {
		return nil, fmt.Errorf("date is required")
	}

	text := fmt.Sprintf(`Review %s.

1. list_events(from: "%s", to: "%s")
2. Ask which events were done
3. move_event the unfinished ones to the next free slot
4. delete_event anything that was cancelled`, date, date, date)

	return &mcp.GetPromptResult{
		Description: "Day review for " + date,
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: text},
		}},
	}, nil
}
