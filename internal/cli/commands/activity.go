package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/agenda-cli/internal/models"
	"github.com/kutbudev/agenda-cli/internal/planner"
)

// NewActivityCommand creates all subcommands for the 'activity' command group.
func NewActivityCommand() *cli.Command {
	return &cli.Command{
		Name:    "activity",
		Aliases: []string{"a"},
		Usage:   "Manage activities",
		Subcommands: []*cli.Command{
			activityListCmd(),
			activityShowCmd(),
			activityCreateCmd(),
			activityUpdateCmd(),
			activityDeleteCmd(),
		},
	}
}

func activityListCmd() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List all activities",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "tag", Usage: "Only activities with this tag ID"},
		},
		Action: func(c *cli.Context) error {
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				activities := p.Activities.List()
				if c.IsSet("tag") {
					filtered := activities[:0]
					for _, a := range activities {
						if a.Tags.Has(c.Int("tag")) {
							filtered = append(filtered, a)
						}
					}
					activities = filtered
				}
				if len(activities) == 0 {
					fmt.Println("No activities found. Use 'agenda activity create' to add one.")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTITLE\tCOLOR\tTAGS")
				fmt.Fprintln(w, "--\t-----\t-----\t----")
				for _, a := range activities {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
						a.ID,
						truncateString(a.Title, 40),
						swatch(a.Color),
						truncateString(tagNames(p.Tags.Resolve(a.Tags)), 30))
				}
				return w.Flush()
			})
		},
	}
}

func activityShowCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show details for an activity",
		ArgsUsage: "[activity-id]",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "activity ID")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				a, err := p.Activities.Get(models.ID(id))
				if err != nil {
					return err
				}
				events, err := p.Calendar.EventsForActivity(ctx, a.ID)
				if err != nil {
					return err
				}

				fmt.Printf("Activity Details for '%s':\n", a.Title)
				fmt.Printf("----------------------------------\n")
				fmt.Printf("ID:     %s\n", a.ID)
				fmt.Printf("Color:  %s\n", swatch(a.Color))
				if tags := p.Tags.Resolve(a.Tags); len(tags) > 0 {
					fmt.Printf("Tags:   %s\n", tagNames(tags))
				}
				fmt.Printf("Events: %d scheduled\n", len(events))
				if strings.TrimSpace(a.Description) != "" {
					fmt.Println()
					fmt.Println(renderMarkdown(a.Description))
				}
				return nil
			})
		},
	}
}

func activityInputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Markdown description"},
		&cli.StringFlag{Name: "color", Aliases: []string{"c"}, Usage: "Hex colour"},
		&cli.StringSliceFlag{Name: "tag", Usage: "Tag ID (repeatable or comma separated)"},
	}
}

// selectTags resolves tag ids through the catalog into the planner's tag
// selection.
func selectTags(p *planner.Planner, raw []string) error {
	ids, err := parseTagIDs(raw)
	if err != nil {
		return err
	}
	p.Tags.ClearSelection()
	for _, id := range ids {
		t, err := p.Tags.Find(id)
		if err != nil {
			return err
		}
		p.Tags.Select(t)
		p.Tags.AddToSelection()
	}
	return nil
}

func activityCreateCmd() *cli.Command {
	flags := append(activityInputFlags(),
		&cli.BoolFlag{Name: "copy", Usage: "Copy the new activity ID to the clipboard"},
	)
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a new activity",
		ArgsUsage: "[title]",
		Flags:     flags,
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("activity title is required")
			}
			title := strings.Join(c.Args().Slice(), " ")
			color := c.String("color")
			if color == "" {
				color = models.DefaultActivityColor
			}

			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				if err := selectTags(p, c.StringSlice("tag")); err != nil {
					return err
				}
				a, err := p.Activities.Create(ctx, models.ActivityInput{
					Title:       title,
					Description: c.String("description"),
					Color:       color,
					Tags:        p.Tags.Selection(),
				})
				if err != nil {
					return err
				}
				fmt.Printf("✅ Activity '%s' created successfully!\n", a.Title)
				fmt.Printf("ID: %s\n", a.ID)
				copyID(c, a.ID)
				return nil
			})
		},
	}
}

func activityUpdateCmd() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update an activity's properties",
		ArgsUsage: "[activity-id]",
		Flags: append(activityInputFlags(),
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
		),
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "activity ID")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				current, err := p.Activities.Get(models.ID(id))
				if err != nil {
					return err
				}
				in := models.ActivityInput{
					Title:       current.Title,
					Description: current.Description,
					Color:       current.Color,
					Tags:        current.Tags,
				}
				if c.IsSet("title") {
					in.Title = c.String("title")
				}
				if c.IsSet("description") {
					in.Description = c.String("description")
				}
				if c.IsSet("color") {
					in.Color = c.String("color")
				}
				if c.IsSet("tag") {
					if err := selectTags(p, c.StringSlice("tag")); err != nil {
						return err
					}
					in.Tags = p.Tags.Selection()
				}

				a, err := p.Activities.Update(ctx, current.ID, in)
				if err != nil {
					return err
				}
				fmt.Printf("✅ Activity '%s' updated successfully!\n", a.Title)
				return nil
			})
		},
	}
}

func activityDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete an activity",
		ArgsUsage: "[activity-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "cascade", Usage: "Also delete the activity's scheduled events"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "activity ID")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				a, err := p.Activities.Get(models.ID(id))
				if err != nil {
					return err
				}
				question := fmt.Sprintf("Delete activity '%s'?", a.Title)
				if c.Bool("cascade") {
					question = fmt.Sprintf("Delete activity '%s' and all of its scheduled events?", a.Title)
				}
				ok, err := confirm(c, question)
				if err != nil || !ok {
					return err
				}

				if c.Bool("cascade") {
					n, err := p.Calendar.DeleteForActivity(ctx, a.ID)
					if err != nil {
						return err
					}
					fmt.Printf("🗑️ %d scheduled event(s) deleted.\n", n)
				}
				if err := p.Activities.Delete(ctx, a.ID); err != nil {
					return err
				}
				fmt.Printf("🗑️ Activity %s deleted successfully.\n", a.ID)
				return nil
			})
		},
	}
}
