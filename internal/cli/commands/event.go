package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/agenda-cli/internal/ics"
	"github.com/kutbudev/agenda-cli/internal/models"
	"github.com/kutbudev/agenda-cli/internal/planner"
)

// NewEventCommand creates all subcommands for the 'event' command group.
func NewEventCommand() *cli.Command {
	return &cli.Command{
		Name:    "event",
		Aliases: []string{"e"},
		Usage:   "Schedule and manage calendar events",
		Subcommands: []*cli.Command{
			eventListCmd(),
			eventShowCmd(),
			eventScheduleCmd(),
			eventMoveCmd(),
			eventResizeCmd(),
			eventAllDayCmd(),
			eventDuplicateCmd(),
			eventEditActivityCmd(),
			eventDeleteCmd(),
			eventByActivityCmd(),
			eventExportCmd(),
			eventImportCmd(),
		},
	}
}

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "First day (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "to", Usage: "Last day, inclusive (YYYY-MM-DD)"},
	}
}

func printEvents(e *env, p *planner.Planner, events []models.ScheduledEvent) error {
	if len(events) == 0 {
		fmt.Println("No events found. Use 'agenda event schedule' to add one.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tTITLE\tTAGS")
	fmt.Fprintln(w, "--\t----\t-----\t----")
	for _, ev := range events {
		title := ev.Title
		if d, err := p.Calendar.Display(ev.ID); err == nil {
			title = d.Title
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			ev.ID,
			formatSpan(e.zone, ev),
			truncateString(title, 40),
			truncateString(tagNames(ev.Tags), 30))
	}
	return w.Flush()
}

func eventListCmd() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List scheduled events",
		Flags:   rangeFlags(),
		Action: func(c *cli.Context) error {
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				from, to, err := parseRange(e.zone, c.String("from"), c.String("to"))
				if err != nil {
					return err
				}
				return printEvents(e, p, p.Calendar.EventsBetween(from, to))
			})
		},
	}
}

func eventShowCmd() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one event",
		ArgsUsage: "[event-id]",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "event ID")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				d, err := p.Calendar.Display(models.ID(id))
				if err != nil {
					return err
				}
				fmt.Printf("%s\n", d.Title)
				fmt.Printf("----------------------------------\n")
				fmt.Printf("ID:       %s\n", d.ID)
				fmt.Printf("Date:     %s\n", d.DateLabel)
				fmt.Printf("When:     %s\n", formatSpan(e.zone, d.ScheduledEvent))
				fmt.Printf("Color:    %s\n", swatch(d.Color))
				if len(d.Tags) > 0 {
					fmt.Printf("Tags:     %s\n", tagNames(d.Tags))
				}
				if d.ActivityFound {
					fmt.Printf("Activity: %s\n", d.ActivityID)
				} else {
					fmt.Printf("Activity: %s (deleted)\n", d.ActivityID)
				}
				return nil
			})
		},
	}
}

func eventScheduleCmd() *cli.Command {
	return &cli.Command{
		Name:      "schedule",
		Aliases:   []string{"add"},
		Usage:     "Schedule an activity on the calendar",
		ArgsUsage: "[activity-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Day (YYYY-MM-DD), today when empty"},
			&cli.StringFlag{Name: "time", Aliases: []string{"t"}, Usage: "Start time (HH:MM); 09:00 with --date, now rounded without"},
			&cli.IntFlag{Name: "duration", Usage: "Length in minutes (config default when empty)"},
			&cli.BoolFlag{Name: "all-day", Usage: "Schedule for the whole day"},
			&cli.BoolFlag{Name: "copy", Usage: "Copy the new event ID to the clipboard"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "activity ID")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				day, at, err := parseSlot(e.zone, c.String("date"), c.String("time"))
				if err != nil {
					return err
				}

				var ev *models.ScheduledEvent
				switch {
				case c.Bool("all-day"):
					a, err := p.Activities.Get(models.ID(id))
					if err != nil {
						return err
					}
					start := e.zone.StartOfDay(day)
					ev, err = p.Calendar.ScheduleAt(ctx, a, start, start.AddDate(0, 0, 1), true)
					if err != nil {
						return err
					}
				case c.IsSet("duration"):
					if c.Int("duration") <= 0 {
						return fmt.Errorf("--duration must be positive")
					}
					a, err := p.Activities.Get(models.ID(id))
					if err != nil {
						return err
					}
					start := p.Calendar.DropStart(day, at)
					ev, err = p.Calendar.ScheduleAt(ctx, a, start, start.Add(time.Duration(c.Int("duration"))*time.Minute), false)
					if err != nil {
						return err
					}
				default:
					ev, err = p.Calendar.ScheduleByID(ctx, models.ID(id), day, at)
					if err != nil {
						return err
					}
				}

				fmt.Printf("✅ '%s' scheduled %s\n", ev.Title, formatSpan(e.zone, *ev))
				fmt.Printf("ID: %s\n", ev.ID)
				copyID(c, ev.ID)
				return nil
			})
		},
	}
}

func eventMoveCmd() *cli.Command {
	return &cli.Command{
		Name:      "move",
		Usage:     "Move an event; the duration is kept unless --end is given",
		ArgsUsage: "[event-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Aliases: []string{"s"}, Usage: "New start (YYYY-MM-DDTHH:MM)", Required: true},
			&cli.StringFlag{Name: "end", Usage: "New end (YYYY-MM-DDTHH:MM)"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "event ID")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				cur, err := p.Calendar.Get(models.ID(id))
				if err != nil {
					return err
				}
				start, err := e.zone.Parse(c.String("start"))
				if err != nil {
					return err
				}
				end := start.Add(cur.Duration())
				if c.IsSet("end") {
					if end, err = e.zone.Parse(c.String("end")); err != nil {
						return err
					}
				}
				ev, err := p.Calendar.MoveEvent(ctx, cur.ID, start, end)
				if err != nil {
					return err
				}
				fmt.Printf("✅ '%s' moved to %s\n", ev.Title, formatSpan(e.zone, *ev))
				return nil
			})
		},
	}
}

func eventResizeCmd() *cli.Command {
	return &cli.Command{
		Name:      "resize",
		Usage:     "Change only the end of an event",
		ArgsUsage: "[event-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "end", Usage: "New end (YYYY-MM-DDTHH:MM)", Required: true},
		},
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "event ID")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				end, err := e.zone.Parse(c.String("end"))
				if err != nil {
					return err
				}
				ev, err := p.Calendar.ResizeEvent(ctx, models.ID(id), end)
				if err != nil {
					return err
				}
				fmt.Printf("✅ '%s' now %s\n", ev.Title, formatSpan(e.zone, *ev))
				return nil
			})
		},
	}
}

func eventAllDayCmd() *cli.Command {
	return &cli.Command{
		Name:      "all-day",
		Usage:     "Mark an event as all-day (or clear it with --off)",
		ArgsUsage: "[event-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "off", Usage: "Clear the all-day flag"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "event ID")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				ev, err := p.Calendar.SetAllDay(ctx, models.ID(id), !c.Bool("off"))
				if err != nil {
					return err
				}
				fmt.Printf("✅ '%s' now %s\n", ev.Title, formatSpan(e.zone, *ev))
				return nil
			})
		},
	}
}

func eventDuplicateCmd() *cli.Command {
	return &cli.Command{
		Name:      "duplicate",
		Aliases:   []string{"dup"},
		Usage:     "Copy an event into the same slot",
		ArgsUsage: "[event-id]",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "event ID")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				ev, err := p.Calendar.DuplicateEvent(ctx, models.ID(id))
				if err != nil {
					return err
				}
				fmt.Printf("✅ '%s' duplicated (ID: %s)\n", ev.Title, ev.ID)
				return nil
			})
		},
	}
}

func eventEditActivityCmd() *cli.Command {
	return &cli.Command{
		Name:      "edit-activity",
		Usage:     "Show how to edit the activity an event was scheduled from",
		ArgsUsage: "[event-id]",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "event ID")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				return p.Calendar.EditActivity(models.ID(id))
			})
		},
	}
}

func eventDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete an event",
		ArgsUsage: "[event-id]",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "event ID")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				if err := p.Calendar.DeleteEvent(ctx, models.ID(id)); err != nil {
					return err
				}
				fmt.Printf("🗑️ Event %s deleted successfully.\n", id)
				return nil
			})
		},
	}
}

func eventByActivityCmd() *cli.Command {
	return &cli.Command{
		Name:      "by-activity",
		Usage:     "List the events scheduled from one activity",
		ArgsUsage: "[activity-id]",
		Action: func(c *cli.Context) error {
			id, err := requireArg(c, "activity ID")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				events, err := p.Calendar.EventsForActivity(ctx, models.ID(id))
				if err != nil {
					return err
				}
				return printEvents(e, p, events)
			})
		},
	}
}

func eventExportCmd() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export events as iCalendar",
		Flags: append(rangeFlags(),
			&cli.PathFlag{Name: "ics", Aliases: []string{"o"}, Usage: "Output file (stdout when empty)"},
		),
		Action: func(c *cli.Context) error {
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				from, to, err := parseRange(e.zone, c.String("from"), c.String("to"))
				if err != nil {
					return err
				}
				events := p.Calendar.EventsBetween(from, to)

				var out io.Writer = os.Stdout
				if path := c.Path("ics"); path != "" {
					f, err := os.Create(path)
					if err != nil {
						return fmt.Errorf("could not create %s: %w", path, err)
					}
					defer f.Close()
					out = f
				}
				if err := ics.Export(out, events, e.zone); err != nil {
					return err
				}
				if c.Path("ics") != "" {
					fmt.Printf("✅ %d event(s) exported to %s\n", len(events), c.Path("ics"))
				}
				return nil
			})
		},
	}
}

func eventImportCmd() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Schedule every event of an .ics file as one activity",
		Flags: []cli.Flag{
			&cli.PathFlag{Name: "ics", Aliases: []string{"i"}, Usage: "Input file", Required: true},
			&cli.StringFlag{Name: "activity", Aliases: []string{"a"}, Usage: "Activity ID to schedule", Required: true},
		},
		Action: func(c *cli.Context) error {
			body, err := os.ReadFile(c.Path("ics"))
			if err != nil {
				return fmt.Errorf("could not read %s: %w", c.Path("ics"), err)
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				a, err := p.Activities.Get(models.ID(c.String("activity")))
				if err != nil {
					return err
				}
				slots, err := ics.Parse(body, e.zone, p.Calendar.DefaultDuration())
				if err != nil {
					return err
				}

				imported := 0
				for _, s := range slots {
					if _, err := p.Calendar.ScheduleAt(ctx, a, s.Start, s.End, s.AllDay); err != nil {
						fmt.Printf("Error importing %s: %v\n", s.UID, err)
						continue
					}
					imported++
				}
				fmt.Printf("✅ %d of %d event(s) imported as '%s'\n", imported, len(slots), a.Title)
				return nil
			})
		},
	}
}
