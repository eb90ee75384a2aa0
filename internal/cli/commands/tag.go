package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/agenda-cli/internal/planner"
)

// NewTagCommand creates all subcommands for the 'tag' command group.
func NewTagCommand() *cli.Command {
	return &cli.Command{
		Name:    "tag",
		Aliases: []string{"t"},
		Usage:   "Manage tags",
		Subcommands: []*cli.Command{
			tagListCmd(),
			tagCreateCmd(),
			tagUpdateCmd(),
			tagDeleteCmd(),
		},
	}
}

func tagListCmd() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List all tags",
		Action: func(c *cli.Context) error {
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				tags := p.Tags.Catalog()
				if len(tags) == 0 {
					fmt.Println("No tags found. Use 'agenda tag create' to add one.")
					return nil
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tCOLOR")
				fmt.Fprintln(w, "--\t----\t-----")
				for _, t := range tags {
					fmt.Fprintf(w, "%d\t%s\t%s\n", t.ID, truncateString(t.Name, 30), swatch(t.Color))
				}
				return w.Flush()
			})
		},
	}
}

func tagCreateCmd() *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a new tag",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "color",
				Aliases: []string{"c"},
				Usage:   "Hex colour (random palette colour when empty)",
			},
		},
		Action: func(c *cli.Context) error {
			name, err := requireArg(c, "tag name")
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				tag, err := p.Tags.CreateTag(ctx, name, c.String("color"))
				if err != nil {
					return err
				}
				fmt.Printf("✅ Tag '%s' created (ID: %d, %s)\n", tag.Name, tag.ID, swatch(tag.Color))
				return nil
			})
		},
	}
}

func tagUpdateCmd() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Rename or recolour a tag",
		ArgsUsage: "[tag-id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "New tag name"},
			&cli.StringFlag{Name: "color", Aliases: []string{"c"}, Usage: "New hex colour"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireTagID(c)
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				current, err := p.Tags.Find(id)
				if err != nil {
					return err
				}
				name, color := current.Name, current.Color
				if c.IsSet("name") {
					name = c.String("name")
				}
				if c.IsSet("color") {
					color = c.String("color")
				}
				tag, err := p.Tags.UpdateTag(ctx, id, name, color)
				if err != nil {
					return err
				}
				fmt.Printf("✅ Tag %d updated: %s %s\n", tag.ID, tag.Name, swatch(tag.Color))
				return nil
			})
		},
	}
}

func tagDeleteCmd() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a tag and remove it from activities and events",
		ArgsUsage: "[tag-id]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireTagID(c)
			if err != nil {
				return err
			}
			return withPlanner(c, func(ctx context.Context, e *env, p *planner.Planner) error {
				tag, err := p.Tags.Find(id)
				if err != nil {
					return err
				}
				ok, err := confirm(c, fmt.Sprintf("Delete tag '%s'?", tag.Name))
				if err != nil || !ok {
					return err
				}
				if err := p.Tags.DeleteTag(ctx, id); err != nil {
					return err
				}
				fmt.Printf("🗑️ Tag %d deleted successfully.\n", id)
				return nil
			})
		},
	}
}
