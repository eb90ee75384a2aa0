package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/agenda-cli/internal/localstore"
	"github.com/kutbudev/agenda-cli/internal/server"
)

// NewServeCommand serves the local data directory over the planner REST API.
func NewServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the local backend as a REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "Listen address (config 'listen' when empty)"},
			&cli.StringFlag{Name: "token", Usage: "Bearer token clients must send", EnvVars: []string{"AGENDA_SERVER_TOKEN"}},
		},
		Action: func(c *cli.Context) error {
			e, err := loadEnv(c)
			if err != nil {
				return err
			}
			store := e.store
			if store == nil {
				if store, err = localstore.Open(e.cfg.DataDir, e.zone); err != nil {
					return err
				}
			}
			addr := e.cfg.Listen
			if c.IsSet("listen") {
				addr = c.String("listen")
			}
			token := e.cfg.ServerToken
			if c.IsSet("token") {
				token = c.String("token")
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("🚀 Serving %s on http://%s/api\n", e.cfg.DataDir, addr)
			if token == "" {
				fmt.Println("💡 No token set; anyone who can reach the address can write to it.")
			}
			return server.New(store, e.zone, token).ListenAndServe(ctx, addr)
		},
	}
}
