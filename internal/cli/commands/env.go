package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/kutbudev/agenda-cli/internal/api"
	"github.com/kutbudev/agenda-cli/internal/auth"
	"github.com/kutbudev/agenda-cli/internal/clock"
	"github.com/kutbudev/agenda-cli/internal/config"
	"github.com/kutbudev/agenda-cli/internal/localstore"
	appLog "github.com/kutbudev/agenda-cli/internal/log"
	"github.com/kutbudev/agenda-cli/internal/notify"
	"github.com/kutbudev/agenda-cli/internal/planner"
)

// env is everything a command needs, built from config and global flags.
type env struct {
	cfg    *config.Config
	zone   *clock.Zone
	tokens *auth.TokenStore
	// Exactly one of client and store is set, per cfg.Backend.
	client *api.Client
	store  *localstore.Store
	sink   notify.Sink
	router notify.Router
}

// GlobalFlags are accepted before any command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "backend",
			Aliases: []string{"b"},
			Usage:   "remote (REST API) or local (files in data_dir)",
			EnvVars: []string{"AGENDA_BACKEND"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info or error",
			EnvVars: []string{"AGENDA_LOG_LEVEL"},
		},
	}
}

func loadEnv(c *cli.Context) (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	if b := strings.TrimSpace(c.String("backend")); b != "" {
		cfg.Backend = b
		cfg.Normalize()
	}
	level := cfg.LogLevel
	if l := c.String("log-level"); l != "" {
		level = l
	}
	appLog.SetLevel(appLog.ParseLevel(level))

	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	e := &env{
		cfg:    cfg,
		zone:   clock.NewZone(cfg.Timezone),
		tokens: auth.NewTokenStore(dir),
		sink:   notify.Terminal{Out: os.Stderr},
		router: notify.CLIRouter{Out: os.Stderr},
	}

	switch cfg.Backend {
	case config.BackendLocal:
		e.store, err = localstore.Open(cfg.DataDir, e.zone)
		if err != nil {
			return nil, err
		}
	default:
		e.client = e.newClient()
	}
	return e, nil
}

// newClient builds the gateway client with stored credentials and the
// refresh-once policy.
func (e *env) newClient() *api.Client {
	client := api.NewClient(e.cfg.APIBaseURL, e.cfg.HTTPTimeout(), e.zone)
	client.Tokens = e.tokens
	client.Refresher = &auth.Refresher{
		Store: e.tokens,
		Exchange: func(ctx context.Context, token string) (auth.Credentials, error) {
			res, err := client.Refresh(ctx, token)
			if err != nil {
				return auth.Credentials{}, err
			}
			return auth.Credentials{AccessToken: res.Token}, nil
		},
	}
	client.OnUnauthorized = func() { e.router.Navigate("/login") }
	return client
}

func (e *env) backend() planner.Backend {
	if e.store != nil {
		return e.store
	}
	return e.client
}

// planner builds and loads a planner over the configured backend.
func (e *env) planner(ctx context.Context, sink notify.Sink) (*planner.Planner, error) {
	if sink == nil {
		sink = e.sink
	}
	p := planner.New(planner.Options{
		Backend:         e.backend(),
		Zone:            e.zone,
		Sink:            sink,
		Router:          e.router,
		DefaultDuration: e.cfg.DefaultDuration(),
	})
	if err := p.Initialize(ctx); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// withPlanner runs fn with a loaded planner that only reports errors; the
// command prints its own success output.
func withPlanner(c *cli.Context, fn func(ctx context.Context, e *env, p *planner.Planner) error) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := e.planner(ctx, errorsOnly{e.sink})
	if err != nil {
		return err
	}
	defer p.Close()
	return fn(ctx, e, p)
}

// errorsOnly forwards error notifications and drops the rest.
type errorsOnly struct{ next notify.Sink }

func (s errorsOnly) Notify(message string, kind notify.Kind) {
	if kind == notify.KindError {
		s.next.Notify(message, kind)
	}
}
