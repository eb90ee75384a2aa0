package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/kutbudev/agenda-cli/internal/api"
	"github.com/kutbudev/agenda-cli/internal/auth"
	"github.com/kutbudev/agenda-cli/internal/config"
)

func NewSetupCommand() *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Configure the CLI and sign in",
		Subcommands: []*cli.Command{
			{
				Name:   "register",
				Usage:  "Register a new user account",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "name"}, &cli.StringFlag{Name: "email"}},
				Action: handleUserRegistration,
			},
			{
				Name:   "login",
				Usage:  "Login with existing user credentials",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "email"}},
				Action: handleUserLogin,
			},
			{
				Name:   "api-key",
				Usage:  "Manually set an API key instead of logging in",
				Action: handleManualAPIKey,
			},
			{
				Name:   "logout",
				Usage:  "Revoke the session and forget stored credentials",
				Action: handleLogout,
			},
			{
				Name:   "status",
				Usage:  "Show configuration and who is signed in",
				Action: handleStatus,
			},
			{
				Name:  "config",
				Usage: "Change configuration values",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-url", Usage: "Planner API base URL"},
					&cli.StringFlag{Name: "backend", Usage: "remote or local"},
					&cli.StringFlag{Name: "timezone", Usage: "IANA zone used for every date"},
					&cli.StringFlag{Name: "data-dir", Usage: "Directory of the local backend"},
					&cli.IntFlag{Name: "duration", Usage: "Default event length in minutes"},
					&cli.StringFlag{Name: "listen", Usage: "Address for 'agenda serve'"},
					&cli.StringFlag{Name: "server-token", Usage: "Bearer token required by 'agenda serve'"},
				},
				Action: handleConfig,
			},
			{
				Name:  "reset-local",
				Usage: "Erase all data of the local backend",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
				},
				Action: handleResetLocal,
			},
		},
		Action: func(c *cli.Context) error {
			return cli.ShowCommandHelp(c, "setup")
		},
	}
}

func askInput(message, preset string) (string, error) {
	if strings.TrimSpace(preset) != "" {
		return strings.TrimSpace(preset), nil
	}
	var out string
	if err := survey.AskOne(&survey.Input{Message: message}, &out, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("could not read password: %w", err)
	}
	password := strings.TrimSpace(string(b))
	if password == "" {
		return "", errors.New("password is required")
	}
	return password, nil
}

// remoteClient returns the gateway client; auth only exists remotely.
func remoteClient(c *cli.Context) (*env, *api.Client, error) {
	e, err := loadEnv(c)
	if err != nil {
		return nil, nil, err
	}
	if e.client == nil {
		e.client = e.newClient()
	}
	return e, e.client, nil
}

func handleUserRegistration(c *cli.Context) error {
	e, client, err := remoteClient(c)
	if err != nil {
		return err
	}
	name, err := askInput("Name:", c.String("name"))
	if err != nil {
		return fmt.Errorf("could not read name: %w", err)
	}
	email, err := askInput("Email:", c.String("email"))
	if err != nil {
		return fmt.Errorf("could not read email: %w", err)
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	again, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if again != password {
		return errors.New("passwords do not match")
	}

	res, err := client.Register(c.Context, api.RegisterRequest{
		Name: name, Email: email, Password: password, PasswordConfirmation: again,
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	if err := e.tokens.Save(auth.Credentials{AccessToken: res.Token}); err != nil {
		return fmt.Errorf("could not save credentials: %w", err)
	}

	fmt.Println("✅ User registered successfully!")
	fmt.Printf("✅ Session saved (%s)\n", e.tokens.StorageMode())
	return nil
}

func handleUserLogin(c *cli.Context) error {
	e, client, err := remoteClient(c)
	if err != nil {
		return err
	}
	email, err := askInput("Email:", c.String("email"))
	if err != nil {
		return fmt.Errorf("could not read email: %w", err)
	}
	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	res, err := client.Login(c.Context, email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := e.tokens.Save(auth.Credentials{AccessToken: res.Token}); err != nil {
		return fmt.Errorf("could not save credentials: %w", err)
	}

	fmt.Println("✅ Login successful!")
	if res.User != nil {
		fmt.Printf("✅ Signed in as %s <%s>\n", res.User.Name, res.User.Email)
	}
	fmt.Printf("✅ Session saved (%s)\n", e.tokens.StorageMode())
	return nil
}

func handleManualAPIKey(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	key, err := readPassword("Enter your API Key: ")
	if err != nil {
		return err
	}
	if err := e.tokens.Save(auth.Credentials{APIKey: key}); err != nil {
		return fmt.Errorf("could not save API key: %w", err)
	}
	fmt.Printf("✅ API Key saved (%s)\n", e.tokens.StorageMode())
	return nil
}

func handleLogout(c *cli.Context) error {
	e, client, err := remoteClient(c)
	if err != nil {
		return err
	}
	if err := client.Logout(c.Context); err != nil {
		fmt.Printf("Error revoking session: %v\n", err)
	}
	if err := e.tokens.Clear(); err != nil {
		return fmt.Errorf("could not clear credentials: %w", err)
	}
	fmt.Println("✅ Logged out.")
	return nil
}

func handleStatus(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	path, _ := config.GetConfigPath()

	fmt.Printf("Config:   %s\n", path)
	fmt.Printf("Backend:  %s\n", e.cfg.Backend)
	fmt.Printf("Timezone: %s\n", e.zone.Name())
	fmt.Printf("Duration: %s\n", e.cfg.DefaultDuration())
	if e.store != nil {
		fmt.Printf("Data dir: %s\n", e.cfg.DataDir)
		return nil
	}

	fmt.Printf("API:      %s\n", e.cfg.APIBaseURL)
	fmt.Printf("Storage:  %s\n", e.tokens.StorageMode())
	if _, err := e.tokens.Load(); errors.Is(err, auth.ErrNoCredentials) {
		fmt.Println("Session:  not signed in")
		fmt.Println("💡 Use 'agenda setup login' to sign in.")
		return nil
	}
	user, err := e.client.Me(c.Context)
	if err != nil {
		fmt.Printf("Session:  stored, but the API rejected it: %v\n", err)
		return nil
	}
	fmt.Printf("Session:  %s <%s>\n", user.Name, user.Email)
	return nil
}

func handleConfig(c *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if c.IsSet("api-url") {
		cfg.APIBaseURL = c.String("api-url")
	}
	if c.IsSet("backend") {
		cfg.Backend = c.String("backend")
	}
	if c.IsSet("timezone") {
		cfg.Timezone = c.String("timezone")
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("duration") {
		cfg.DefaultDurationMinutes = c.Int("duration")
	}
	if c.IsSet("listen") {
		cfg.Listen = c.String("listen")
	}
	if c.IsSet("server-token") {
		cfg.ServerToken = c.String("server-token")
	}
	cfg.Normalize()
	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}
	path, _ := config.GetConfigPath()
	fmt.Printf("✅ Config saved to %s\n", path)
	return nil
}

func handleResetLocal(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}
	if e.store == nil {
		return errors.New("reset-local only applies to the local backend (use --backend local)")
	}
	ok, err := confirm(c, fmt.Sprintf("Erase every tag, activity and event in %s?", e.cfg.DataDir))
	if err != nil || !ok {
		return err
	}
	if err := e.store.Erase(); err != nil {
		return err
	}
	fmt.Println("🗑️ Local data erased.")
	return nil
}
