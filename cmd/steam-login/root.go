package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"steam-trader/internal/config"
	"steam-trader/internal/services/steamauth"

	"github.com/spf13/cobra"
)

const maxLoginRounds = 5

type loginOptions struct {
	username  string
	password  string
	storage   string
	community string
}

// NewRootCmd creates the steam-login command.
func NewRootCmd() *cobra.Command {
	opts := &loginOptions{}
	cmd := &cobra.Command{
		Use:   "steam-login",
		Short: "Log a Steam account in and persist its session",
		Long: `steam-login runs the community login flow for one account, prompting for
a captcha, an email code or a two-factor code whenever Steam asks for one.
The resulting cookies are stored under the storage directory so the service
and later runs reuse the session.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogin(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.username, "username", "u", "", "account name (defaults to STEAM_USERNAME)")
	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "password (defaults to STEAM_PASSWORD, otherwise prompted)")
	cmd.Flags().StringVar(&opts.storage, "storage", "", "cookie storage directory (defaults to STEAM_STORAGE_PATH)")
	cmd.Flags().StringVar(&opts.community, "community", "", "community base URL")

	cmd.AddCommand(NewGuardCodeCmd())
	return cmd
}

// NewGuardCodeCmd prints the current Steam Guard code for a shared secret.
func NewGuardCodeCmd() *cobra.Command {
	var secret string
	cmd := &cobra.Command{
		Use:   "guard-code",
		Short: "Print the current Steam Guard mobile code",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = config.Load().SteamSharedSecret
			}
			if secret == "" {
				return fmt.Errorf("no shared secret: pass --secret or set STEAM_SHARED_SECRET")
			}
			code, err := steamauth.GenerateSteamGuardCode(secret, time.Now())
			if err != nil {
				return err
			}
			cmd.Println(code)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", "", "base64 shared secret")
	return cmd
}

func runLogin(cmd *cobra.Command, opts *loginOptions) error {
	cfg := config.Load()
	username := opts.username
	if username == "" {
		username = cfg.SteamUsername
	}
	in := bufio.NewReader(cmd.InOrStdin())
	if username == "" {
		username = prompt(cmd, in, "Username")
	}

	scfg := cfg.SteamConfig(username)
	scfg.Username = username
	if opts.storage != "" {
		scfg.StoragePath = opts.storage
	}
	if opts.community != "" {
		scfg.CommunityURL = opts.community
	}
	if opts.password != "" {
		scfg.Password = opts.password
	}
	if scfg.Password == "" {
		scfg.Password = prompt(cmd, in, "Password")
	}

	client, err := steamauth.NewClient(scfg, steamauth.WithTimeout(cfg.SteamTimeout))
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	for round := 0; round < maxLoginRounds; round++ {
		res, err := client.Login(ctx)
		if err != nil {
			return err
		}
		cmd.Printf("login %s: %s\n", username, res.Code)

		switch res.Code {
		case steamauth.LoginSuccess:
			return printSession(ctx, cmd, client)
		case steamauth.NeedCaptcha:
			cmd.Printf("Captcha: %s\n", client.CaptchaURL())
			client.SetCaptchaText(prompt(cmd, in, "Captcha text"))
		case steamauth.NeedEmail:
			client.SetEmailCode(prompt(cmd, in, "Email code"))
		case steamauth.Need2FA:
			client.SetTwoFactorCode(prompt(cmd, in, "Two-factor code"))
		case steamauth.BadCredentials:
			client.SetPassword(prompt(cmd, in, "Password"))
		default:
			return fmt.Errorf("login %s failed: %s", username, res.Code)
		}
	}
	return fmt.Errorf("login %s: gave up after %d rounds", username, maxLoginRounds)
}

func printSession(ctx context.Context, cmd *cobra.Command, client *steamauth.Client) error {
	session := client.Session()
	cmd.Printf("SteamID:   %s\n", session.SteamID)
	cmd.Printf("Cookies:   %s\n", client.CookiePath())
	if key := client.APIKey(); key.Value != "" {
		cmd.Printf("Web API:   key registered for %s\n", key.Domain)
	} else {
		cmd.Println("Web API:   no key available")
	}

	status, err := client.CanTrade(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Trade:     %s (%s)\n", status.Code, status.Message)

	balance, ok, err := client.Balance(ctx)
	if err != nil {
		return err
	}
	if ok {
		cmd.Printf("Balance:   %s\n", balance.Raw)
	}
	return nil
}

func prompt(cmd *cobra.Command, in *bufio.Reader, label string) string {
	cmd.Printf("%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return ""
	}
	return strings.TrimSpace(line)
}
