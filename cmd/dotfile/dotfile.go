// Package dotfile creates the ~/.pynsotrc configuration file.
package dotfile

import (
	"context"
	"fmt"
	"os"

	"github.com/paularlott/cli"

	"github.com/martinsuchenak/nsotctl/internal/config"
	"github.com/martinsuchenak/nsotctl/internal/log"
)

func Commands() []*cli.Command {
	return []*cli.Command{InitCommand(), ShowCommand()}
}

func InitCommand() *cli.Command {
	return &cli.Command{
		Name:        "init",
		Usage:       "Write a new dotfile",
		Description: "Write the dotfile from flags, prompting for anything missing when run on a terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Usage: "Email used to authenticate"},
			&cli.StringFlag{Name: "secret-key", Usage: "Secret key for auth_token"},
			&cli.StringFlag{Name: "auth-method", Usage: "auth_token or auth_header", DefaultValue: config.AuthToken},
			&cli.StringFlag{Name: "auth-header", Usage: "Header carrying the email for auth_header", DefaultValue: config.DefaultAuthHeader},
			&cli.StringFlag{Name: "default-domain", Usage: "Domain appended to the user name for auth_header", DefaultValue: "localhost"},
			&cli.StringFlag{Name: "api-version", Usage: "API version sent in the Accept header"},
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing dotfile"},
		},
		Run: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.GetString("config")
			if path == "" {
				path = config.DefaultDotfilePath()
			}
			if _, err := os.Stat(path); err == nil && !cmd.GetBool("force") {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := &config.Config{
				URL:           cmd.GetString("url"),
				AuthMethod:    cmd.GetString("auth-method"),
				Email:         cmd.GetString("email"),
				SecretKey:     cmd.GetString("secret-key"),
				DefaultSite:   cmd.GetString("site"),
				APIVersion:    cmd.GetString("api-version"),
				DefaultDomain: cmd.GetString("default-domain"),
				AuthHeader:    cmd.GetString("auth-header"),
			}
			if config.IsTerminal() {
				if err := config.NewPrompter().Complete(cfg); err != nil {
					return err
				}
			} else if err := cfg.Validate(); err != nil {
				return err
			}

			if err := config.WriteDotfile(cfg, path); err != nil {
				return err
			}
			log.Info("Dotfile written", "path", path)
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}

func ShowCommand() *cli.Command {
	return &cli.Command{
		Name:        "show",
		Usage:       "Show the effective configuration",
		Description: "Show the configuration after merging flags, environment and dotfile. The secret key is masked.",
		Run: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load(&config.Config{
				URL:         cmd.GetString("url"),
				DefaultSite: cmd.GetString("site"),
				DataDir:     cmd.GetString("data-dir"),
				ConfigFile:  cmd.GetString("config"),
			})
			if err != nil {
				return err
			}
			secret := ""
			if cfg.SecretKey != "" {
				secret = "********"
			}
			fmt.Printf("source:         %s\n", cfg)
			fmt.Printf("url:            %s\n", cfg.URL)
			fmt.Printf("auth_method:    %s\n", cfg.AuthMethod)
			fmt.Printf("email:          %s\n", cfg.Email)
			fmt.Printf("secret_key:     %s\n", secret)
			fmt.Printf("auth_header:    %s\n", cfg.AuthHeader)
			fmt.Printf("default_domain: %s\n", cfg.DefaultDomain)
			fmt.Printf("default_site:   %s\n", cfg.DefaultSite)
			fmt.Printf("api_version:    %s\n", cfg.APIVersion)
			fmt.Printf("data_dir:       %s\n", cfg.DataDir)
			if err := cfg.Validate(); err != nil {
				fmt.Printf("\ninvalid: %v\n", err)
			}
			return nil
		},
	}
}
