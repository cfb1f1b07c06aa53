package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/flacsync/internal/browser"
	"github.com/desertthunder/flacsync/internal/shared"
	"github.com/desertthunder/flacsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// loadOrCreateConfig loads config.toml, creating it from the embedded
// template when missing.
func (r *Runner) loadOrCreateConfig(configPath string) *shared.Config {
	if _, err := os.Stat(configPath); err == nil {
		if config, err := shared.LoadConfig(configPath); err == nil {
			return config
		} else {
			r.logger.Warn("failed to load config, using defaults", "error", err)
		}
		return shared.DefaultConfig()
	}

	r.logger.Info("config file not found, creating from template", "path", configPath)
	if err := shared.CreateConfigFile(configPath); err != nil {
		r.logger.Warn("failed to create config file, using defaults", "error", err)
		return shared.DefaultConfig()
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load created config, using defaults", "error", err)
		return shared.DefaultConfig()
	}
	return config
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config := r.loadOrCreateConfig(cmd.String("config"))

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}

// SetupCredentials collects Spotify credentials and the download directory,
// interactively unless the flags provide them, and persists them to
// config.toml.
func (r *Runner) SetupCredentials(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	config := r.loadOrCreateConfig(configPath)

	clientID := cmd.String("client-id")
	clientSecret := cmd.String("client-secret")
	outputDir := cmd.String("output-dir")

	if clientID == "" || clientSecret == "" {
		result, err := ui.RunWizard(
			config.Credentials.Spotify.ClientID,
			config.Credentials.Spotify.ClientSecret,
			config.Downloader.OutputDir,
		)
		if err != nil {
			return err
		}
		if result.Cancelled {
			r.writePlain("Setup cancelled\n")
			return nil
		}
		clientID = result.ClientID
		clientSecret = result.ClientSecret
		outputDir = result.OutputDir
	}

	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	config.Credentials.Spotify.ClientID = clientID
	config.Credentials.Spotify.ClientSecret = clientSecret
	if outputDir != "" {
		config.Downloader.OutputDir = outputDir
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlain("%s\n", ui.RenderOK("✓ Credentials saved to "+configPath))
	r.writePlain("You can now use: flacsync sync run --playlist <id>\n")
	return nil
}

// SetupSession imports mirror session cookies from a browser cURL command
// into the persistent automation profile.
//
// Solve the mirror's challenge once in a regular browser, copy any request as
// cURL from DevTools, and feed it here.
func (r *Runner) SetupSession(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	r.logger.Info("parsing cURL command for mirror session cookies")

	var session *shared.CurlSession
	var err error

	if curlFile != "" {
		session, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		session, err = shared.ParseCurlCommand([]byte(curlCmd))
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	if len(session.Cookies) == 0 {
		return fmt.Errorf("%w: cURL command carries no cookies", shared.ErrInvalidInput)
	}

	config := r.loadOrCreateConfig(cmd.String("config"))

	sess := browser.NewSession(browser.SessionOpts{
		Headless:    true,
		UserDataDir: config.Browser.UserDataDir,
		DownloadDir: config.Downloader.OutputDir,
		Logger:      r.logger,
	})
	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer sess.Close()

	if err := sess.ImportCookies(session); err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}

	r.writePlain("%s\n", ui.RenderOK(fmt.Sprintf("✓ Imported %d cookies into the browser profile", len(session.Cookies))))
	r.writePlain("Profile: %s\n", config.Browser.UserDataDir)
	return nil
}
