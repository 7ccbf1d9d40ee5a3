package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/foodrescue/food-robot/internal/config"
	"github.com/foodrescue/food-robot/pkg/clients/gmailclient"
	"github.com/foodrescue/food-robot/pkg/core/model"
	"github.com/foodrescue/food-robot/pkg/db"
	"github.com/foodrescue/food-robot/pkg/notifier"
	"github.com/foodrescue/food-robot/pkg/utils/oauth"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Env      string
	Cfg      *config.Config
	Database db.Database
	Logger   *zap.Logger
	Ctx      context.Context
	DryRun   bool
	Now      func() time.Time

	notifier *notifier.Notifier
	sender   notifier.Sender
}

// Today is the current calendar day in the configured time zone
func (a *AppContext) Today() time.Time {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	return a.Cfg.Today(now())
}

// Notifications builds the notifier and sender on first use. Dry runs print
// messages and never authenticate with Gmail.
func (a *AppContext) Notifications() (*notifier.Notifier, notifier.Sender, error) {
	if a.notifier != nil {
		return a.notifier, a.sender, nil
	}

	var mailer notifier.Mailer
	if !a.DryRun {
		client, err := a.gmailClient()
		if err != nil {
			return nil, nil, err
		}
		mailer = client
	}

	ntf, err := notifier.New(notifier.Options{BaseURL: a.Cfg.BaseURL, AdminEmail: a.Cfg.AdminEmail}, mailer)
	if err != nil {
		return nil, nil, err
	}

	a.notifier = ntf
	a.sender = notifier.NewDispatcher(a.DryRun, a.Logger)
	return a.notifier, a.sender, nil
}

func (a *AppContext) gmailClient() (*gmailclient.Client, error) {
	a.Logger.Info("Loading OAuth client configuration")
	oauthCfg, err := config.LoadOAuthClientWithEnv(a.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	oauthConfig, err := oauth.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, err
	}

	store, err := oauth.DefaultTokenStore()
	if err != nil {
		return nil, err
	}

	token, err := oauth.GetTokenWithFlow(a.Ctx, oauthConfig, store, a.Env, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth token: %w", err)
	}

	a.Logger.Info("Initializing gmail client", zap.String("user_id", a.Cfg.GmailUserID))
	client, err := gmailclient.NewClient(a.Ctx, oauthCfg, token, a.Cfg.GmailUserID, a.Cfg.GmailSender)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail client: %w", err)
	}
	return client, nil
}

// parseDay parses an optional YYYY-MM-DD argument, defaulting to today
func parseDay(app *AppContext, args []string) (time.Time, error) {
	if len(args) == 0 || args[0] == "" {
		return app.Today(), nil
	}
	d, err := model.ParseDate(args[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}
