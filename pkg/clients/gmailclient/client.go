package gmailclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/foodrescue/food-robot/internal/config"
	"github.com/foodrescue/food-robot/pkg/utils/oauth"
)

// Client wraps the Gmail API and implements notifier.Mailer
type Client struct {
	userID   string
	from     string
	interval time.Duration
	send     func(userID string, m *gmail.Message) error

	lastSendTime time.Time
	sendMutex    sync.Mutex
}

// NewClient creates a Gmail client sending as userID. from, if set, becomes
// the From header (e.g. "Food Robot <robot@example.com>").
func NewClient(ctx context.Context, oauthCfg *config.OAuthClientConfig, token *oauth2.Token, userID, from string) (*Client, error) {
	oauthConfig, err := oauth.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}

	httpClient := oauthConfig.Client(ctx, token)

	service, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Client{
		userID:   userID,
		from:     from,
		interval: EmailInterval,
		send: func(userID string, m *gmail.Message) error {
			_, err := service.Users.Messages.Send(userID, m).Context(ctx).Do()
			return err
		},
	}, nil
}
