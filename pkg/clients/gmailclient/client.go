package gmailclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/example/crewfinder/internal/config"
	"github.com/example/crewfinder/pkg/utils"
)

// Client wraps the Gmail API client used to dispatch invitation emails
type Client struct {
	service      *gmail.Service
	sender       string
	lastSendTime time.Time
	sendMutex    sync.Mutex
}

// NewClient creates a Gmail client, performing the OAuth flow if no valid
// token is cached. sender is the optional From header value
func NewClient(ctx context.Context, oauthCfg *config.OAuthClientConfig, sender string) (*Client, error) {
	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}

	token, err := utils.GetTokenWithFlow(ctx, oauthConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth token: %w", err)
	}

	return newClient(ctx, oauthConfig, token, sender)
}

// NewClientWithToken creates a Gmail client from an existing OAuth token
func NewClientWithToken(ctx context.Context, oauthCfg *config.OAuthClientConfig, token *oauth2.Token, sender string) (*Client, error) {
	oauthConfig, err := utils.GetOAuthConfig(oauthCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth config: %w", err)
	}

	return newClient(ctx, oauthConfig, token, sender)
}

func newClient(ctx context.Context, oauthConfig *oauth2.Config, token *oauth2.Token, sender string) (*Client, error) {
	httpClient := oauthConfig.Client(ctx, token)

	service, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Client{
		service: service,
		sender:  sender,
	}, nil
}
