// Package oauthinject injects a bearer token into an sse/http server's
// request headers by running a service-to-service OAuth2 client-credentials
// exchange, per a server's "oauth" config block. This is distinct from the
// interactive user-login OAuth flows MCP servers themselves may use --
// credentials here authenticate the supervisor to the server, not a human
// to a third party.
package oauthinject

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/mcp-scooter/supervisor/internal/config"
)

// Inject resolves cfg into a client-credentials token and returns headers
// with an added "Authorization: Bearer <token>" entry, leaving existing
// headers untouched. It returns the input headers unchanged if cfg is nil.
func Inject(ctx context.Context, cfg *config.OAuthConfig, headers map[string]string) (map[string]string, error) {
	if cfg == nil {
		return headers, nil
	}

	clientID := os.Getenv(cfg.ClientIDEnv)
	clientSecret := os.Getenv(cfg.ClientSecretEnv)
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("oauthinject: %s/%s must both be set in the environment", cfg.ClientIDEnv, cfg.ClientSecretEnv)
	}
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("oauthinject: token_url is required")
	}

	ccConfig := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     cfg.TokenURL,
		Scopes:       cfg.Scopes,
	}

	token, err := ccConfig.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("oauthinject: client-credentials exchange failed: %w", err)
	}

	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out["Authorization"] = token.Type() + " " + token.AccessToken
	return out, nil
}
