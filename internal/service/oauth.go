package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/Payphone-Digital/auth/config"
	apperrors "github.com/Payphone-Digital/auth/internal/errors"
	"github.com/Payphone-Digital/auth/pkg/circuit"
)

// GoogleUserInfo is the subset of the Google userinfo response the auth
// flows need.
type GoogleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleUserInfoProvider resolves an OAuth access token to the profile it
// belongs to.
type GoogleUserInfoProvider interface {
	FetchUserInfo(ctx context.Context, accessToken string) (*GoogleUserInfo, error)
}

// googleClient calls the Google userinfo endpoint with the caller-supplied
// access token. Requests run through a circuit breaker so a Google outage
// fails fast instead of tying up request handlers.
type googleClient struct {
	userInfoURL string
	timeout     func(context.Context) (context.Context, context.CancelFunc)
	breaker     *circuit.Breaker
}

func NewGoogleClient(cfg *config.Config, breaker *circuit.Breaker) GoogleUserInfoProvider {
	requestTimeout := cfg.OAuth.RequestTimeout
	return &googleClient{
		userInfoURL: cfg.OAuth.GoogleUserInfoURL,
		timeout: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithTimeout(ctx, requestTimeout)
		},
		breaker: breaker,
	}
}

func (c *googleClient) FetchUserInfo(ctx context.Context, accessToken string) (*GoogleUserInfo, error) {
	ctx, cancel := c.timeout(ctx)
	defer cancel()

	var info GoogleUserInfo
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
		client := oauth2.NewClient(ctx, src)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
		if err != nil {
			return fmt.Errorf("failed to build userinfo request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("userinfo request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("userinfo request returned status %d", resp.StatusCode)
		}

		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return fmt.Errorf("failed to decode userinfo response: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, circuit.ErrCircuitOpen) || errors.Is(err, circuit.ErrTooManyRequests) {
			return nil, apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
		}
		return nil, apperrors.WrapError(apperrors.ErrInvalidToken, err)
	}

	if info.Email == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidToken, "userinfo response carries no email")
	}

	return &info, nil
}
