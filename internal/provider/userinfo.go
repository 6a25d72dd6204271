package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/notifyhub/xnft-notify/internal/domain"
	"github.com/notifyhub/xnft-notify/internal/ratelimiter"
)

const maxErrorBody = 4 << 10

// UserInfo is the body returned by the user info endpoint on success.
type UserInfo struct {
	User *User `json:"user"`
}

type User struct {
	ID         string          `json:"id"`
	Username   string          `json:"username"`
	PublicKeys []UserPublicKey `json:"public_keys"`
}

type UserPublicKey struct {
	Blockchain string `json:"blockchain"`
	PublicKey  string `json:"public_key"`
}

// UserInfoClient resolves holders through GET <endpoint>?publicKey=<holder>.
// The endpoint is injected from config so tests can point to a local server.
type UserInfoClient struct {
	endpoint   string
	httpClient *http.Client
	limiter    *ratelimiter.Limiter
	logger     *zap.Logger
	hooks      LookupHooks
}

// NewUserInfoClient builds a client. limiter may be nil to disable throttling.
func NewUserInfoClient(
	endpoint string,
	timeout time.Duration,
	limiter *ratelimiter.Limiter,
	logger *zap.Logger,
	hooks LookupHooks,
) *UserInfoClient {
	if hooks.OnResolved == nil {
		hooks.OnResolved = func(time.Duration) {}
	}
	if hooks.OnUnresolved == nil {
		hooks.OnUnresolved = func(string, time.Duration) {}
	}
	return &UserInfoClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		logger:     logger,
		hooks:      hooks,
	}
}

// Lookup fetches the user id of holder.
//
// Errors: domain.ErrInvalidHolder when holder is not a base58 public key,
// *StatusError for any status other than 200, domain.ErrMalformedResponse
// when the body does not carry user.id, or the transport error.
func (c *UserInfoClient) Lookup(ctx context.Context, holder domain.HolderID) (domain.UserID, error) {
	pk, err := solana.PublicKeyFromBase58(string(holder))
	if err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidHolder, holder)
	}

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse user info endpoint: %w", err)
	}
	q := u.Query()
	q.Set("publicKey", pk.String())
	u.RawQuery = q.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if info.User == nil || info.User.ID == "" {
		return "", fmt.Errorf("%w: user.id missing", domain.ErrMalformedResponse)
	}

	return domain.UserID(info.User.ID), nil
}

// Resolve wraps Lookup: every failure is logged and reported as absent.
func (c *UserInfoClient) Resolve(ctx context.Context, holder domain.HolderID) (domain.UserID, bool) {
	start := time.Now()
	id, err := c.Lookup(ctx, holder)
	elapsed := time.Since(start)

	if err == nil {
		c.hooks.OnResolved(elapsed)
		return id, true
	}

	reason := unresolvedReason(err)
	log := c.logger.With(zap.String("holder", string(holder)), zap.String("reason", reason))

	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		log.Info("no user found", zap.Int("status", statusErr.StatusCode))
	case errors.Is(err, domain.ErrMalformedResponse), errors.Is(err, domain.ErrInvalidHolder):
		log.Warn("skipping holder", zap.Error(err))
	default:
		log.Warn("user info lookup failed", zap.Error(err))
	}

	c.hooks.OnUnresolved(reason, elapsed)
	return "", false
}

func unresolvedReason(err error) string {
	var statusErr *StatusError
	switch {
	case errors.As(err, &statusErr):
		if statusErr.StatusCode == http.StatusNotFound {
			return "not_found"
		}
		return "status"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, domain.ErrInvalidHolder):
		return "invalid_holder"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "transport"
	}
}

// compile-time check that UserInfoClient implements Resolver
var _ Resolver = (*UserInfoClient)(nil)
