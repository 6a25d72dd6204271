package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/xnft-notify/internal/domain"
)

// PushRequest is the JSON body posted to the push notification endpoint.
type PushRequest struct {
	UserIDs []domain.UserID `json:"userIds"`
	Title   string          `json:"title"`
	Body    string          `json:"body"`
}

// PushClient sends one aggregated notification per call, authenticated with
// the pre-shared secret. It never retries.
type PushClient struct {
	endpoint   string
	secret     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewPushClient(endpoint, secret string, timeout time.Duration, logger *zap.Logger) *PushClient {
	return &PushClient{
		endpoint:   endpoint,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Send posts payload to the endpoint. An empty recipient list is a logged
// no-op. Missing configuration, transport errors and non-2xx responses are
// logged and returned as a failed outcome.
func (p *PushClient) Send(ctx context.Context, payload domain.Payload) domain.DispatchOutcome {
	if len(payload.Recipients) == 0 {
		p.logger.Warn("no recipients, push notification not sent")
		return domain.DispatchOutcome{Skipped: true}
	}

	switch {
	case p.endpoint == "":
		p.logger.Error("PUSH_NOTIFICATION_ENDPOINT is not defined")
		return domain.DispatchOutcome{}
	case p.secret == "":
		p.logger.Error("SECRET is not defined")
		return domain.DispatchOutcome{}
	}

	body, err := json.Marshal(PushRequest{
		UserIDs: payload.Recipients,
		Title:   payload.Title,
		Body:    payload.Body,
	})
	if err != nil {
		p.logger.Error("marshal push request", zap.Error(err))
		return domain.DispatchOutcome{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		p.logger.Error("create push request", zap.Error(err))
		return domain.DispatchOutcome{}
	}
	req.Header.Set("Authorization", "secret "+p.secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	if id := CorrelationID(ctx); id != "" {
		req.Header.Set("X-Correlation-ID", id)
	}

	p.logger.Info("sending push notification",
		zap.Int("recipients", len(payload.Recipients)),
		zap.String("title", payload.Title),
	)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("push notification request failed", zap.Error(err))
		return domain.DispatchOutcome{}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	out := domain.DispatchOutcome{StatusCode: resp.StatusCode, Response: string(respBody)}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.logger.Error("error sending push notification",
			zap.Int("status", resp.StatusCode),
			zap.String("response", out.Response),
		)
		return out
	}

	out.Sent = true
	p.logger.Info("push notification sent successfully",
		zap.Int("status", resp.StatusCode),
		zap.String("response", out.Response),
	)
	return out
}

// compile-time check that PushClient implements Dispatcher
var _ Dispatcher = (*PushClient)(nil)
