package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const messagingProduct = "whatsapp"

type Client struct {
	baseURL       string
	phoneNumberID string
	token         string
	maxRetries    uint64
	client        *http.Client
	logger        *zap.Logger

	newBackOff func() backoff.BackOff
}

func NewClient(baseURL, phoneNumberID, token string, timeout time.Duration, maxRetries uint64, logger *zap.Logger) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		token:         token,
		maxRetries:    maxRetries,
		client:        &http.Client{Timeout: timeout},
		logger:        logger,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxElapsedTime = 30 * time.Second
			return b
		},
	}
}

// SendText delivers a plain-text message to the recipient. Transport errors,
// 429 and 5xx answers are retried up to maxRetries times.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(sendMessageRequest{
		MessagingProduct: messagingProduct,
		To:               to,
		Text:             textPayload{Body: body},
	})
	if err != nil {
		return err
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := c.send(ctx, to, payload, attempt)
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	return backoff.Retry(operation, policy)
}

func (c *Client) send(ctx context.Context, to string, payload []byte, attempt int) error {
	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, url.PathEscape(c.phoneNumberID))
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return backoff.Permanent(err)
	}
	request.Header.Set("Authorization", "Bearer "+c.token)
	request.Header.Set("Content-Type", "application/json")

	start := time.Now()
	c.logger.Info("whatsapp send start", zap.String("to", to), zap.Int("attempt", attempt))
	response, err := c.client.Do(request)
	if err != nil {
		c.logger.Warn("whatsapp send failed", zap.String("to", to), zap.Int("attempt", attempt), zap.Error(err))
		return err
	}
	defer response.Body.Close()

	c.logger.Info(
		"whatsapp send complete",
		zap.String("to", to),
		zap.Int("attempt", attempt),
		zap.Int("status", response.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return decodeAPIError(response)
	}

	var decoded sendMessageResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil && !errors.Is(err, io.EOF) {
		c.logger.Debug("whatsapp response not decoded", zap.Error(err))
		return nil
	}
	if len(decoded.Messages) > 0 {
		c.logger.Debug("whatsapp message accepted", zap.String("to", to), zap.String("message_id", decoded.Messages[0].ID))
	}
	return nil
}

func decodeAPIError(response *http.Response) error {
	apiErr := &APIError{StatusCode: response.StatusCode}
	body, err := io.ReadAll(io.LimitReader(response.Body, 64<<10))
	if err != nil {
		return apiErr
	}
	var payload graphErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Error.Code
		apiErr.Message = payload.Error.Message
	}
	return apiErr
}
