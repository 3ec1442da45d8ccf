package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jamesainslie/modwatch/pkg/modwatch/diff"
	"github.com/jamesainslie/modwatch/pkg/modwatch/logging"
	"github.com/jamesainslie/modwatch/pkg/modwatch/types"
)

var logger = logging.Get("notify")

const userAgent = "modwatch"

// maxErrorBody bounds how much of a failed response ends up in an error.
const maxErrorBody = 2048

// ErrDeliveryFailed is wrapped by errors for non-success responses.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// Result describes the outcome of a delivery attempt.
type Result struct {
	Delivered  bool `json:"delivered" yaml:"delivered"`
	Skipped    bool `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	StatusCode int  `json:"status_code,omitempty" yaml:"status_code,omitempty"`
}

// Deliverer sends a message to one channel.
type Deliverer interface {
	Name() string
	Deliver(ctx context.Context, msg Message) (Result, error)
}

// Notify builds a message for changes and hands it to d. With no changes it
// reports a skipped delivery without contacting d.
func Notify(ctx context.Context, changes []diff.Change, current *types.Inventory, d Deliverer, opts BuildOptions) (Result, error) {
	if len(changes) == 0 {
		logger.Debug("no changes, skipping notification")
		return Result{Delivered: true, Skipped: true}, nil
	}

	msg := Build(changes, current, opts)
	res, err := d.Deliver(ctx, msg)
	if err != nil {
		logger.Warn("notification failed", "channel", d.Name(), "error", err)
		return res, err
	}

	logger.Info("notification sent", "channel", d.Name(), "changes", len(changes), "status", res.StatusCode)
	return res, nil
}

// post sends body to url and maps the response onto a Result. Responses
// outside 2xx become errors carrying the start of the response body.
func post(ctx context.Context, client *http.Client, url, contentType string, body io.Reader, headers map[string]string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	res := Result{StatusCode: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return res, fmt.Errorf("%w: status %d: %s", ErrDeliveryFailed, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	res.Delivered = true
	return res, nil
}
