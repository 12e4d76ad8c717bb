package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/ThomasLachaux/youtube-synchronize/internal/shared"
)

const defaultHealthcheckTimeout = 10 * time.Second

// HealthcheckService reports the lifecycle of a run to a healthchecks.io compatible endpoint.
//
// Pings are sent to <url>/<id>/start, <url>/<id> and <url>/<id>/fail.
type HealthcheckService struct {
	cfg        shared.HealthcheckConfig
	httpClient *http.Client
	logger     *log.Logger
}

// NewHealthcheckService creates a healthcheck reporter. A nil client gets a default one with a timeout.
func NewHealthcheckService(cfg shared.HealthcheckConfig, client *http.Client, logger *log.Logger) *HealthcheckService {
	if client == nil {
		client = &http.Client{Timeout: defaultHealthcheckTimeout}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &HealthcheckService{cfg: cfg, httpClient: client, logger: logger}
}

// Start signals that a run began.
func (h *HealthcheckService) Start(ctx context.Context) error {
	return h.signal(ctx, "start", http.MethodGet, "/start", "")
}

// Success signals that a run finished without error.
func (h *HealthcheckService) Success(ctx context.Context) error {
	return h.signal(ctx, "success", http.MethodGet, "", "")
}

// Fail signals that a run failed, with the error text as body.
//
// Failure pings never return an error: they are sent while another error is already being reported.
func (h *HealthcheckService) Fail(ctx context.Context, reason error) {
	body := ""
	if reason != nil {
		body = reason.Error()
	}
	if err := h.ping(ctx, http.MethodPost, "/fail", body); err != nil {
		h.logger.Warn("Failure ping was not delivered", "error", err)
	}
}

func (h *HealthcheckService) signal(ctx context.Context, name, method, suffix, body string) error {
	err := h.ping(ctx, method, suffix, body)
	if err == nil {
		return nil
	}
	if h.cfg.Strict {
		return err
	}
	h.logger.Warn("Healthcheck ping failed", "signal", name, "error", err)
	return nil
}

func (h *HealthcheckService) ping(ctx context.Context, method, suffix, body string) error {
	if !h.cfg.Enabled {
		h.logger.Warn("Skipping healthchecks")
		return nil
	}

	url := strings.TrimRight(h.cfg.URL, "/") + "/" + h.cfg.ID + suffix

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", shared.ErrHealthcheck, err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrHealthcheck, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s returned status %d", shared.ErrHealthcheck, method, url, resp.StatusCode)
	}

	h.logger.Debug("Healthcheck ping sent", "method", method, "url", url)
	return nil
}
