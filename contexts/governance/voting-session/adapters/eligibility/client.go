package eligibility

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"plenary/internal/shared/cpf"
)

// Client calls the external eligibility service. A denial and a transport
// failure are both final for one submission; the admission engine never
// retries on its own.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type eligibilityResponse struct {
	Status string `json:"status"`
}

// CheckEligible asks the upstream policy service whether the voter may
// participate. When no base URL is configured the client is permissive; the
// abstract contract is what matters here, not any particular policy.
func (c *Client) CheckEligible(ctx context.Context, voterID string) (bool, error) {
	if c.baseURL == "" {
		return true, nil
	}

	endpoint := c.baseURL + "/voters/" + url.PathEscape(strings.TrimSpace(voterID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build eligibility request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("eligibility check transport failure",
			"event", "voting_eligibility_transport_failed",
			"module", "governance/voting-session",
			"layer", "adapter",
			"voter_id", cpf.Mask(voterID),
			"error", err.Error(),
		)
		return false, fmt.Errorf("eligibility check: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body eligibilityResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return false, fmt.Errorf("decode eligibility response: %w", err)
		}
		return strings.EqualFold(strings.TrimSpace(body.Status), "able_to_vote"), nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("eligibility check: unexpected status %d", resp.StatusCode)
	}
}

// StaticChecker is a fixed-answer checker for tests and local wiring.
type StaticChecker struct {
	Allow bool
	Err   error
}

func (s StaticChecker) CheckEligible(_ context.Context, _ string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	return s.Allow, nil
}
