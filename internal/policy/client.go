package policy

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks Repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"claimflow/pkg/platform/sentinel"
)

// Repository is the remote policy store consumed by the claim workflow.
// FindByEmployee treats "no matching policy" as a normal empty result, not an
// error. PatchBenefitUsage is the single durable write in the system.
type Repository interface {
	FindByEmployee(ctx context.Context, employeeID string) (*Policy, error)
	PatchBenefitUsage(ctx context.Context, employeeID, benefitType string, newUsed float64) error
}

// Client talks to the personal-accidents API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 25 * time.Second},
		logger:  logger,
	}
}

// envelope covers the response shapes the API gateway is known to produce:
// the policy list nested under a body property (as a JSON string or an
// object), under a top-level personalaccidents key, or as a bare array.
type envelope struct {
	Body             json.RawMessage `json:"body"`
	PersonalAccident []Policy        `json:"personalaccidents"`
}

type bodyEnvelope struct {
	PersonalAccident []Policy `json:"personalaccidents"`
}

// Fetch retrieves every policy the repository serves.
func (c *Client) Fetch(ctx context.Context) ([]Policy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch policies: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch policies: %w: status %d", sentinel.ErrUnavailable, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read policy response: %w", err)
	}
	return decodePolicies(raw)
}

func decodePolicies(raw []byte) ([]Policy, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var policies []Policy
		if err := json.Unmarshal(trimmed, &policies); err != nil {
			return nil, fmt.Errorf("decode policy array: %w", err)
		}
		return policies, nil
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode policy envelope: %w", err)
	}
	if env.PersonalAccident != nil {
		return env.PersonalAccident, nil
	}
	if len(env.Body) == 0 {
		return nil, nil
	}

	body := bytes.TrimSpace(env.Body)
	// body may itself be a JSON-encoded string depending on gateway config.
	if len(body) > 0 && body[0] == '"' {
		var inner string
		if err := json.Unmarshal(body, &inner); err != nil {
			return nil, fmt.Errorf("decode body string: %w", err)
		}
		body = []byte(inner)
	}
	var wrapped bodyEnvelope
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode body envelope: %w", err)
	}
	return wrapped.PersonalAccident, nil
}

// FindByEmployee returns the policy whose employee_id matches, or (nil, nil)
// when no policy matches.
func (c *Client) FindByEmployee(ctx context.Context, employeeID string) (*Policy, error) {
	policies, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	for i := range policies {
		if policies[i].EmployeeID == employeeID {
			return &policies[i], nil
		}
	}
	return nil, nil
}

type patchRequest struct {
	Benefits []patchBenefit `json:"benefits"`
}

type patchBenefit struct {
	Type       string  `json:"type"`
	UsedAmount float64 `json:"usedAmount"`
}

type patchResponse struct {
	Message string `json:"message"`
}

// PatchBenefitUsage sets a benefit's usedAmount to newUsed. Success is HTTP
// 200 exactly; any other outcome surfaces the repository's reported reason.
func (c *Client) PatchBenefitUsage(ctx context.Context, employeeID, benefitType string, newUsed float64) error {
	payload, err := json.Marshal(patchRequest{
		Benefits: []patchBenefit{{Type: benefitType, UsedAmount: newUsed}},
	})
	if err != nil {
		return fmt.Errorf("encode patch request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/benefits-used-amount", c.baseURL, employeeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build patch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("patch benefit usage: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	var parsed patchResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&parsed); decodeErr != nil || parsed.Message == "" {
		c.logger.Warn("benefit patch rejected without reason",
			"employee_id", employeeID,
			"status", resp.StatusCode,
		)
		return fmt.Errorf("failed to update benefit amount in the database")
	}
	return fmt.Errorf("%s", parsed.Message)
}
