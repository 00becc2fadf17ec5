package analysisclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"cryptoSignalDash/internal/domain"
	"cryptoSignalDash/internal/ports"
)

// percentPattern extracts the first signed percentage embedded in free text,
// e.g. "+2.5% over 24h" -> "+2.5". Fallback only; the typed field wins.
var percentPattern = regexp.MustCompile(`[-+]?\d+\.?\d*`)

// Client implements the ports.AnalysisClient interface against the remote
// analysis webhook. Requests are rate limited, retried with exponential
// backoff, and guarded by a circuit breaker so a dead webhook fails fast.
type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	maxElapsed time.Duration
	logger     ports.Logger
}

// Config holds configuration for the analysis webhook client.
type Config struct {
	URL            string
	Timeout        time.Duration
	MaxElapsed     time.Duration // Upper bound for retry backoff
	RequestsPerSec int
	Logger         ports.Logger
}

// New creates a new analysis webhook client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for analysis client")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is required for analysis client")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxElapsed <= 0 {
		cfg.MaxElapsed = 30 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}

	logger := cfg.Logger
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "analysis-webhook",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "Analysis webhook breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), cfg.RequestsPerSec),
		breaker:    breaker,
		maxElapsed: cfg.MaxElapsed,
		logger:     logger,
	}, nil
}

// RequestAnalysis posts the selected asset to the webhook and normalizes the
// response. Missing fields are defaulted, never fatal; only transport-level
// failures return an error.
func (c *Client) RequestAnalysis(ctx context.Context, asset string) (*domain.AnalysisReport, error) {
	op := "RequestAnalysis"

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s rate limit wait: %w: %w", op, ports.ErrContextCanceled, err)
	}

	body, err := json.Marshal(map[string]string{"asset": asset})
	if err != nil {
		return nil, fmt.Errorf("%s failed to encode request: %w", op, err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.doRequest(ctx, body)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%s: %w: %w", op, ports.ErrProviderUnavailable, err)
		}
		return nil, fmt.Errorf("%s: %w: %w", op, ports.ErrAnalysisFailed, err)
	}

	report := normalizeResponse(result.(*webhookResponse), asset)
	c.logger.Debug(ctx, op+" succeeded", map[string]interface{}{
		"asset":           asset,
		"signal":          report.Signal,
		"projectedChange": report.ProjectedChangePercent,
	})
	return report, nil
}

// doRequest performs the POST with retries and decodes the raw payload.
func (c *Client) doRequest(ctx context.Context, body []byte) (*webhookResponse, error) {
	var decoded *webhookResponse

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}

		raw := &webhookResponse{}
		if err := json.NewDecoder(resp.Body).Decode(raw); err != nil {
			// A garbled body is unlikely to improve on retry
			return backoff.Permanent(fmt.Errorf("%w: %w", ports.ErrMalformedResponse, err))
		}
		decoded = raw
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = c.maxElapsed

	if err := backoff.Retry(operation, backoff.WithContext(expBackoff, ctx)); err != nil {
		return nil, err
	}
	return decoded, nil
}

// webhookResponse mirrors the loosely-typed webhook payload. Numeric fields
// may arrive as JSON numbers or as numeric strings.
type webhookResponse struct {
	Signal                 string     `json:"signal"`
	CurrentPrice           flexFloat  `json:"currentPrice"`
	Movement24h            flexFloat  `json:"movement24h"`
	ProjectedChangePercent *flexFloat `json:"projectedChangePercent"`
	ProjectedMovement      string     `json:"projectedMovement"`
	SentimentScore         flexInt    `json:"sentimentScore"`
	RecentNews             flexInt    `json:"recentNews"`
	Analysis               string     `json:"analysis"`
}

// normalizeResponse applies neutral defaults and resolves the projected
// percentage: the typed field wins, the embedded text value is the fallback,
// zero the last resort.
func normalizeResponse(raw *webhookResponse, asset string) *domain.AnalysisReport {
	projected := 0.0
	if raw.ProjectedChangePercent != nil {
		projected = float64(*raw.ProjectedChangePercent)
	} else {
		projected = extractPercent(raw.ProjectedMovement)
	}

	return &domain.AnalysisReport{
		Asset:                  asset,
		Signal:                 raw.Signal,
		CurrentPrice:           float64(raw.CurrentPrice),
		Movement24h:            float64(raw.Movement24h),
		ProjectedChangePercent: projected,
		ProjectedMovement:      raw.ProjectedMovement,
		SentimentScore:         int(raw.SentimentScore),
		RecentNews:             int(raw.RecentNews),
		AnalysisText:           raw.Analysis,
	}
}

// extractPercent pulls the first signed number out of display text.
// Returns 0 when nothing parses.
func extractPercent(text string) float64 {
	match := percentPattern.FindString(text)
	if match == "" {
		return 0
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return value
}

// --- Tolerant JSON scalar types ---

// flexFloat decodes a float from a JSON number or a numeric string.
// Missing, null, or unparseable values decode to 0.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(value)
	return nil
}

// flexInt decodes an int from a JSON number or a numeric string.
// Missing, null, or unparseable values decode to 0.
type flexInt int

func (i *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	value, err := strconv.Atoi(s)
	if err != nil {
		// Tolerate "3.0" style payloads
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			*i = 0
			return nil
		}
		*i = flexInt(int(f))
		return nil
	}
	*i = flexInt(value)
	return nil
}
