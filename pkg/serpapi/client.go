// Package serpapi is a client for the SerpApi Google Maps and Google web
// search engines.
package serpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/resilience"
)

const (
	defaultBaseURL  = "https://serpapi.com"
	defaultLanguage = "es"

	// noResultsMarker appears in the error field of an empty but successful search.
	noResultsMarker = "hasn't returned any results"

	// PageSize is the number of local results Google Maps returns per page.
	PageSize = 20
)

// ErrTokenAndOffset is returned when a maps request carries both a page token
// and a start offset.
var ErrTokenAndOffset = eris.New("serpapi: page token and start offset are mutually exclusive")

// Client performs SerpApi searches.
type Client interface {
	MapsSearch(ctx context.Context, req MapsRequest) (*MapsResponse, error)
	WebSearch(ctx context.Context, query string, num int) (*WebResponse, error)
}

// MapsRequest is a google_maps engine query. PageToken and Start are
// mutually exclusive.
type MapsRequest struct {
	Query     string
	PageToken string
	Start     int
	Language  string
}

// MapsResponse is the subset of the google_maps payload the engine uses.
type MapsResponse struct {
	LocalResults []model.Listing `json:"local_results"`
	Pagination   Pagination      `json:"serpapi_pagination"`
}

// Pagination carries the provider's continuation token, if any.
type Pagination struct {
	Next          string `json:"next"`
	NextPageToken string `json:"next_page_token"`
}

// WebResponse is the subset of the google engine payload used for enrichment.
type WebResponse struct {
	OrganicResults []OrganicResult `json:"organic_results"`
	Ads            []Ad            `json:"ads"`
}

// OrganicResult is one organic web result.
type OrganicResult struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
}

// Ad is one paid result.
type Ad struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry overrides the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

// WithRateLimit caps outbound requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *httpClient) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithCircuitBreaker configures the breaker guarding the provider.
func WithCircuitBreaker(cfg resilience.BreakerConfig) Option {
	return func(c *httpClient) {
		if cfg.Name == "" {
			cfg.Name = "serpapi"
		}
		c.breaker = resilience.NewBreaker(cfg)
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   resilience.RetryConfig
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewClient creates a SerpApi client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry:   resilience.DefaultRetryConfig(),
		breaker: resilience.NewBreaker(resilience.BreakerConfig{Name: "serpapi"}),
	}
	for _, o := range opts {
		o(c)
	}
	c.retry.OnRetry = resilience.RetryLogger("serpapi", "search")
	return c
}

func (c *httpClient) MapsSearch(ctx context.Context, req MapsRequest) (*MapsResponse, error) {
	if req.PageToken != "" && req.Start > 0 {
		return nil, ErrTokenAndOffset
	}

	lang := req.Language
	if lang == "" {
		lang = defaultLanguage
	}
	params := url.Values{
		"engine": {"google_maps"},
		"type":   {"search"},
		"q":      {req.Query},
		"hl":     {lang},
	}
	if req.PageToken != "" {
		params.Set("next_page_token", req.PageToken)
	} else if req.Start > 0 {
		params.Set("start", strconv.Itoa(req.Start))
	}

	var resp MapsResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, eris.Wrap(err, "serpapi: maps search")
	}
	return &resp, nil
}

func (c *httpClient) WebSearch(ctx context.Context, query string, num int) (*WebResponse, error) {
	params := url.Values{
		"engine": {"google"},
		"q":      {query},
	}
	if num > 0 {
		params.Set("num", strconv.Itoa(num))
	}

	var resp WebResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, eris.Wrap(err, "serpapi: web search")
	}
	return &resp, nil
}

// errorBody is the payload SerpApi returns alongside a failed search.
type errorBody struct {
	Error string `json:"error"`
}

func (c *httpClient) get(ctx context.Context, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)
	params.Set("output", "json")
	endpoint := c.baseURL + "/search.json?" + params.Encode()

	body, err := resilience.Call(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
			return c.do(ctx, endpoint)
		})
	})
	if err != nil {
		return err
	}

	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error != "" && !strings.Contains(eb.Error, noResultsMarker) {
		return eris.Errorf("provider error: %s", eb.Error)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "unmarshal response")
	}
	return nil
}

func (c *httpClient) do(ctx context.Context, endpoint string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limit wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("unexpected status %d: %s", resp.StatusCode, errorMessage(b))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}
	return b, nil
}

func errorMessage(body []byte) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
		return eb.Error
	}
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}
