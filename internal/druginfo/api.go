package druginfo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/pillbox/internal/models"
)

const (
	// DefaultBaseURL is the e-drug (e약은요) service root.
	DefaultBaseURL = "http://apis.data.go.kr/1471000/DrbEasyDrugInfoService"
	// DefaultTimeout bounds a single API call.
	DefaultTimeout = 10 * time.Second

	listOperation = "/getDrbEasyDrugList"
	pageSize      = "10"
	maxBodyBytes  = 4 << 20
)

// APIClient queries getDrbEasyDrugList and returns the first item.
type APIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures an APIClient.
type Option func(*APIClient)

// WithBaseURL overrides the service root.
func WithBaseURL(u string) Option {
	return func(c *APIClient) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *APIClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *APIClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *APIClient) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewAPIClient creates a client authenticated with apiKey.
func NewAPIClient(apiKey string, opts ...Option) *APIClient {
	c := &APIClient{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	Body struct {
		Items json.RawMessage `json:"items"`
	} `json:"body"`
}

type apiItem struct {
	ItemName            string `json:"itemName"`
	EntpName            string `json:"entpName"`
	EtcOtcName          string `json:"etcOtcName"`
	EtcOtcCode          string `json:"etcOtcCode"`
	ClassName           string `json:"className"`
	MainIngr            string `json:"mainIngr"`
	EfcyQesitm          string `json:"efcyQesitm"`
	UseMethodQesitm     string `json:"useMethodQesitm"`
	AtpnWarnQesitm      string `json:"atpnWarnQesitm"`
	DepositMethodQesitm string `json:"depositMethodQesitm"`
}

func (it apiItem) toDrugInfo() *models.DrugInfo {
	class := DefaultClassification
	for _, v := range []string{it.EtcOtcName, it.EtcOtcCode, it.ClassName} {
		if v != "" {
			class = v
			break
		}
	}
	return &models.DrugInfo{
		Name:           it.ItemName,
		Company:        it.EntpName,
		Classification: class,
		Ingredients:    it.MainIngr,
		Efficacy:       it.EfcyQesitm,
		Usage:          it.UseMethodQesitm,
		Caution:        it.AtpnWarnQesitm,
		Storage:        it.DepositMethodQesitm,
	}
}

// Lookup fetches the first item matching name. It returns ErrNotFound when
// the item list is empty.
func (c *APIClient) Lookup(ctx context.Context, name string) (*models.DrugInfo, error) {
	q := url.Values{}
	q.Set("serviceKey", c.apiKey)
	q.Set("itemName", name)
	q.Set("type", "json")
	q.Set("numOfRows", pageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+listOperation+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drug info request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("drug info request failed: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read drug info response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode drug info response: %w", err)
	}
	// An empty result set comes back as "" rather than [].
	var items []apiItem
	if len(parsed.Body.Items) > 0 && parsed.Body.Items[0] == '[' {
		if err := json.Unmarshal(parsed.Body.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to decode drug info items: %w", err)
		}
	}
	c.logger.Debug("drug info lookup",
		zap.String("name", name),
		zap.Int("items", len(items)),
		zap.Duration("took", time.Since(start)))
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0].toDrugInfo(), nil
}
