// internal/integrations/nike/client.go
package nike

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	// ErrTransport wraps connection, timeout and cancellation failures.
	ErrTransport = errors.New("nike: transport error")
	// ErrStatus is returned for any non-200 response.
	ErrStatus = errors.New("nike: unexpected status")
)

type Config struct {
	BrowseURL         string        `json:"browse_url"` // https://api.nike.com/cic/browse/v2
	SiteURL           string        `json:"site_url"`   // replaces {countryLang} in product urls
	Country           string        `json:"country"`
	Language          string        `json:"language"`
	PageSize          int           `json:"page_size"`
	AnonymousID       string        `json:"anonymous_id"`
	ConsumerChannelID string        `json:"consumer_channel_id"`
	ConnectTimeout    time.Duration `json:"connect_timeout"`
	Timeout           time.Duration `json:"timeout"`
	RequestsPerSecond float64       `json:"requests_per_second"` // <= 0: unlimited
	UserAgent         string        `json:"user_agent"`
}

type Client struct {
	log     zerolog.Logger
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(log zerolog.Logger, cfg Config) *Client {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 24
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "catalog2dw/1.0"
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext

	return &Client{
		log:     log,
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout, Transport: transport},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Client) PageSize() int { return c.cfg.PageSize }

// SearchProducts fetches one page of the browse feed for a search term.
// An empty result (no products, or the products node missing) means the
// category has no more pages.
func (c *Client) SearchProducts(ctx context.Context, category string, anchor int) ([]Product, error) {
	reqURL := c.searchURL(category, anchor)
	c.log.Debug().Str("category", category).Int("anchor", anchor).Str("url", reqURL).Msg("browse request")

	resp, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out browseResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode browse page %s@%d: %w", category, anchor, err)
	}
	if out.Data.Products == nil {
		return nil, nil
	}
	return out.Data.Products.Products, nil
}

func (c *Client) searchURL(category string, anchor int) string {
	endpoint := fmt.Sprintf(
		"/product_feed/rollup_threads/v2?filter=marketplace(%s)&filter=language(%s)&filter=employeePrice(true)&searchTerms=%s&anchor=%d&consumerChannelId=%s&count=%d",
		c.cfg.Country, c.cfg.Language, url.QueryEscape(category), anchor, c.cfg.ConsumerChannelID, c.cfg.PageSize,
	)

	q := url.Values{}
	q.Set("queryid", "products")
	q.Set("anonymousId", c.cfg.AnonymousID)
	q.Set("country", c.cfg.Country)
	q.Set("endpoint", endpoint)
	q.Set("language", c.cfg.Language)
	q.Set("localizedRangeStr", "{lowestPrice}\u2014{highestPrice}")

	return c.cfg.BrowseURL + "?" + q.Encode()
}

// ProductURL resolves the storefront url of a product.
func (c *Client) ProductURL(p Product) string {
	return strings.ReplaceAll(p.URL, "{countryLang}", strings.TrimRight(c.cfg.SiteURL, "/"))
}

// ProductDetails reads the description and rating from a product page. Missing
// elements are not errors; they leave the field nil.
func (c *Client) ProductDetails(ctx context.Context, pageURL string) (Details, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return Details{}, err
	}
	defer resp.Body.Close()

	return parseDetails(resp.Body, resp.Header.Get("Content-Type"))
}

func (c *Client) get(ctx context.Context, reqURL string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %d for %s", ErrStatus, resp.StatusCode, reqURL)
	}
	return resp, nil
}
