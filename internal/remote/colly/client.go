// Package collyremote implements the remote directory lister and file
// fetcher using the Colly collector.
package collyremote

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/laborsync/internal/pipeline"
)

// fallbackUserAgent is sent on a single retry after the directory
// listing answers 403; some government hosts reject unknown bots.
const fallbackUserAgent = "Mozilla/5.0 (compatible; DataResearchBot/2.0)"

const acceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// Config controls collector behavior.
type Config struct {
	// ContactEmail identifies the operator in outbound requests. It is
	// embedded in the User-Agent and sent as the From header.
	ContactEmail string
	// Marker filters directory links; only hrefs containing it are kept.
	Marker  string
	Timeout time.Duration
}

// Client implements pipeline.DirectoryLister and pipeline.Fetcher.
type Client struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Client.
func New(cfg Config) *Client {
	if cfg.ContactEmail == "" {
		cfg.ContactEmail = "data@example.com"
	}
	if cfg.Marker == "" {
		cfg.Marker = "pr."
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	// colly v2.1.0's Async option ignores its argument and always enables
	// async mode; omit it to keep the collector synchronous (the default).
	c := colly.NewCollector()
	c.WithTransport(newHTTPTransport())

	return &Client{
		cfg:           cfg,
		baseCollector: c,
	}
}

// ListItems fetches the directory listing at baseURL and returns every
// hyperlink whose target contains the configured marker, excluding
// parent/self references. A 403 response is retried once with an
// alternate User-Agent before giving up.
func (c *Client) ListItems(ctx context.Context, baseURL string) ([]pipeline.RemoteItem, error) {
	items, status, err := c.collectLinks(ctx, baseURL, c.userAgent())
	if err != nil && status == http.StatusForbidden {
		items, _, err = c.collectLinks(ctx, baseURL, fallbackUserAgent)
	}
	if err != nil {
		return nil, fmt.Errorf("list directory %s: %w", baseURL, err)
	}
	return items, nil
}

// Fetch executes a single HTTP GET and returns the response body.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	return c.fetch(ctx, url, c.userAgent(), acceptHTML)
}

// APIFetcher returns a Fetcher that presents the JSON API identity
// instead of the crawler identity.
func (c *Client) APIFetcher() pipeline.Fetcher {
	return &apiFetcher{client: c}
}

type apiFetcher struct {
	client *Client
}

func (f *apiFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	userAgent := fmt.Sprintf("DataBot (%s)", f.client.cfg.ContactEmail)
	return f.client.fetch(ctx, url, userAgent, "application/json")
}

func (c *Client) fetch(ctx context.Context, url, userAgent, accept string) ([]byte, error) {
	collector := c.newCollector(userAgent, accept)

	var body []byte
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})

	if err := c.visit(ctx, collector, url); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	return body, nil
}

func (c *Client) collectLinks(ctx context.Context, baseURL, userAgent string) ([]pipeline.RemoteItem, int, error) {
	collector := c.newCollector(userAgent, acceptHTML)

	var (
		items  []pipeline.RemoteItem
		status int
	)
	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		href := e.Attr("href")
		if !c.keepLink(href) {
			return
		}
		items = append(items, pipeline.RemoteItem{
			Name: href,
			URL:  e.Request.AbsoluteURL(href),
		})
	})
	collector.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := c.visit(ctx, collector, baseURL); err != nil {
		return nil, status, err
	}
	return items, status, nil
}

// keepLink applies the marker filter and drops parent/self references.
func (c *Client) keepLink(href string) bool {
	if href == "" || href == "../" || href == "/" {
		return false
	}
	return strings.Contains(href, c.cfg.Marker)
}

func (c *Client) newCollector(userAgent, accept string) *colly.Collector {
	collector := c.baseCollector.Clone()
	collector.UserAgent = userAgent
	collector.IgnoreRobotsTxt = true
	// Clones share the visited-URL store; the same listing URL is
	// revisited on the 403 retry and on every sync run.
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(c.cfg.Timeout)
	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("From", c.cfg.ContactEmail)
		r.Headers.Set("Accept", accept)
	})
	return collector
}

func (c *Client) visit(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (c *Client) userAgent() string {
	return fmt.Sprintf("DataResearchBot/1.0 (Contact: %s)", c.cfg.ContactEmail)
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		IdleConnTimeout:       60 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
