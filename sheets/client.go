// Package sheets downloads codebook sheets as CSV and parses them into
// codebook rows.
//
// Sheets are published as tabs of one Google spreadsheet. Each tab is
// addressed by its gid and exported through the spreadsheet CSV export
// endpoint. Downloaded files are stored as <dir>/<name>.csv so that later
// runs can compile offline from the same directory.
package sheets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gofhir/codebook/pkg/logger"
)

const (
	// DefaultBaseURL is the Google Sheets host.
	DefaultBaseURL = "https://docs.google.com"

	// DefaultTimeout for HTTP requests.
	DefaultTimeout = 30 * time.Second

	// DefaultConcurrency bounds parallel downloads.
	DefaultConcurrency = 4

	// Extension of stored sheets.
	Extension = ".csv"
)

// Sheet names one tab of the spreadsheet.
type Sheet struct {
	Name string `mapstructure:"name" json:"name"`
	GID  string `mapstructure:"gid" json:"gid"`
}

// Client downloads sheets of one spreadsheet.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	spreadsheetID string
	concurrency   int
	log           zerolog.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom host, mostly for tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithConcurrency sets the number of parallel downloads.
func WithConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a client for the spreadsheet spreadsheetID.
func NewClient(spreadsheetID string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL:       DefaultBaseURL,
		spreadsheetID: spreadsheetID,
		concurrency:   DefaultConcurrency,
		log:           logger.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ExportURL returns the CSV export URL of the tab gid.
func (c *Client) ExportURL(gid string) string {
	q := url.Values{}
	q.Set("format", "csv")
	q.Set("gid", gid)
	return fmt.Sprintf("%s/spreadsheets/d/%s/export?%s", c.baseURL, url.PathEscape(c.spreadsheetID), q.Encode())
}

// Fetch downloads one sheet.
func (c *Client) Fetch(ctx context.Context, sheet Sheet) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ExportURL(sheet.GID), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet %s: %w", sheet.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch sheet %s (gid %s): status %d", sheet.Name, sheet.GID, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet.Name, err)
	}
	return data, nil
}

// FetchAll downloads every sheet in parallel and stores it in dir.
// The first failure cancels the remaining downloads.
func (c *Client) FetchAll(ctx context.Context, dir string, sheets ...Sheet) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sheet directory: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, sheet := range sheets {
		g.Go(func() error {
			start := time.Now()
			data, err := c.Fetch(gctx, sheet)
			if err != nil {
				return err
			}
			path := filepath.Join(dir, sheet.Name+Extension)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to store sheet %s: %w", sheet.Name, err)
			}
			c.log.Debug().
				Str("sheet", sheet.Name).
				Int("bytes", len(data)).
				Dur("took", time.Since(start)).
				Msg("sheet downloaded")
			return nil
		})
	}
	return g.Wait()
}
