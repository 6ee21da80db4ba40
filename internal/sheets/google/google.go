package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"flussi/internal/cache"
	"flussi/internal/log"
	ports "flussi/internal/sheets"
)

const (
	defaultCacheSize = 64
	defaultCacheTTL  = 5 * time.Minute
)

// Options configures a Client.
type Options struct {
	SpreadsheetID string
	// CredentialsJSON takes precedence over CredentialsFile. When both are
	// empty, Application Default Credentials are used.
	CredentialsJSON string
	CredentialsFile string
	CacheTTL        time.Duration
	CacheSize       int
	Logger          *log.Logger
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	grids         cache.Cache[[][]string]
	logger        *log.Logger
}

// Ensure interface conformance
var _ ports.WorkbookReader = (*Client)(nil)

// New creates a read-only Sheets client for one spreadsheet.
func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := credentials(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, goption.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, opts), nil
}

// NewWithService wraps an existing service, e.g. one pointed at a test server.
func NewWithService(svc *gsheet.Service, opts Options) *Client {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		grids:         cache.NewLRUCache[[][]string](size, ttl),
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

// credentials resolves service account credentials from inline JSON, a file
// or the environment's default credentials.
func credentials(ctx context.Context, opts Options) (*google.Credentials, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		creds, err := google.FindDefaultCredentials(ctx, gsheet.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("missing service account credentials: %w", err)
		}
		return creds, nil
	}

	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, gsheet.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	return creds, nil
}

// SheetNames lists the spreadsheet tabs in display order.
func (c *Client) SheetNames(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read spreadsheet %s: %w", c.spreadsheetID, err)
	}
	names := make([]string, 0, len(resp.Sheets))
	for _, sh := range resp.Sheets {
		if sh.Properties != nil {
			names = append(names, sh.Properties.Title)
		}
	}
	return names, nil
}

// ReadSheet reads the whole used range of a tab with unformatted values.
// Grids are cached per sheet name for the configured TTL.
func (c *Client) ReadSheet(ctx context.Context, name string) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	return cache.GetOrLoad(c.grids, name, func() ([][]string, error) {
		start := time.Now()
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, quoteSheet(name)).
			ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
		if err != nil {
			var gerr *googleapi.Error
			if errors.As(err, &gerr) && (gerr.Code == http.StatusBadRequest || gerr.Code == http.StatusNotFound) {
				return nil, fmt.Errorf("%w: %q: %w", ports.ErrSheetNotFound, name, err)
			}
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		rows := toRows(resp.Values)
		c.logger.DebugContext(ctx, "sheet values fetched",
			log.NewFields().WithSheet(name, "").WithCount(len(rows)).
				With(log.FieldDuration, time.Since(start).Milliseconds()).ToSlice()...)
		return rows, nil
	})
}

// Invalidate drops the cached grid of a sheet.
func (c *Client) Invalidate(name string) {
	c.grids.Delete(name)
}

// quoteSheet turns a tab title into an A1 range covering the whole tab.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func toRows(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = toStrings(row)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellText(v)
	}
	return out
}

// cellText renders an unformatted cell value. Numbers come back from the API
// as float64 and are printed without exponent or grouping.
func cellText(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
