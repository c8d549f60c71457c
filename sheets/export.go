package sheets

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/warp/convocation-engine/generic"
)

// DefaultExportURL is the Google Sheets xlsx export endpoint; %s is the sheet id.
const DefaultExportURL = "https://docs.google.com/spreadsheets/d/%s/export?format=xlsx"

const (
	defaultExportTimeout = 30 * time.Second
	defaultMaxBodySize   = 32 << 20
	maxRedirects         = 5
)

var sheetIDPattern = regexp.MustCompile(`/d/(.*?)(/|$)`)

// ExtractSheetID accepts either a bare sheet id or a full sheet URL.
//
//	https://docs.google.com/spreadsheets/d/1A2b3C/edit#gid=0 -> 1A2b3C
func ExtractSheetID(s string) string {
	s = strings.TrimSpace(s)
	if m := sheetIDPattern.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// ExportSource downloads a sheet through the public xlsx export and reads it
// as a workbook. The sheet must be published or shared by link.
type ExportSource struct {
	SheetID     string
	URLTemplate string // defaults to DefaultExportURL
	Timeout     time.Duration
	MaxBodySize int
	Client      *fasthttp.Client // built from Timeout/MaxBodySize when nil
}

// URL returns the export URL for the configured sheet.
func (s *ExportSource) URL() string {
	tmpl := s.URLTemplate
	if tmpl == "" {
		tmpl = DefaultExportURL
	}
	return fmt.Sprintf(tmpl, ExtractSheetID(s.SheetID))
}

// LoadTables implements generic.TableSource.
func (s *ExportSource) LoadTables(ctx context.Context) (generic.SheetData, error) {
	if ExtractSheetID(s.SheetID) == "" {
		return generic.SheetData{}, fmt.Errorf("%w: sheet id is required", generic.ErrInvalidInput)
	}
	body, err := s.download(ctx)
	if err != nil {
		return generic.SheetData{}, err
	}
	return ReadWorkbook(bytes.NewReader(body))
}

func (s *ExportSource) download(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	url := s.URL()

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	if err := s.client().DoRedirects(req, resp, maxRedirects); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", generic.ErrSourceUnavailable, url, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &generic.FetchError{URL: url, Status: resp.StatusCode()}
	}
	// The response body is recycled on release.
	return append([]byte(nil), resp.Body()...), nil
}

func (s *ExportSource) client() *fasthttp.Client {
	if s.Client != nil {
		return s.Client
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = defaultExportTimeout
	}
	maxBody := s.MaxBodySize
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	s.Client = &fasthttp.Client{
		Name:                "convocacao",
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
		MaxResponseBodySize: maxBody,
	}
	return s.Client
}
