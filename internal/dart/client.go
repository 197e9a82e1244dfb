// Package dart fetches filings from the Open DART disclosure service.
package dart

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// maxDocumentBytes bounds a downloaded document archive.
const maxDocumentBytes = 200 << 20

// Status codes returned in the body of Open DART responses.
const (
	statusOK     = "000"
	statusNoData = "013"
)

// ErrNoXML is returned when a document archive holds no .xml entry.
var ErrNoXML = errors.New("archive contains no xml document")

// StatusError is a non-OK HTTP status from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// APIError is an error status reported inside a 200 response body.
type APIError struct {
	Status  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dart status %s: %s", e.Status, e.Message)
}

// Client communicates with the Open DART API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Report is one entry of the disclosure list.
type Report struct {
	CorpCode   string `json:"corp_code"`
	CorpName   string `json:"corp_name"`
	StockCode  string `json:"stock_code"`
	ReportName string `json:"report_nm"`
	ReceiptNo  string `json:"rcept_no"`
	FilerName  string `json:"flr_nm"`
	ReceiptDt  string `json:"rcept_dt"`
	Remark     string `json:"rm"`
}

type listResponse struct {
	Status     string   `json:"status"`
	Message    string   `json:"message"`
	PageNo     int      `json:"page_no"`
	TotalPage  int      `json:"total_page"`
	TotalCount int      `json:"total_count"`
	List       []Report `json:"list"`
}

// ListOptions narrows a report listing.
type ListOptions struct {
	Begin    string // yyyyMMdd
	End      string // yyyyMMdd
	Type     string // pblntf_ty, e.g. "A" for periodic reports
	PageSize int
}

// ListReports returns every report filed by the issuer with the given corp
// code, following pagination.
func (c *Client) ListReports(ctx context.Context, corpCode string, opts ListOptions) ([]Report, error) {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	var out []Report
	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("crtfc_key", c.apiKey)
		q.Set("corp_code", corpCode)
		q.Set("page_no", fmt.Sprint(page))
		q.Set("page_count", fmt.Sprint(opts.PageSize))
		if opts.Begin != "" {
			q.Set("bgn_de", opts.Begin)
		}
		if opts.End != "" {
			q.Set("end_de", opts.End)
		}
		if opts.Type != "" {
			q.Set("pblntf_ty", opts.Type)
		}

		body, err := c.get(ctx, "/list.json", q, 10<<20)
		if err != nil {
			return nil, fmt.Errorf("list reports %s: %w", corpCode, err)
		}
		var resp listResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decode report list: %w", err)
		}
		switch resp.Status {
		case statusOK:
		case statusNoData:
			return out, nil
		default:
			return nil, &APIError{Status: resp.Status, Message: resp.Message}
		}

		out = append(out, resp.List...)
		if page >= resp.TotalPage || len(resp.List) == 0 {
			return out, nil
		}
	}
}

// Document downloads the filing with the given receipt number and returns
// the name and bytes of its main XML document.
func (c *Client) Document(ctx context.Context, receiptNo string) (string, []byte, error) {
	q := url.Values{}
	q.Set("crtfc_key", c.apiKey)
	q.Set("rcept_no", receiptNo)

	body, err := c.get(ctx, "/document.xml", q, maxDocumentBytes)
	if err != nil {
		return "", nil, fmt.Errorf("download document %s: %w", receiptNo, err)
	}
	name, data, err := ExtractXML(body)
	if err != nil {
		return "", nil, fmt.Errorf("document %s: %w", receiptNo, err)
	}
	return name, data, nil
}

// ExtractXML returns the main .xml entry of a filing archive. The main
// document is named after the receipt number and attachments carry a suffix,
// so the shortest name wins; ties keep archive order. A body that is not a
// zip is reported with its leading bytes, since the service answers errors
// with a JSON or XML status document.
func ExtractXML(archive []byte) (string, []byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		head := archive
		if len(head) > 200 {
			head = head[:200]
		}
		return "", nil, fmt.Errorf("not a zip archive (%w): %s", err, head)
	}

	var first *zip.File
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".xml") {
			continue
		}
		if first == nil || len(path.Base(f.Name)) < len(path.Base(first.Name)) {
			first = f
		}
	}
	if first == nil {
		return "", nil, ErrNoXML
	}

	rc, err := first.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open %s: %w", first.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxDocumentBytes))
	if err != nil {
		return "", nil, fmt.Errorf("read %s: %w", first.Name, err)
	}
	return path.Base(first.Name), data, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return io.ReadAll(io.LimitReader(resp.Body, limit))
}
