// Package search talks to an OpenSearch (or Elasticsearch) cluster through
// the opensearch-go client.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
)

// Config holds the connection settings.
type Config struct {
	URL        string
	Username   string
	Password   string
	Compress   bool
	Timeout    time.Duration
	MaxRetries int
	// Backoff returns the wait before retry n (0-indexed). Defaults to Backoff.
	Backoff func(attempt int) time.Duration
}

// Client communicates with the search cluster.
type Client struct {
	api        *opensearchapi.Client
	transport  *http.Transport
	maxRetries int
	backoff    func(int) time.Duration
	log        *slog.Logger
}

// NewClient builds a client. Requests answered with a throttling or server
// error status, and requests that fail in the network, are retried by the
// transport up to cfg.MaxRetries times.
func NewClient(cfg Config, log *slog.Logger) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff == nil {
		cfg.Backoff = Backoff
	}
	if log == nil {
		log = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = cfg.Timeout

	backoff := cfg.Backoff
	api, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses:           []string{strings.TrimRight(cfg.URL, "/")},
			Username:            cfg.Username,
			Password:            cfg.Password,
			Transport:           transport,
			CompressRequestBody: cfg.Compress,
			RetryOnStatus:       []int{http.StatusTooManyRequests, 500, 502, 503, 504},
			DisableRetry:        cfg.MaxRetries == 0,
			MaxRetries:          cfg.MaxRetries,
			// the transport counts attempts from 1
			RetryBackoff: func(attempt int) time.Duration { return backoff(max(attempt-1, 0)) },
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}

	return &Client{
		api:        api,
		transport:  transport,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		log:        log,
	}, nil
}

// BulkItem is one document to index. An empty ID lets the cluster assign one.
type BulkItem struct {
	Index  string
	ID     string
	Source any
}

// ItemFailure describes one document the cluster did not accept.
type ItemFailure struct {
	Index  string `json:"index"`
	ID     string `json:"id"`
	Status int    `json:"status"`
	Reason string `json:"reason"`
}

// BulkResult is the per-item outcome of a bulk submission.
type BulkResult struct {
	Succeeded int           `json:"succeeded"`
	Failed    []ItemFailure `json:"failed"`
}

// Exists reports whether a document with id exists in index.
func (c *Client) Exists(ctx context.Context, index, id string) (bool, error) {
	res, err := c.api.Document.Exists(ctx, opensearchapi.DocumentExistsReq{Index: index, DocumentID: id})
	return found("exists "+index+"/"+id, res, err)
}

// IndexExists reports whether index exists.
func (c *Client) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := c.api.Indices.Exists(ctx, opensearchapi.IndicesExistsReq{Indices: []string{index}})
	return found("index exists "+index, res, err)
}

// found maps the answer to a HEAD probe: 200 is present, 404 absent.
func found(op string, res *opensearch.Response, err error) (bool, error) {
	if res != nil {
		if res.Body != nil {
			res.Body.Close()
		}
		switch res.StatusCode {
		case http.StatusOK:
			return true, nil
		case http.StatusNotFound:
			return false, nil
		}
	}
	return false, classify(op, res, err)
}

// CreateIndex creates index with the given settings and mappings. An index
// created concurrently by someone else counts as success.
func (c *Client) CreateIndex(ctx context.Context, index string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal index body: %w", err)
	}
	resp, err := c.api.Indices.Create(ctx, opensearchapi.IndicesCreateReq{Index: index, Body: bytes.NewReader(payload)})
	if err == nil {
		return nil
	}
	var res *opensearch.Response
	if resp != nil {
		res = resp.Inspect().Response
	}
	if res != nil && res.StatusCode == http.StatusBadRequest && strings.Contains(err.Error(), "resource_already_exists_exception") {
		return nil
	}
	return classify("create index "+index, res, err)
}

// Bulk submits items in one _bulk request. Items rejected with a transient
// status are resubmitted, up to the configured retry count; everything else
// is reported per item. A non-nil error means the request itself failed and
// every unsettled item is listed in Failed.
func (c *Client) Bulk(ctx context.Context, items []BulkItem) (BulkResult, error) {
	var result BulkResult
	if len(items) == 0 {
		return result, nil
	}

	pending := make([]int, len(items))
	for i := range pending {
		pending[i] = i
	}

	for attempt := 0; ; attempt++ {
		statuses, err := c.sendBulk(ctx, items, pending)
		if err != nil {
			for _, i := range pending {
				result.Failed = append(result.Failed, ItemFailure{Index: items[i].Index, ID: items[i].ID, Reason: err.Error()})
			}
			return result, err
		}

		var retry []int
		for k, st := range statuses {
			i := pending[k]
			switch {
			case st.Status >= 200 && st.Status < 300:
				result.Succeeded++
			case transientStatus(st.Status) && attempt < c.maxRetries:
				retry = append(retry, i)
			default:
				id := items[i].ID
				if id == "" {
					id = st.ID
				}
				result.Failed = append(result.Failed, ItemFailure{Index: items[i].Index, ID: id, Status: st.Status, Reason: itemReason(st)})
			}
		}
		if len(retry) == 0 {
			return result, nil
		}

		c.log.Warn("bulk items throttled, retrying", "attempt", attempt+1, "items", len(retry))
		if err := c.wait(ctx, attempt); err != nil {
			for _, i := range retry {
				result.Failed = append(result.Failed, ItemFailure{Index: items[i].Index, ID: items[i].ID, Reason: err.Error()})
			}
			return result, err
		}
		pending = retry
	}
}

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id,omitempty"`
}

// EncodeBulk renders the NDJSON body for the selected items.
func EncodeBulk(items []BulkItem, selected []int) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, i := range selected {
		it := items[i]
		if err := enc.Encode(map[string]bulkMeta{"index": {Index: it.Index, ID: it.ID}}); err != nil {
			return nil, fmt.Errorf("encode action %d: %w", i, err)
		}
		if err := enc.Encode(it.Source); err != nil {
			return nil, fmt.Errorf("encode document %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

func (c *Client) sendBulk(ctx context.Context, items []BulkItem, selected []int) ([]opensearchapi.BulkRespItem, error) {
	body, err := EncodeBulk(items, selected)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.Bulk(ctx, opensearchapi.BulkReq{Body: bytes.NewReader(body)})
	if err != nil {
		var res *opensearch.Response
		if resp != nil {
			res = resp.Inspect().Response
		}
		return nil, classify("bulk", res, err)
	}
	if len(resp.Items) != len(selected) {
		return nil, &PermanentError{Op: "bulk", StatusCode: http.StatusOK,
			Err: fmt.Errorf("response has %d items for %d actions", len(resp.Items), len(selected))}
	}

	statuses := make([]opensearchapi.BulkRespItem, len(resp.Items))
	for k, item := range resp.Items {
		for _, st := range item {
			statuses[k] = st
		}
	}
	return statuses, nil
}

func itemReason(st opensearchapi.BulkRespItem) string {
	if st.Error == nil {
		return http.StatusText(st.Status)
	}
	if st.Error.Type == "" {
		return st.Error.Reason
	}
	return st.Error.Type + ": " + st.Error.Reason
}

// classify turns a failed call into a TransientError or PermanentError. A
// nil response means the request never got an answer.
func classify(op string, res *opensearch.Response, err error) error {
	if res == nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", op, err)
		}
		return &TransientError{Op: op, Err: err}
	}
	if err == nil {
		err = errors.New(res.Status())
	}
	return statusError(op, res.StatusCode, err)
}

func (c *Client) wait(ctx context.Context, attempt int) error {
	t := time.NewTimer(c.backoff(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}
