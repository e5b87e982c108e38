package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/slidefetch/slidefetch/internal/httpc"
	"github.com/slidefetch/slidefetch/internal/task"
)

// DefaultPageSize is how many hits a single files query asks for.
const DefaultPageSize = 500

// Options configures a catalog API client.
type Options struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string

	// HTTP tunes the underlying transport and retry behavior.
	HTTP httpc.Options

	// RequestsPerSecond throttles API calls. Zero means no throttle.
	RequestsPerSecond float64
}

// FileEntry is one catalog hit from the files endpoint.
type FileEntry struct {
	ID   string `json:"file_id"`
	Name string `json:"file_name"`
	Size int64  `json:"file_size"`
}

// Query selects catalog files by project and data type.
type Query struct {
	Project  string
	DataType string

	// Max caps the number of entries returned. Zero means all.
	Max int

	// PageSize overrides DefaultPageSize when positive.
	PageSize int
}

// Client queries a catalog API and downloads its files.
type Client struct {
	base    string
	http    *httpc.Client
	limiter *rate.Limiter
}

// NewClient creates a catalog client for the given API root.
func NewClient(opts Options) *Client {
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		http:    httpc.NewClient(opts.HTTP),
		limiter: limiter,
	}
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.base }

// DataURL returns the download URL for a single file ID.
func (c *Client) DataURL(id string) string {
	return c.base + "/data/" + id
}

// Files runs the query against the files endpoint, following
// pagination until the result set or q.Max is exhausted.
func (c *Client) Files(ctx context.Context, q Query) ([]FileEntry, error) {
	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	filters, err := buildFilters(q)
	if err != nil {
		return nil, err
	}

	var entries []FileEntry
	from := 0
	for {
		size := pageSize
		if q.Max > 0 && q.Max-len(entries) < size {
			size = q.Max - len(entries)
		}

		page, total, err := c.filesPage(ctx, filters, from, size)
		if err != nil {
			return nil, err
		}
		entries = append(entries, page...)

		from += len(page)
		if len(page) == 0 || from >= total {
			break
		}
		if q.Max > 0 && len(entries) >= q.Max {
			break
		}
	}
	return entries, nil
}

func (c *Client) filesPage(ctx context.Context, filters string, from, size int) ([]FileEntry, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}

	params := url.Values{
		"filters": {filters},
		"fields":  {"file_id,file_name,file_size"},
		"format":  {"JSON"},
		"size":    {strconv.Itoa(size)},
		"from":    {strconv.Itoa(from)},
	}

	resp, err := c.http.Get(ctx, c.base+"/files?"+params.Encode())
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: query files: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: read response: %w", err)
	}

	var decoded filesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, 0, fmt.Errorf("catalog: decode response: %w", err)
	}
	return decoded.Data.Hits, decoded.Data.Pagination.Total, nil
}

type filesResponse struct {
	Data struct {
		Hits       []FileEntry `json:"hits"`
		Pagination struct {
			Total int `json:"total"`
			Count int `json:"count"`
			From  int `json:"from"`
		} `json:"pagination"`
	} `json:"data"`
}

// buildFilters renders the project and data-type constraints in the
// API's nested filter syntax.
func buildFilters(q Query) (string, error) {
	type op struct {
		Op      string `json:"op"`
		Content any    `json:"content"`
	}
	type field struct {
		Field string   `json:"field"`
		Value []string `json:"value"`
	}

	var clauses []op
	if q.Project != "" {
		clauses = append(clauses, op{Op: "in", Content: field{
			Field: "cases.project.project_id",
			Value: []string{q.Project},
		}})
	}
	if q.DataType != "" {
		clauses = append(clauses, op{Op: "in", Content: field{
			Field: "files.data_type",
			Value: []string{q.DataType},
		}})
	}
	if len(clauses) == 0 {
		return "", fmt.Errorf("catalog: query needs a project or data type")
	}

	out, err := json.Marshal(op{Op: "and", Content: clauses})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Tasks converts catalog entries into download tasks. The task ID is
// the catalog file ID so batch fetches can recover it; the destination
// is the cataloged file name.
func (c *Client) Tasks(entries []FileEntry) []task.Task {
	tasks := make([]task.Task, 0, len(entries))
	for _, e := range entries {
		dest := e.Name
		if dest == "" {
			dest = e.ID
		}
		tasks = append(tasks, task.Task{
			ID:   e.ID,
			Ref:  c.DataURL(e.ID),
			Dest: dest,
			Size: e.Size,
		})
	}
	return tasks
}

// TotalSize sums the cataloged sizes of the entries.
func TotalSize(entries []FileEntry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Size
	}
	return total
}
