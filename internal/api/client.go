// Package api is a thin client for the Lumina backend REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/go-playground/validator.v9"

	"github.com/pders01/lumina/internal/config"
	"github.com/pders01/lumina/internal/debuglog"
)

const maxErrorBody = 64 << 10

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status    int
	Message   string
	RequestID string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}

type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
	validate  *validator.Validate

	mu       sync.RWMutex
	token    string
	language string
}

func NewClient(cfg config.APIConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", cfg.BaseURL)
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		validate:  validator.New(),
		token:     cfg.Token,
	}, nil
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) SetLanguage(lang string) {
	c.mu.Lock()
	c.language = lang
	c.mu.Unlock()
}

func (c *Client) BaseURL() string { return c.baseURL.String() }

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.language != "" {
		req.Header.Set("Accept-Language", c.language)
	}
	c.mu.RUnlock()

	log := debuglog.WithFields(map[string]any{"request_id": requestID, "method": method, "path": path})
	log.Debugf("api request")

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warnf("api request failed: %v", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeError(resp)
		apiErr.RequestID = requestID
		log.Warnf("api error: %v", apiErr)
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// decodeError reads a {detail|message} body. detail may be a string or a
// structured validation list, in which case it is passed through as text.
func decodeError(resp *http.Response) *Error {
	apiErr := &Error{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		return apiErr
	}
	if len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			apiErr.Message = s
		} else {
			apiErr.Message = string(body.Detail)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = body.Message
	}
	return apiErr
}

func (c *Client) check(req any) error {
	if err := c.validate.Struct(req); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

func articlePath(id ID, suffix string) string {
	return "/api/articles/" + url.PathEscape(string(id)) + suffix
}

// ListArticles fetches one page. params carries the filter keys plus page
// and size.
func (c *Client) ListArticles(ctx context.Context, params url.Values) (*ListResult, error) {
	var res ListResult
	if err := c.do(ctx, http.MethodGet, "/api/articles", params, nil, &res); err != nil {
		return nil, err
	}
	if res.Items == nil {
		res.Items = []Article{}
	}
	return &res, nil
}

func (c *Client) CategoryStats(ctx context.Context, params url.Values) ([]CategoryCount, error) {
	var res []CategoryCount
	if err := c.do(ctx, http.MethodGet, "/api/categories/stats", params, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) GetArticle(ctx context.Context, id ID) (*Article, error) {
	var a Article
	if err := c.do(ctx, http.MethodGet, articlePath(id, ""), nil, nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) Authors(ctx context.Context) ([]string, error) {
	var res []string
	if err := c.do(ctx, http.MethodGet, "/api/authors", nil, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) Sources(ctx context.Context) ([]Source, error) {
	var res []Source
	if err := c.do(ctx, http.MethodGet, "/api/sources", nil, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) SetVisibility(ctx context.Context, id ID, visible bool) error {
	return c.do(ctx, http.MethodPatch, articlePath(id, "/visibility"), nil, VisibilityRequest{Visible: visible}, nil)
}

func (c *Client) BatchSetVisibility(ctx context.Context, ids []ID, visible bool) (*BatchResult, error) {
	req := BatchVisibilityRequest{IDs: ids, Visible: visible}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var res BatchResult
	if err := c.do(ctx, http.MethodPost, "/api/articles/batch/visibility", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) SetCategory(ctx context.Context, id ID, categoryID ID) error {
	req := CategoryRequest{CategoryID: categoryID}
	if err := c.check(req); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPatch, articlePath(id, "/category"), nil, req, nil)
}

func (c *Client) BatchSetCategory(ctx context.Context, ids []ID, categoryID ID) (*BatchResult, error) {
	req := BatchCategoryRequest{IDs: ids, CategoryID: categoryID}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var res BatchResult
	if err := c.do(ctx, http.MethodPost, "/api/articles/batch/category", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) DeleteArticle(ctx context.Context, id ID) error {
	return c.do(ctx, http.MethodDelete, articlePath(id, ""), nil, nil, nil)
}

func (c *Client) BatchDelete(ctx context.Context, ids []ID) (*BatchResult, error) {
	req := BatchDeleteRequest{IDs: ids}
	if err := c.check(req); err != nil {
		return nil, err
	}
	var res BatchResult
	if err := c.do(ctx, http.MethodPost, "/api/articles/batch/delete", nil, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CreateArticle(ctx context.Context, req CreateArticleRequest) (*Article, error) {
	if err := c.check(req); err != nil {
		return nil, err
	}
	var a Article
	if err := c.do(ctx, http.MethodPost, "/api/articles", nil, req, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
