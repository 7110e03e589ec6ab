package shortcode

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// HTTP source paths and headers
const (
	httpPathTypes    = "types"
	httpPathItems    = "items"
	httpPathFields   = "fields"
	httpPathMeta     = "meta"
	httpHeaderAuth   = "Authorization"
	httpHeaderAccept = "Accept"
	httpBearerPrefix = "Bearer "
	httpMediaJSON    = "application/json"

	httpQueryCount     = "count"
	httpQueryOrderBy   = "orderby"
	httpQueryOrder     = "order"
	httpQueryStatus    = "status"
	httpQueryMetaKey   = "meta_key"
	httpQueryMetaValue = "meta_value"
	httpQuerySingle    = "single"

	// DefaultHTTPMaxBodyBytes caps response bodies read from the content service.
	DefaultHTTPMaxBodyBytes = 4 << 20
)

// HTTPDoer is the subset of *http.Client the source needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies the bearer credential sent with every request.
// It is the boundary to the external auth collaborator.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same credential.
type StaticToken string

// Token returns the static credential.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// HTTPSourceConfig configures an HTTPSource.
type HTTPSourceConfig struct {
	// BaseURL is the content service root, e.g. "https://cms.example.com/api/v1".
	BaseURL string
	// Tokens supplies the bearer credential. Nil sends no Authorization header.
	Tokens TokenSource
	// Client performs requests. Default: a client with Timeout.
	Client HTTPDoer
	// Timeout bounds each request when Client is nil. Default: 10 seconds.
	Timeout time.Duration
	// MaxBodyBytes caps response bodies. Default: 4 MiB.
	MaxBodyBytes int64
	Logger       *zap.Logger
}

// HTTPSource reads content from a REST content service.
//
// Endpoints, relative to the base URL:
//
//	GET types/{type}/items          -> {"data": [Item...]}
//	GET types/{type}/items/{id}     -> {"data": Item}
//	GET items/{id}/fields/{name}    -> {"value": ..., "type": "..."}
//	GET items/{id}/meta/{key}       -> {"value": ...}
//
// A 404 response is reported as ErrContentNotFound.
type HTTPSource struct {
	config HTTPSourceConfig
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// HTTPSourceDriver opens HTTPSource instances; the connection string is the base URL.
type HTTPSourceDriver struct{}

func init() {
	RegisterSourceDriver(SourceDriverHTTP, &HTTPSourceDriver{})
}

// Open creates an HTTPSource for the base URL in connectionString.
func (d *HTTPSourceDriver) Open(connectionString string) (ContentSource, error) {
	if connectionString == "" {
		return nil, NewConfigError(ErrMsgEmptyConnString, SourceDriverHTTP, nil)
	}
	return NewHTTPSource(HTTPSourceConfig{BaseURL: connectionString}), nil
}

// NewHTTPSource creates an HTTP content source.
func NewHTTPSource(config HTTPSourceConfig) *HTTPSource {
	if config.Timeout <= 0 {
		config.Timeout = DefaultRequestTimeout
	}
	if config.Client == nil {
		config.Client = &http.Client{Timeout: config.Timeout}
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultHTTPMaxBodyBytes
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPSource{config: config, logger: logger}
}

type listEnvelope struct {
	Data []Item `json:"data"`
}

type itemEnvelope struct {
	Data *Item `json:"data"`
}

type metaEnvelope struct {
	Value any `json:"value"`
}

// ListItems queries types/{type}/items.
func (s *HTTPSource) ListItems(ctx context.Context, q ListQuery) ([]Item, error) {
	q = normalizeListQuery(q)
	params := url.Values{}
	params.Set(httpQueryCount, strconv.Itoa(q.Count))
	params.Set(httpQueryOrderBy, q.OrderBy)
	params.Set(httpQueryOrder, q.Order)
	params.Set(httpQueryStatus, q.Status)
	if q.MetaKey != "" {
		params.Set(httpQueryMetaKey, q.MetaKey)
		params.Set(httpQueryMetaValue, q.MetaValue)
	}

	var env listEnvelope
	if err := s.getJSON(ctx, params, &env, httpPathTypes, q.Type, httpPathItems); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []Item{}, nil
	}
	return env.Data, nil
}

// GetItem fetches types/{type}/items/{id}. An empty postType falls back to items/{id}.
func (s *HTTPSource) GetItem(ctx context.Context, postType string, id int64) (*Item, error) {
	idStr := strconv.FormatInt(id, 10)
	segments := []string{httpPathItems, idStr}
	if postType != "" {
		segments = []string{httpPathTypes, postType, httpPathItems, idStr}
	}

	var env itemEnvelope
	if err := s.getJSON(ctx, nil, &env, segments...); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, NewContentNotFoundError(ResourceItem, idStr)
	}
	return env.Data, nil
}

// GetTypedField fetches items/{id}/fields/{name}.
func (s *HTTPSource) GetTypedField(ctx context.Context, id int64, name string) (TypedValue, error) {
	var tv TypedValue
	if err := s.getJSON(ctx, nil, &tv, httpPathItems, strconv.FormatInt(id, 10), httpPathFields, name); err != nil {
		return TypedValue{}, err
	}
	return tv, nil
}

// GetMeta fetches items/{id}/meta/{key}?single=.
func (s *HTTPSource) GetMeta(ctx context.Context, id int64, key string, single bool) (any, error) {
	params := url.Values{}
	params.Set(httpQuerySingle, strconv.FormatBool(single))

	var env metaEnvelope
	if err := s.getJSON(ctx, params, &env, httpPathItems, strconv.FormatInt(id, 10), httpPathMeta, key); err != nil {
		return nil, err
	}
	if env.Value == nil {
		return nil, NewContentNotFoundError(ResourceMeta, key)
	}
	return env.Value, nil
}

// Close marks the source closed and releases idle connections.
func (s *HTTPSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if c, ok := s.config.Client.(*http.Client); ok {
		c.CloseIdleConnections()
	}
	return nil
}

// getJSON performs a GET and decodes the body into out.
func (s *HTTPSource) getJSON(ctx context.Context, params url.Values, out any, segments ...string) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return NewSourceClosedError()
	}

	reqURL, err := s.buildURL(ctx, params, segments...)
	if err != nil {
		return NewSourceError(ErrMsgSourceRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return NewSourceError(ErrMsgSourceRequest, err)
	}
	req.Header.Set(httpHeaderAccept, httpMediaJSON)
	if s.config.Tokens != nil {
		token, err := s.config.Tokens.Token(ctx)
		if err != nil {
			return NewSourceError(ErrMsgAuthTokenFailed, err)
		}
		if token != "" {
			req.Header.Set(httpHeaderAuth, httpBearerPrefix+token)
		}
	}

	start := time.Now()
	s.logger.Debug(LogMsgSourceFetch, zap.String(LogFieldURL, reqURL))

	resp, err := s.config.Client.Do(req)
	if err != nil {
		s.logger.Debug(LogMsgSourceFailed, zap.String(LogFieldURL, reqURL), zap.Error(err))
		if isTimeoutErr(err) {
			return NewTimeoutError(err)
		}
		return NewSourceError(ErrMsgSourceRequest, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	s.logger.Debug(LogMsgSourceFetch,
		zap.String(LogFieldURL, reqURL),
		zap.Int(LogFieldStatus, resp.StatusCode),
		zap.Duration(LogFieldDuration, time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return NewContentNotFoundError(strings.Join(segments, "/"), reqURL)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return NewSourceStatusError(resp.StatusCode, reqURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.config.MaxBodyBytes))
	if err != nil {
		if isTimeoutErr(err) {
			return NewTimeoutError(err)
		}
		return NewSourceError(ErrMsgSourceRequest, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return NewSourceError(ErrMsgSourceDecode, err)
	}
	return nil
}

// buildURL joins the base (the per-pass override from ctx, else the
// configured base) with escaped path segments.
func (s *HTTPSource) buildURL(ctx context.Context, params url.Values, segments ...string) (string, error) {
	base := apiBaseFrom(ctx)
	if base == "" {
		base = s.config.BaseURL
	}
	if base == "" {
		return "", errors.New(ErrMsgEmptyConnString)
	}
	joined, err := url.JoinPath(base, segments...)
	if err != nil {
		return "", err
	}
	if len(params) > 0 {
		joined += "?" + params.Encode()
	}
	return joined, nil
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

type apiBaseKey struct{}

// WithAPIBase returns a context that directs HTTP sources at base for calls
// made with it. Providers set it from Context.APIBase.
func WithAPIBase(ctx context.Context, base string) context.Context {
	if base == "" {
		return ctx
	}
	return context.WithValue(ctx, apiBaseKey{}, base)
}

func apiBaseFrom(ctx context.Context) string {
	base, _ := ctx.Value(apiBaseKey{}).(string)
	return base
}
