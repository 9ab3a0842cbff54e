// Package client wraps the license API over HTTP. Every call carries the
// session's bearer token, and a single 401 is answered by one token refresh
// and one retry.
package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/octabyte/license-client/models"
	"github.com/octabyte/license-client/notify"
	"github.com/octabyte/license-client/otel"
	otellogger "github.com/octabyte/license-client/otel/logger"
	"github.com/octabyte/license-client/otel/metrics"
	"github.com/octabyte/license-client/session"
	"github.com/octabyte/license-client/utils"
	"github.com/octabyte/license-client/utils/logger"
	"go.uber.org/zap"
)

const (
	apiVersionPath = "/v1"

	authorizationHeader = "Authorization"
	requestIDHeader     = "X-Request-ID"

	defaultTimeout       = 30 * time.Second
	defaultRefreshLeeway = 30 * time.Second
	defaultServiceName   = "license-client"
)

type Config struct {
	// BaseURL is the API root without the version segment.
	BaseURL     string
	Timeout     time.Duration
	ServiceName string
	// ProactiveRefresh refreshes before sending when the access token is a
	// JWT expiring within RefreshLeeway.
	ProactiveRefresh bool
	RefreshLeeway    time.Duration
}

// TokenSource yields the access token attached to outgoing requests.
type TokenSource interface {
	AccessToken() string
}

// SessionStore is the part of session.Store the client needs.
type SessionStore interface {
	TokenSource
	RefreshState() (refreshToken string, generation uint64)
	MergeTokens(ctx context.Context, generation uint64, accessToken, refreshToken string, user *models.User) error
	ClearIfGeneration(ctx context.Context, generation uint64) (bool, error)
}

type Option func(*Client)

func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

func WithNavigator(n notify.Navigator) Option {
	return func(c *Client) {
		if n != nil {
			c.navigator = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

type Client struct {
	cfg       Config
	http      *resty.Client
	store     SessionStore
	refresher *Refresher
	notifier  notify.Notifier
	navigator notify.Navigator
	logger    *zap.Logger
}

// New builds a client bound to store. Unset Config durations take defaults.
func New(cfg Config, store SessionStore, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("client: base URL is required")
	}
	if store == nil {
		return nil, errors.New("client: session store is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RefreshLeeway <= 0 {
		cfg.RefreshLeeway = defaultRefreshLeeway
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}

	c := &Client{
		cfg:       cfg,
		store:     store,
		notifier:  notify.Nop,
		navigator: notify.NavigatorFunc(func(context.Context) {}),
		logger:    zap.L(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = newRestyClient(cfg).
		OnBeforeRequest(c.attachBearer).
		OnBeforeRequest(otel.WithTraceHeaders)

	refreshHTTP := newRestyClient(cfg).OnBeforeRequest(otel.WithTraceHeaders)
	c.refresher = newRefresher(refreshHTTP, store, c.logger, cfg.ServiceName, cfg.Timeout)

	return c, nil
}

func newRestyClient(cfg Config) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")+apiVersionPath).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
}

// attachBearer sets the session token unless the request carries its own
// Authorization header.
func (c *Client) attachBearer(_ *resty.Client, r *resty.Request) error {
	if r.Header.Get(authorizationHeader) != "" {
		return nil
	}
	if token := c.store.AccessToken(); token != "" {
		r.Header.Set(authorizationHeader, utils.BearerToken(token))
	}
	return nil
}

// Refresh rotates the session tokens outside of any request.
func (c *Client) Refresh(ctx context.Context) (*models.RefreshResponse, error) {
	return c.refresher.Refresh(ctx)
}

func (c *Client) Get(ctx context.Context, path string, query map[string]string, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body}, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path}, out)
}

// Do sends req and decodes a successful JSON body into out when out is not
// nil. Every failure is returned as an *APIError.
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	if req.id == "" {
		req.id = uuid.NewString()
	}

	ctx, finish := otel.StartHTTPSpan(ctx, c.cfg.ServiceName, "api", req.Method+" "+req.Path, req.Method, c.http.BaseURL, req.Path)

	if err := c.refreshIfExpiring(ctx, req); err != nil {
		finish(0, err)
		return err
	}

	resp, err := c.send(ctx, req, "")
	if err == nil && c.canRecover(req, resp) {
		req.retried = true

		resp, err = c.recoverUnauthorized(ctx, req, resp)
		if apiErr, ok := AsAPIError(err); ok {
			finish(apiErr.Status, apiErr)
			return apiErr
		}
	}

	if apiErr := c.failure(ctx, req, resp, err); apiErr != nil {
		finish(apiErr.Status, apiErr)
		return apiErr
	}

	if out != nil && len(resp.Body()) > 0 {
		if err := c.http.JSONUnmarshal(resp.Body(), out); err != nil {
			apiErr := &APIError{
				Message: "failed to decode response",
				Status:  resp.StatusCode(),
				Kind:    KindClient,
				Err:     err,
			}
			finish(resp.StatusCode(), apiErr)
			return apiErr
		}
	}

	finish(resp.StatusCode(), nil)
	return nil
}

func (c *Client) send(ctx context.Context, req *Request, token string) (*resty.Response, error) {
	r := c.http.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, req.id)

	for key, values := range req.Header {
		r.SetHeaderMultiValues(map[string][]string{key: values})
	}
	if token != "" {
		r.SetHeader(authorizationHeader, utils.BearerToken(token))
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)

	status := 0
	if received(resp) {
		status = resp.StatusCode()
	}
	metrics.RecordHTTPRequest(ctx, req.Method, req.Path, status, time.Since(start))

	otellogger.WithTrace(ctx, c.logger).Debug("api request",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.String("request_id", req.id),
		zap.Int("status", status),
		zap.Bool("retried", req.retried),
	)

	return resp, err
}

func (c *Client) canRecover(req *Request, resp *resty.Response) bool {
	return resp.StatusCode() == http.StatusUnauthorized && !req.retried && !req.SkipAuthRefresh
}

// recoverUnauthorized answers a 401. When the store already holds a newer token than the
// one sent, the request is re-sent with it and no refresh happens. A refresh
// failure comes back as an *APIError and ends the call.
func (c *Client) recoverUnauthorized(ctx context.Context, req *Request, resp *resty.Response) (*resty.Response, error) {
	refreshToken, generation := c.store.RefreshState()
	if refreshToken == "" {
		return resp, nil
	}

	sent, _ := utils.ParseBearer(resp.Request.Header.Get(authorizationHeader))
	token := c.store.AccessToken()

	if token != "" && token != sent {
		metrics.RecordRefresh(ctx, metrics.RefreshStale)
		c.logger.Debug("retrying with newer session token", zap.String("request_id", req.id))
	} else {
		pair, err := c.refresher.refresh(ctx, refreshToken, generation)
		if err != nil {
			if !errors.Is(err, session.ErrSessionEnded) {
				c.navigator.RedirectToLogin(ctx)
			}
			return nil, err
		}
		token = pair.AccessToken
	}

	metrics.RecordRetry(ctx, req.Method, req.Path)
	c.logger.Debug("retrying request after refresh",
		zap.String("request_id", req.id),
		logger.Token("access_token", token),
	)

	return c.send(ctx, req, token)
}

// refreshIfExpiring refreshes ahead of the request when configured to. A
// request that triggered a refresh here will not refresh again on 401.
func (c *Client) refreshIfExpiring(ctx context.Context, req *Request) error {
	if !c.cfg.ProactiveRefresh || req.SkipAuthRefresh || req.retried {
		return nil
	}

	exp, ok := utils.TokenExpiry(c.store.AccessToken())
	if !ok || time.Until(exp) > c.cfg.RefreshLeeway {
		return nil
	}

	refreshToken, generation := c.store.RefreshState()
	if refreshToken == "" {
		return nil
	}

	req.retried = true
	if _, err := c.refresher.refresh(ctx, refreshToken, generation); err != nil {
		if !errors.Is(err, session.ErrSessionEnded) {
			c.navigator.RedirectToLogin(ctx)
		}
		return err
	}
	return nil
}

// failure normalizes an unsuccessful exchange into an *APIError and raises
// the user notification. It returns nil for a successful response.
func (c *Client) failure(ctx context.Context, req *Request, resp *resty.Response, err error) *APIError {
	if err == nil && resp.StatusCode() < http.StatusBadRequest {
		return nil
	}

	var apiErr *APIError
	switch {
	case err != nil && ctx.Err() != nil:
		return &APIError{Message: err.Error(), Kind: KindClient, Err: err}
	case err != nil:
		apiErr = transportError(err)
	case resp.StatusCode() == http.StatusUnauthorized && req.SkipAuthRefresh:
		apiErr = responseError(resp, KindCredential)
	case resp.StatusCode() == http.StatusUnauthorized:
		apiErr = responseError(resp, KindUnauthorized)
	default:
		apiErr = responseError(resp, KindServer)
	}

	otellogger.WithTrace(ctx, c.logger).Debug("api request failed",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.String("request_id", req.id),
		zap.String("kind", apiErr.Kind.String()),
		zap.Int("status", apiErr.Status),
	)

	switch {
	case apiErr.Kind == KindNetwork:
		c.notifier.Notify(ctx, notify.Notification{
			Title:       "Network Error",
			Description: "Unable to connect to server. Please check your connection.",
			Variant:     notify.VariantDestructive,
		})
	case apiErr.Status != http.StatusUnauthorized:
		c.notifier.Notify(ctx, notify.Notification{
			Title:       "Error",
			Description: apiErr.Message,
			Variant:     notify.VariantDestructive,
		})
	}

	return apiErr
}

// transportError classifies an error returned without a response.
func transportError(err error) *APIError {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &APIError{Message: networkErrorMessage, Status: 0, Kind: KindNetwork, Err: err}
	}
	return &APIError{Message: err.Error(), Kind: KindClient, Err: err}
}

func received(resp *resty.Response) bool {
	return resp != nil && resp.RawResponse != nil
}
