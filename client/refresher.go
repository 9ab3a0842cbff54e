package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/octabyte/license-client/models"
	"github.com/octabyte/license-client/otel"
	otellogger "github.com/octabyte/license-client/otel/logger"
	"github.com/octabyte/license-client/otel/metrics"
	"github.com/octabyte/license-client/session"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const refreshPath = "/auth/refresh"

// Refresher exchanges the stored refresh token for a new pair. Concurrent
// callers holding the same refresh token share one in-flight call.
type Refresher struct {
	http        *resty.Client
	store       SessionStore
	logger      *zap.Logger
	serviceName string
	timeout     time.Duration
	group       singleflight.Group
}

func newRefresher(http *resty.Client, store SessionStore, logger *zap.Logger, serviceName string, timeout time.Duration) *Refresher {
	return &Refresher{
		http:        http,
		store:       store,
		logger:      logger,
		serviceName: serviceName,
		timeout:     timeout,
	}
}

// Refresh rotates the stored tokens. On failure the session is cleared and
// the error is returned; it never navigates.
func (r *Refresher) Refresh(ctx context.Context) (*models.RefreshResponse, error) {
	refreshToken, generation := r.store.RefreshState()
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	return r.refresh(ctx, refreshToken, generation)
}

func (r *Refresher) refresh(ctx context.Context, refreshToken string, generation uint64) (*models.RefreshResponse, error) {
	v, err, shared := r.group.Do(refreshToken, func() (interface{}, error) {
		// Detached from the first caller so its cancellation does not fail
		// the callers sharing this call.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.exchange(callCtx, refreshToken, generation)
	})
	if shared {
		metrics.RecordRefresh(ctx, metrics.RefreshShared)
	}
	if err != nil {
		return nil, err
	}
	return v.(*models.RefreshResponse), nil
}

func (r *Refresher) exchange(ctx context.Context, refreshToken string, generation uint64) (*models.RefreshResponse, error) {
	baseURL := r.http.BaseURL
	ctx, finish := otel.StartHTTPSpan(ctx, r.serviceName, "api", "auth.refresh", http.MethodPost, baseURL, refreshPath)

	start := time.Now()
	resp, err := r.http.R().
		SetContext(ctx).
		SetBody(models.RefreshRequest{RefreshToken: refreshToken}).
		Post(refreshPath)

	status := 0
	if resp != nil && resp.RawResponse != nil {
		status = resp.StatusCode()
	}
	metrics.RecordHTTPRequest(ctx, http.MethodPost, refreshPath, status, time.Since(start))

	var apiErr *APIError
	var pair models.RefreshResponse
	switch {
	case err != nil:
		apiErr = transportError(err)
		apiErr.Kind = KindRefreshExhausted
	case resp.StatusCode() >= http.StatusBadRequest:
		apiErr = responseError(resp, KindRefreshExhausted)
	default:
		if decodeErr := r.http.JSONUnmarshal(resp.Body(), &pair); decodeErr != nil || pair.AccessToken == "" || pair.RefreshToken == "" {
			apiErr = &APIError{
				Message: "invalid refresh response",
				Status:  resp.StatusCode(),
				Kind:    KindRefreshExhausted,
				Err:     decodeErr,
			}
		}
	}

	log := otellogger.WithTrace(ctx, r.logger)
	if apiErr != nil {
		finish(status, apiErr)
		metrics.RecordRefresh(ctx, metrics.RefreshFailure)
		log.Warn("token refresh failed",
			zap.Int("status", apiErr.Status),
			zap.String("message", apiErr.Message),
		)
		if !r.clear(ctx, log, generation) {
			return nil, sessionEnded()
		}
		return nil, apiErr
	}
	finish(status, nil)

	if err := r.store.MergeTokens(ctx, generation, pair.AccessToken, pair.RefreshToken, pair.User); err != nil {
		if errors.Is(err, session.ErrSessionEnded) {
			log.Info("refresh completed after session ended, discarding tokens")
			return nil, sessionEnded()
		}
		log.Error("failed to store refreshed tokens", zap.Error(err))
		if !r.clear(ctx, log, generation) {
			return nil, sessionEnded()
		}
		return nil, &APIError{Message: "failed to store refreshed tokens", Kind: KindClient, Err: err}
	}

	metrics.RecordRefresh(ctx, metrics.RefreshSuccess)
	log.Debug("tokens refreshed")
	return &pair, nil
}

// clear ends the session the refresh was started for. It reports false when
// that session was already cleared or replaced, leaving the current one alone.
func (r *Refresher) clear(ctx context.Context, log *zap.Logger, generation uint64) bool {
	cleared, err := r.store.ClearIfGeneration(ctx, generation)
	if err != nil {
		log.Error("failed to clear session after refresh failure", zap.Error(err))
	}
	if !cleared {
		log.Info("session replaced during refresh, keeping it")
	}
	return cleared
}

func sessionEnded() *APIError {
	return &APIError{Message: "session ended", Status: 0, Kind: KindRefreshExhausted, Err: session.ErrSessionEnded}
}
