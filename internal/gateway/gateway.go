// Package gateway is the single configured HTTP client every domain service
// calls through. It attaches the bearer credential, maps failures onto the
// client error taxonomy, and performs the one-shot refresh-and-retry dance
// when the backend reports an expired access token.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/pharmalink-go/internal/session"
	"github.com/angelmondragon/pharmalink-go/pkg/auth"
	"github.com/angelmondragon/pharmalink-go/pkg/config"
	pkgerrors "github.com/angelmondragon/pharmalink-go/pkg/errors"
	"github.com/angelmondragon/pharmalink-go/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const refreshPath = "/auth/refresh"

// Client wraps all backend calls.
type Client struct {
	baseURL     string
	http        *http.Client
	sess        *session.Manager
	log         *logger.Logger
	refreshSkew time.Duration

	// refreshGroup coalesces concurrent refreshes into a single in-flight
	// call so a burst of 401s never causes a refresh storm.
	refreshGroup singleflight.Group
}

// New builds a gateway from the API config and the shared session manager.
func New(cfg config.APIConfig, sess *session.Manager, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if sess == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		http:        &http.Client{Timeout: timeout},
		sess:        sess,
		log:         logg,
		refreshSkew: cfg.RefreshSkew,
	}, nil
}

// Get issues an authenticated GET and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.call(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPost, path, nil, body, out)
}

// Put issues an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.call(ctx, http.MethodPut, path, nil, body, out)
}

// call runs one logical operation: the initial request plus, on an expired
// credential, exactly one refresh and one replay. The retry budget is an
// explicit local value, never state bolted onto the request.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body, out any) error {
	// A token known to be expired gets refreshed up front; a guaranteed 401
	// round trip buys nothing. Refresh failure means logout either way.
	if tok := c.sess.AccessToken(); tok != "" && c.sess.RefreshToken() != "" && auth.Expired(tok, c.refreshSkew) {
		if err := c.refreshSession(ctx); err != nil {
			return err
		}
	}

	err := c.do(ctx, method, path, query, body, out)
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		return err
	}
	if path == refreshPath || c.sess.RefreshToken() == "" {
		return err
	}

	if refreshErr := c.refreshSession(ctx); refreshErr != nil {
		return refreshErr
	}
	// Replay exactly once with the rotated credential.
	return c.do(ctx, method, path, query, body, out)
}

// RefreshSession forces a token rotation, sharing any refresh already in
// flight. A failure logs the client out.
func (c *Client) RefreshSession(ctx context.Context) error {
	return c.refreshSession(ctx)
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// refreshSession rotates the token pair through /auth/refresh. Concurrent
// callers share one in-flight refresh; a failure logs the client out and
// propagates the refresh failure.
func (c *Client) refreshSession(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		refreshToken := c.sess.RefreshToken()
		if refreshToken == "" {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "no refresh token held")
		}

		var resp refreshResponse
		reqBody := map[string]string{"refreshToken": refreshToken}
		if err := c.do(ctx, http.MethodPost, refreshPath, nil, reqBody, &resp); err != nil {
			return nil, err
		}
		if resp.AccessToken == "" {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "refresh returned no access token")
		}
		if err := c.sess.SetTokens(ctx, resp.AccessToken, resp.RefreshToken); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persisting refreshed tokens")
		}
		return nil, nil
	})
	if err != nil {
		c.log.Warn(ctx, "token refresh failed, logging out")
		if clearErr := c.sess.Clear(ctx); clearErr != nil {
			c.log.Error(ctx, "failed to clear session after refresh failure", clearErr)
		}
		return pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "session expired")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "building request")
	}
	c.setHeaders(req)

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	ctx = c.log.WithRequestID(ctx, requestID)

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(c.log.WithField(ctx, "path", path), "request transport failure")
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, fmt.Sprintf("%s %s failed", method, path))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, "reading response body")
	}

	c.log.Debug(c.log.WithFields(ctx, map[string]any{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(started).String(),
	}), "backend call")

	if resp.StatusCode >= 400 {
		return pkgerrors.FromStatus(resp.StatusCode, serverMessage(payload))
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding response body")
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.sess.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// serverMessage extracts the body's message or error field when present.
func serverMessage(payload []byte) string {
	if len(payload) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
