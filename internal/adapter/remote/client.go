package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-wishlist-sync/internal/core/domain/wishlist"
	"go-wishlist-sync/internal/core/ports"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	wishlistPath = "/users/wishlist"

	// maxBodySize caps how much of a response is read.
	maxBodySize = 4 << 20
)

// Config configures the remote wishlist client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Breaker enables the circuit breaker round-tripper.
	Breaker bool
}

// Client is the HTTP implementation of ports.WishlistRemote.
// It carries no retry logic; every failure is returned as a *wishlist.RemoteError.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  ports.TokenSource
	logger  *slog.Logger
}

var _ ports.WishlistRemote = (*Client)(nil)

// NewClient builds a client with an instrumented transport, guarded by a circuit breaker
// when cfg.Breaker is set. tokens may be nil.
func NewClient(cfg Config, tokens ports.TokenSource, logger *slog.Logger) *Client {
	var transport http.RoundTripper = http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Breaker {
		transport = NewBreakerTransport(transport, DefaultBreakerConfig("wishlist-api"), logger)
	}
	transport = otelhttp.NewTransport(transport)

	return NewClientWithHTTP(cfg.BaseURL, &http.Client{Transport: transport, Timeout: cfg.Timeout}, tokens, logger)
}

// NewClientWithHTTP uses hc as is.
func NewClientWithHTTP(baseURL string, hc *http.Client, tokens ports.TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		tokens:  tokens,
		logger:  logger,
	}
}

// envelope is the response body shape shared by every wishlist endpoint.
type envelope struct {
	Data *struct {
		Wishlist *[]wishlist.Entry `json:"wishlist"`
	} `json:"data"`
	Message string `json:"message"`
}

type addRequest struct {
	ExternalID string  `json:"externalId"`
	Source     string  `json:"source"`
	Country    string  `json:"country"`
	ImageURL   string  `json:"imageUrl"`
	Price      float64 `json:"price"`
	Title      string  `json:"title"`
}

// List fetches the full collection. A 2xx without data.wishlist is a malformed response.
func (c *Client) List(ctx context.Context) (wishlist.RemoteList, error) {
	status, body, err := c.do(ctx, http.MethodGet, wishlistPath, nil)
	if err != nil {
		return wishlist.RemoteList{}, err
	}

	env, err := decodeEnvelope(status, body)
	if err != nil {
		return wishlist.RemoteList{}, err
	}
	if env.Data == nil || env.Data.Wishlist == nil {
		return wishlist.RemoteList{}, wishlist.NewMalformedResponseError(status, "", errors.New("missing data.wishlist"))
	}
	return wishlist.RemoteList{Entries: *env.Data.Wishlist, Authoritative: true, Message: env.Message}, nil
}

// Add submits entry. A success without the collection is not authoritative.
func (c *Client) Add(ctx context.Context, entry wishlist.Entry) (wishlist.RemoteList, error) {
	payload, err := json.Marshal(addRequest{
		ExternalID: entry.ID(),
		Source:     entry.Source,
		Country:    entry.Country,
		ImageURL:   entry.ImageURL,
		Price:      entry.Price,
		Title:      entry.Title,
	})
	if err != nil {
		return wishlist.RemoteList{}, wishlist.NewMalformedResponseError(0, "invalid product data", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, wishlistPath, payload)
	if err != nil {
		return wishlist.RemoteList{}, err
	}
	return mutationList(status, body)
}

// Remove deletes by external id. A 404 is verified against the current list: the
// removal succeeds if id is gone and fails if it is still there.
func (c *Client) Remove(ctx context.Context, externalID string) (wishlist.RemoteList, error) {
	status, body, err := c.do(ctx, http.MethodDelete, wishlistPath+"/"+url.PathEscape(externalID), nil)
	if err == nil {
		return mutationList(status, body)
	}

	var remoteErr *wishlist.RemoteError
	if !errors.As(err, &remoteErr) || remoteErr.Kind != wishlist.KindServer || remoteErr.Status != http.StatusNotFound {
		return wishlist.RemoteList{}, err
	}

	c.logger.InfoContext(ctx, "remove returned 404, verifying against list", "id", externalID)
	list, listErr := c.List(ctx)
	if listErr != nil {
		return wishlist.RemoteList{}, listErr
	}
	if list.Contains(externalID) {
		return wishlist.RemoteList{}, remoteErr
	}
	return list, nil
}

// do sends the request and returns the 2xx status and body. Anything else is a RemoteError.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, wishlist.NewNetworkError(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token, ok := c.tokens.Token(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "wishlist request failed", "method", method, "path", path, "error", err)
		return 0, nil, wishlist.NewNetworkError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.logger.DebugContext(ctx, "wishlist request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)
	if err != nil {
		if isSuccess(resp.StatusCode) {
			return 0, nil, wishlist.NewMalformedResponseError(resp.StatusCode, "", err)
		}
		return 0, nil, wishlist.NewServerError(resp.StatusCode, "")
	}

	if !isSuccess(resp.StatusCode) {
		return 0, nil, wishlist.NewServerError(resp.StatusCode, errorMessage(body))
	}
	return resp.StatusCode, body, nil
}

// mutationList reads the optional collection of an add or remove response.
func mutationList(status int, body []byte) (wishlist.RemoteList, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return wishlist.RemoteList{}, nil
	}
	env, err := decodeEnvelope(status, body)
	if err != nil {
		return wishlist.RemoteList{}, err
	}
	if env.Data == nil || env.Data.Wishlist == nil {
		return wishlist.RemoteList{Message: env.Message}, nil
	}
	return wishlist.RemoteList{Entries: *env.Data.Wishlist, Authoritative: true, Message: env.Message}, nil
}

func decodeEnvelope(status int, body []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return envelope{}, wishlist.NewMalformedResponseError(status, "", err)
	}
	return env, nil
}

// errorMessage extracts message or error from a failure body, if any.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if msg := strings.TrimSpace(payload.Message); msg != "" {
		return msg
	}
	if msg, ok := payload.Error.(string); ok {
		return strings.TrimSpace(msg)
	}
	return ""
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
