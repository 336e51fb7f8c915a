package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/2beens/whole2swole/internal/store"
	"github.com/2beens/whole2swole/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

var _ store.Store = (*Client)(nil)

const (
	authPath = "/auth/v1"
	restPath = "/rest/v1"
	// refresh a bit before the access token actually expires
	expiryMargin = 30 * time.Second
)

// Client talks to a Supabase project: GoTrue for auth, PostgREST for the collections.
type Client struct {
	store.Listeners

	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	now        func() time.Time

	mutex   sync.Mutex
	session *store.Session
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient sets no client timeout, calls are bounded by the caller's context only.
func NewClient(projectURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL, err := url.Parse(strings.TrimRight(projectURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse project url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported project url scheme: %s", baseURL.Scheme)
	}

	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// GetSession returns the held session, refreshing it when the access token is about to expire.
func (c *Client) GetSession(ctx context.Context) (*store.Session, error) {
	c.mutex.Lock()
	session := c.session
	c.mutex.Unlock()

	if session == nil {
		return nil, nil
	}
	if session.ExpiresAt.IsZero() || c.now().Add(expiryMargin).Before(session.ExpiresAt) {
		s := *session
		return &s, nil
	}

	refreshed, err := c.refresh(ctx, session.RefreshToken)
	if err != nil {
		log.Warnf("supabase: refresh session: %s", err)
		c.setSession(nil)
		c.Notify(ctx, store.SignedOut, nil)
		return nil, err
	}

	c.setSession(refreshed)
	s := *refreshed
	return &s, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, identity, secret string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.sign_in")
	defer tracing.EndSpanWithErrCheck(span, &err)

	session, err := c.token(ctx, "password", map[string]string{
		"email":    identity,
		"password": secret,
	})
	if err != nil {
		return err
	}

	c.setSession(session)
	c.Notify(ctx, store.SignedIn, session)
	return nil
}

// SignOut revokes the session server side. The local session is dropped even if that call fails.
func (c *Client) SignOut(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.sign_out")
	defer tracing.EndSpanWithErrCheck(span, &err)

	c.mutex.Lock()
	session := c.session
	c.session = nil
	c.mutex.Unlock()

	if session != nil {
		req, reqErr := c.newRequest(ctx, http.MethodPost, authPath+"/logout", nil, nil)
		if reqErr != nil {
			err = reqErr
		} else {
			req.Header.Set("Authorization", "Bearer "+session.AccessToken)
			err = c.do(req, "sign_out", nil)
		}
	}

	c.Notify(ctx, store.SignedOut, nil)
	return err
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*store.Session, error) {
	if refreshToken == "" {
		return nil, &store.Error{Op: "refresh", Status: http.StatusUnauthorized, Message: "Session expired."}
	}
	return c.token(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (c *Client) token(ctx context.Context, grantType string, body map[string]string) (*store.Session, error) {
	query := url.Values{"grant_type": {grantType}}
	req, err := c.newRequest(ctx, http.MethodPost, authPath+"/token", query, body)
	if err != nil {
		return nil, err
	}

	var resp tokenResponse
	if err := c.do(req, "sign_in", &resp); err != nil {
		return nil, err
	}

	expiresAt := time.Unix(resp.ExpiresAt, 0)
	if resp.ExpiresAt == 0 {
		expiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}

	return &store.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       resp.User.ID,
		Email:        resp.User.Email,
		ExpiresAt:    expiresAt,
	}, nil
}

func (c *Client) SelectAll(ctx context.Context, collection store.Collection, orderBy ...store.Order) (rows []json.RawMessage, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.select_all")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("collection", string(collection)))

	query := url.Values{"select": {"*"}}
	if order := orderParam(orderBy); order != "" {
		query.Set("order", order)
	}

	req, err := c.newRequest(ctx, http.MethodGet, restPath+"/"+string(collection), query, nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	rows = []json.RawMessage{}
	if err := c.do(req, "select", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) Insert(ctx context.Context, collection store.Collection, row any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.insert")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(attribute.String("collection", string(collection)))

	req, err := c.newRequest(ctx, http.MethodPost, restPath+"/"+string(collection), nil, row)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")
	if err := c.authorize(ctx, req); err != nil {
		return err
	}
	return c.do(req, "insert", nil)
}

func (c *Client) UpdateByID(ctx context.Context, collection store.Collection, id string, patch any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.update_by_id")
	defer tracing.EndSpanWithErrCheck(span, &err)
	span.SetAttributes(
		attribute.String("collection", string(collection)),
		attribute.String("id", id),
	)

	query := url.Values{"id": {"eq." + id}}
	req, err := c.newRequest(ctx, http.MethodPatch, restPath+"/"+string(collection), query, patch)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")
	if err := c.authorize(ctx, req); err != nil {
		return err
	}
	return c.do(req, "update", nil)
}

// orderParam renders PostgREST ordering, e.g. date.desc,created_at.desc
func orderParam(orderBy []store.Order) string {
	parts := make([]string, 0, len(orderBy))
	for _, o := range orderBy {
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		parts = append(parts, o.Field+"."+dir)
	}
	return strings.Join(parts, ",")
}

func (c *Client) setSession(session *store.Session) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.session = session
}

// authorize uses the user's access token, or the public key while signed out.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	session, err := c.GetSession(ctx)
	if err != nil {
		return err
	}
	bearer := c.apiKey
	if session != nil {
		bearer = session.AccessToken
	}
	req.Header.Set("Authorization", "Bearer "+bearer)
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &store.Error{Op: op, Message: err.Error()}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &store.Error{Op: op, Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode >= 300 {
		return &store.Error{Op: op, Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &store.Error{Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("unexpected response: %s", err)}
	}
	return nil
}

// errorMessage picks the human readable message out of a GoTrue or PostgREST error body.
func errorMessage(status int, body []byte) string {
	var e struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil {
		for _, m := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
			if m != "" {
				return m
			}
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		return text
	}
	return http.StatusText(status)
}
