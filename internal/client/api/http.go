package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/membercli/internal/client/models"
	"github.com/dmitrijs2005/membercli/internal/common"
	"github.com/dmitrijs2005/membercli/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

const requestTimeout = 12 * time.Second

// HTTPClient talks JSON to the member backend. It owns the cookie jar the
// session store writes auth cookies into and keeps the access/refresh token
// pair for the Authorization header, refreshing once on an expired-token
// response before retrying.
type HTTPClient struct {
	baseURL *url.URL
	client  *http.Client
	log     logging.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func NewHTTPClient(baseURL string, log logging.Logger) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &HTTPClient{
		baseURL: u,
		client:  &http.Client{Jar: jar, Timeout: requestTimeout},
		log:     log,
	}, nil
}

// wire DTOs

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signInResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Token   string       `json:"token"`
		Refresh string       `json:"refresh"`
		User    *models.User `json:"user"`
	} `json:"data"`
}

type checkSignInResponse struct {
	Success         bool         `json:"success"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *models.User `json:"user"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (c *HTTPClient) SignIn(ctx context.Context, username, password string) (*SignInResult, error) {
	var resp signInResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/api/user/signin", signInRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}

	// The backend answers rejected credentials with success:false, either
	// as 200 or 401. Both are a result, not an error.
	if status != http.StatusOK && status != http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: unexpected signin status %d", common.ErrorInternal, status)
	}

	if !resp.Success {
		return &SignInResult{Success: false}, nil
	}

	c.mu.Lock()
	c.accessToken = resp.Data.Token
	c.refreshToken = resp.Data.Refresh
	c.mu.Unlock()

	if exp, ok := tokenExpiry(resp.Data.Token); ok {
		c.log.Debug(ctx, "access token received", "expires_at", exp)
	}

	return &SignInResult{
		Success:      true,
		Token:        resp.Data.Token,
		RefreshToken: resp.Data.Refresh,
		User:         resp.Data.User,
	}, nil
}

func (c *HTTPClient) SignOut(ctx context.Context) error {
	status, err := c.doJSON(ctx, http.MethodPost, "/api/user/logout", nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: unexpected logout status %d", common.ErrorInternal, status)
	}

	c.mu.Lock()
	c.accessToken = ""
	c.refreshToken = ""
	c.mu.Unlock()
	return nil
}

func (c *HTTPClient) CheckSignIn(ctx context.Context) (*CheckResult, error) {
	var resp checkSignInResponse
	status, err := c.doJSON(ctx, http.MethodGet, "/api/user/check_signin", nil, &resp)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && status != http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: unexpected check status %d", common.ErrorInternal, status)
	}

	return &CheckResult{
		Success:       resp.Success,
		Authenticated: resp.IsAuthenticated,
		User:          resp.User,
	}, nil
}

func (c *HTTPClient) Register(ctx context.Context, username, email, password string) error {
	var resp registerResponse
	status, err := c.doJSON(ctx, http.MethodPost, "/api/user/register", registerRequest{
		Username: username,
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return err
	}
	if status == http.StatusConflict {
		return fmt.Errorf("register: %s", resp.Message)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("%w: unexpected register status %d", common.ErrorInternal, status)
	}
	if !resp.Success {
		return fmt.Errorf("register: %s", resp.Message)
	}
	return nil
}

func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// doJSON sends one request and decodes the response body into out (when
// non-nil). It returns the HTTP status so callers can distinguish rejected
// requests from transport failures, which come back as wrapped
// common.ErrUnavailable.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) (int, error) {
	resp, err := c.send(ctx, method, path, in)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}

	// Expired access token: refresh once and retry, as long as we still
	// hold a refresh token.
	if resp.StatusCode == http.StatusUnauthorized && c.isTokenExpired(resp) {
		resp.Body.Close()

		if err := c.refresh(ctx); err != nil {
			return 0, err
		}

		resp, err = c.send(ctx, method, path, in)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
		}
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}

	return resp.StatusCode, nil
}

func (c *HTTPClient) send(ctx context.Context, method, path string, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.Lock()
	token := c.accessToken
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.client.Do(req)
}

// isTokenExpired reports whether a 401 response is the backend's
// expired-token signal (simplejwt answers code "token_not_valid").
func (c *HTTPClient) isTokenExpired(resp *http.Response) bool {
	c.mu.Lock()
	hasRefresh := c.refreshToken != ""
	c.mu.Unlock()
	if !hasRefresh {
		return false
	}

	var body struct {
		Code string `json:"code"`
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return false
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	if err := json.Unmarshal(data, &body); err != nil {
		return false
	}
	return body.Code == "token_not_valid"
}

func (c *HTTPClient) refresh(ctx context.Context) error {
	c.mu.Lock()
	refreshToken := c.refreshToken
	c.mu.Unlock()

	resp, err := c.send(ctx, http.MethodPost, "/api/token/refresh", refreshRequest{Refresh: refreshToken})
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return common.ErrTokenExpired
	}

	var rr refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return fmt.Errorf("failed to decode refresh response: %w", err)
	}

	c.mu.Lock()
	c.accessToken = rr.Access
	if rr.Refresh != "" {
		c.refreshToken = rr.Refresh
	}
	c.mu.Unlock()

	c.log.Debug(ctx, "access token refreshed")
	return nil
}

// SetAuthCookies implements CookieWriter.
func (c *HTTPClient) SetAuthCookies(token, refresh string, expires time.Time) {
	cookies := []*http.Cookie{
		{Name: "token", Value: token, Path: "/", Expires: expires},
	}
	if refresh != "" {
		cookies = append(cookies, &http.Cookie{Name: "refresh_token", Value: refresh, Path: "/", Expires: expires})
	}
	c.client.Jar.SetCookies(c.baseURL, cookies)
}

// ClearAuthCookies implements CookieWriter.
func (c *HTTPClient) ClearAuthCookies() {
	epoch := time.Unix(0, 0)
	c.client.Jar.SetCookies(c.baseURL, []*http.Cookie{
		{Name: "token", Value: "", Path: "/", Expires: epoch, MaxAge: -1},
		{Name: "refresh_token", Value: "", Path: "/", Expires: epoch, MaxAge: -1},
		{Name: "sessionid", Value: "", Path: "/", Expires: epoch, MaxAge: -1},
	})
}

// tokenExpiry extracts the exp claim without verifying the signature; the
// client has no key material and only needs the timestamp for diagnostics.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
