package instagram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
	"golang.org/x/net/publicsuffix"

	"drive-autoposter/internal/logging"
)

const (
	DefaultBaseURL = "https://i.instagram.com"
	appID          = "567067343352427"
)

var (
	// ErrLoginRequired means the stored session was rejected.
	ErrLoginRequired = errors.New("instagram: login required")
	// ErrChallenge means the account needs a manual checkpoint.
	ErrChallenge = errors.New("instagram: challenge required")
)

// APIError is a non-ok private API response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("instagram: api error %d: %s", e.Status, e.Message)
}

// Client talks to the private mobile API on behalf of one session.
type Client struct {
	baseURL string
	http    *http.Client
	sess    *Session
	log     *logging.Logger

	pollEvery time.Duration
	pollMax   int
	now       func() time.Time
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithPolling sets how often and how many times configure is retried while
// the server is still transcoding.
func WithPolling(every time.Duration, max int) Option {
	return func(c *Client) { c.pollEvery, c.pollMax = every, max }
}

func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func NewClient(baseURL string, sess *Session, log *logging.Logger, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if sess == nil {
		sess = NewSession()
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 5 * time.Minute},
		sess:      sess,
		log:       log,
		pollEvery: 4 * time.Second,
		pollMax:   10,
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}

	if u, err := url.Parse(c.baseURL); err == nil && len(sess.Cookies) > 0 {
		cookies := make([]*http.Cookie, 0, len(sess.Cookies))
		for k, v := range sess.Cookies {
			cookies = append(cookies, &http.Cookie{Name: k, Value: v})
		}
		c.http.Jar.SetCookies(u, cookies)
	}
	return c, nil
}

func (c *Client) Session() *Session { return c.sess }

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	h := req.Header
	h.Set("User-Agent", c.sess.UserAgent)
	h.Set("X-IG-App-ID", appID)
	h.Set("X-IG-Device-ID", c.sess.UUIDs.UUID)
	h.Set("X-IG-Android-ID", c.sess.UUIDs.AndroidDeviceID)
	h.Set("X-IG-Capabilities", "3brTvx0=")
	h.Set("X-IG-Connection-Type", "WIFI")
	h.Set("Accept-Language", "en-US")
	if c.sess.MID != "" {
		h.Set("X-MID", c.sess.MID)
	}
	if auth := c.sess.AuthHeader(); auth != "" {
		h.Set("Authorization", auth)
		h.Set("IG-U-DS-USER-ID", c.sess.AuthorizationData.DSUserID)
	}
	return req, nil
}

// do sends req and returns the parsed JSON body of an ok response.
func (c *Client) do(req *http.Request) (gjson.Result, *http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, resp, err
	}
	if auth := resp.Header.Get("ig-set-authorization"); auth != "" && !strings.HasSuffix(auth, ":") {
		if err := c.sess.setAuthHeader(auth); err != nil {
			c.log.Warnf("instagram: %v", err)
		}
	}
	if mid := resp.Header.Get("ig-set-x-mid"); mid != "" {
		c.sess.MID = mid
	}

	doc := gjson.ParseBytes(b)
	if resp.StatusCode/100 == 2 && doc.Get("status").String() != "fail" {
		return doc, resp, nil
	}
	return doc, resp, classify(resp.StatusCode, doc, b)
}

func classify(status int, doc gjson.Result, raw []byte) error {
	msg := doc.Get("message").String()
	switch {
	case msg == "login_required" || doc.Get("logout_reason").Exists():
		return ErrLoginRequired
	case msg == "challenge_required" || msg == "checkpoint_required" || doc.Get("challenge").Exists():
		return ErrChallenge
	}
	if msg == "" {
		msg = lo.Substring(strings.TrimSpace(string(raw)), 0, 200)
	}
	return &APIError{Status: status, Message: msg}
}

// CurrentUser verifies the session and returns the logged-in username.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/accounts/current_user/?edit=true", nil)
	if err != nil {
		return "", err
	}
	doc, _, err := c.do(req)
	if err != nil {
		return "", err
	}
	user := doc.Get("user")
	if !user.Exists() {
		return "", ErrLoginRequired
	}
	if pk := user.Get("pk").String(); pk != "" && c.sess.AuthorizationData.DSUserID == "" {
		c.sess.AuthorizationData.DSUserID = pk
	}
	return user.Get("username").String(), nil
}
