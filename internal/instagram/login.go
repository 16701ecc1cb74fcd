package instagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"drive-autoposter/internal/logging"
)

type Credentials struct {
	Username string
	Password string
	// Session is the stored settings blob; may be empty.
	Session string
}

// Login restores the stored session and verifies it. When the session is
// missing or rejected it falls back to a password login on the same device.
func Login(ctx context.Context, baseURL string, creds Credentials, log *logging.Logger, opts ...Option) (*Client, error) {
	sess, err := ParseSession(creds.Session)
	if err != nil {
		log.Warnf("instagram: stored session unusable (%v), starting a fresh one", err)
		sess = NewSession()
	}

	c, err := NewClient(baseURL, sess, log, opts...)
	if err != nil {
		return nil, err
	}

	if sess.Authenticated() {
		user, err := c.CurrentUser(ctx)
		if err == nil {
			log.Infof("instagram: session restored for %s", user)
			return c, nil
		}
		if errors.Is(err, ErrChallenge) {
			return nil, err
		}
		log.Warnf("instagram: stored session rejected: %v", err)
	}

	if creds.Username == "" || creds.Password == "" {
		return nil, fmt.Errorf("%w: no username/password to fall back on", ErrLoginRequired)
	}
	if err := c.passwordLogin(ctx, creds.Username, creds.Password); err != nil {
		return nil, err
	}
	log.Infof("instagram: logged in as %s", creds.Username)
	return c, nil
}

// signedBody wraps a payload the way the mobile app signs requests.
func signedBody(payload map[string]any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return url.Values{"signed_body": {"SIGNATURE." + string(b)}}.Encode(), nil
}

func (c *Client) passwordLogin(ctx context.Context, username, password string) error {
	c.sess.AuthorizationData = Authorization{}

	ts := strconv.FormatInt(c.now().Unix(), 10)
	body, err := signedBody(map[string]any{
		"username":            username,
		"enc_password":        "#PWD_INSTAGRAM:0:" + ts + ":" + password,
		"phone_id":            c.sess.UUIDs.PhoneID,
		"guid":                c.sess.UUIDs.UUID,
		"device_id":           c.sess.UUIDs.AndroidDeviceID,
		"adid":                c.sess.UUIDs.AdvertisingID,
		"login_attempt_count": "0",
		"google_tokens":       "[]",
		"country_codes":       `[{"country_code":"1","source":["default"]}]`,
		"jazoest":             jazoest(c.sess.UUIDs.PhoneID),
	})
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/accounts/login/", strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	doc, _, err := c.do(req)
	if err != nil {
		return fmt.Errorf("instagram: login %s: %w", username, err)
	}
	if !c.sess.Authenticated() {
		return fmt.Errorf("instagram: login %s: no authorization in response", username)
	}
	if pk := doc.Get("logged_in_user.pk").String(); pk != "" {
		c.sess.AuthorizationData.DSUserID = pk
	}
	c.sess.LastLogin = c.now().Unix()
	return nil
}

func jazoest(s string) string {
	sum := 0
	for _, r := range s {
		sum += int(r)
	}
	return "2" + strconv.Itoa(sum)
}
