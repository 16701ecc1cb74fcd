package instagram

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

const DefaultUserAgent = "Instagram 269.0.0.18.75 Android (26/8.0.0; 480dpi; 1080x1920; OnePlus; 6T Dev; devitron; qcom; en_US; 314665256)"

// Device holds the per-install identifiers the private API expects on
// every call. They must survive re-logins or the account looks like it
// hopped devices.
type Device struct {
	PhoneID         string `json:"phone_id"`
	UUID            string `json:"uuid"`
	ClientSessionID string `json:"client_session_id"`
	AdvertisingID   string `json:"advertising_id"`
	AndroidDeviceID string `json:"android_device_id"`
}

type Authorization struct {
	DSUserID  string `json:"ds_user_id"`
	SessionID string `json:"sessionid"`
}

// Session is the settings blob stored in INSTA_SESSION. The layout follows
// the instagrapi settings dump so existing blobs can be reused.
type Session struct {
	UUIDs             Device            `json:"uuids"`
	AuthorizationData Authorization     `json:"authorization_data"`
	Cookies           map[string]string `json:"cookies"`
	UserAgent         string            `json:"user_agent"`
	MID               string            `json:"mid,omitempty"`
	LastLogin         int64             `json:"last_login,omitempty"`
}

func NewDevice() Device {
	return Device{
		PhoneID:         uuid.NewString(),
		UUID:            uuid.NewString(),
		ClientSessionID: uuid.NewString(),
		AdvertisingID:   uuid.NewString(),
		AndroidDeviceID: "android-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
	}
}

// NewSession returns an unauthenticated session on a fresh device.
func NewSession() *Session {
	return &Session{UUIDs: NewDevice(), Cookies: map[string]string{}, UserAgent: DefaultUserAgent}
}

// ParseSession reads a settings blob. Missing device ids are generated;
// credentials may come from authorization_data or from the cookies.
func ParseSession(blob string) (*Session, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return nil, errors.New("instagram: empty session")
	}
	if !gjson.Valid(blob) {
		return nil, errors.New("instagram: session is not valid JSON")
	}
	doc := gjson.Parse(blob)
	fresh := NewDevice()

	s := &Session{
		UUIDs: Device{
			PhoneID:         coalesce(doc.Get("uuids.phone_id").String(), fresh.PhoneID),
			UUID:            coalesce(doc.Get("uuids.uuid").String(), fresh.UUID),
			ClientSessionID: coalesce(doc.Get("uuids.client_session_id").String(), fresh.ClientSessionID),
			AdvertisingID:   coalesce(doc.Get("uuids.advertising_id").String(), fresh.AdvertisingID),
			AndroidDeviceID: coalesce(doc.Get("uuids.android_device_id").String(), fresh.AndroidDeviceID),
		},
		Cookies:   map[string]string{},
		UserAgent: coalesce(doc.Get("user_agent").String(), DefaultUserAgent),
		MID:       doc.Get("mid").String(),
		LastLogin: doc.Get("last_login").Int(),
	}
	doc.Get("cookies").ForEach(func(k, v gjson.Result) bool {
		s.Cookies[k.String()] = v.String()
		return true
	})

	s.AuthorizationData = Authorization{
		DSUserID:  coalesce(doc.Get("authorization_data.ds_user_id").String(), s.Cookies["ds_user_id"]),
		SessionID: coalesce(doc.Get("authorization_data.sessionid").String(), s.Cookies["sessionid"]),
	}
	return s, nil
}

func (s *Session) Authenticated() bool {
	return s.AuthorizationData.SessionID != ""
}

// AuthHeader is the bearer value sent in the Authorization header.
func (s *Session) AuthHeader() string {
	if !s.Authenticated() {
		return ""
	}
	b, _ := json.Marshal(s.AuthorizationData)
	return "Bearer IGT:2:" + base64.StdEncoding.EncodeToString(b)
}

// setAuthHeader decodes an ig-set-authorization response header.
func (s *Session) setAuthHeader(v string) error {
	const prefix = "Bearer IGT:2:"
	if !strings.HasPrefix(v, prefix) {
		return fmt.Errorf("instagram: unexpected authorization header %q", v)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v, prefix))
	if err != nil {
		return fmt.Errorf("instagram: decode authorization: %w", err)
	}
	var a Authorization
	if err := json.Unmarshal(raw, &a); err != nil {
		return fmt.Errorf("instagram: decode authorization: %w", err)
	}
	if a.SessionID == "" {
		return errors.New("instagram: authorization without sessionid")
	}
	s.AuthorizationData = a
	return nil
}

func (s *Session) Marshal() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func coalesce(vals ...string) string {
	v, _ := lo.Coalesce(vals...)
	return v
}
