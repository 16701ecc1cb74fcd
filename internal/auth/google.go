package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"drive-autoposter/internal"
	"drive-autoposter/internal/logging"
)

// Scopes needed for listing/moving Drive files and uploading videos.
var Scopes = []string{
	drive.DriveScope,
	youtube.YoutubeUploadScope,
	youtube.YoutubeScope,
}

// Credential is the stored refresh credential exchanged once per run.
type Credential struct {
	RefreshToken string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

func CredentialFromConfig(cfg internal.Config) Credential {
	return Credential{
		RefreshToken: cfg.RefreshToken,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
}

// Services holds the typed handles built from one authenticated client.
type Services struct {
	Drive      *drive.Service
	YouTube    *youtube.Service
	HTTPClient *http.Client
	Token      *oauth2.Token
}

type Authenticator struct {
	cred Credential
	log  *logging.Logger

	// extra options for the service constructors (tests point these at httptest)
	serviceOpts []option.ClientOption
}

func NewAuthenticator(cred Credential, log *logging.Logger, opts ...option.ClientOption) *Authenticator {
	return &Authenticator{cred: cred, log: log, serviceOpts: opts}
}

func (a *Authenticator) oauthConfig() *oauth2.Config {
	endpoint := google.Endpoint
	if a.cred.TokenURL != "" {
		endpoint.TokenURL = a.cred.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return &oauth2.Config{
		ClientID:     a.cred.ClientID,
		ClientSecret: a.cred.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       Scopes,
	}
}

// Authenticate exchanges the refresh token for an access token (only when
// the current token is not valid, which on a fresh run it never is) and
// builds the Drive and YouTube services on top of it.
func (a *Authenticator) Authenticate(ctx context.Context) (*Services, error) {
	if a.cred.RefreshToken == "" {
		return nil, errors.New("auth: refresh token is empty")
	}

	conf := a.oauthConfig()
	tok := &oauth2.Token{RefreshToken: a.cred.RefreshToken}

	src := conf.TokenSource(ctx, tok)
	if !tok.Valid() {
		a.log.Infof("auth: refreshing access token via %s", conf.Endpoint.TokenURL)
		fresh, err := src.Token()
		if err != nil {
			return nil, fmt.Errorf("auth: token refresh: %w", err)
		}
		tok = fresh
		src = oauth2.ReuseTokenSource(tok, src)
	}

	client := oauth2.NewClient(ctx, src)

	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, a.serviceOpts...)
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: drive service: %w", err)
	}
	ytSvc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("auth: youtube service: %w", err)
	}

	a.log.Infof("auth: access token valid until %s", tok.Expiry.Format("15:04:05"))
	return &Services{Drive: driveSvc, YouTube: ytSvc, HTTPClient: client, Token: tok}, nil
}
