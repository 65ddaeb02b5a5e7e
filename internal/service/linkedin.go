package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deaglo/apigateway/internal/config"
	"github.com/deaglo/apigateway/internal/pkg/apperrors"
)

const (
	linkedinAuthorizeURL = "https://www.linkedin.com/oauth/v2/authorization"
	linkedinTokenURL     = "https://www.linkedin.com/oauth/v2/accessToken"
	linkedinProfileURL   = "https://api.linkedin.com/v2/userinfo"

	URITypeAuth = "auth"
	URITypeLink = "link"
)

// LinkedInProfile is the OpenID userinfo document.
type LinkedInProfile struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

type LinkedInClient struct {
	cfg        config.LinkedInConfig
	http       *http.Client
	tokenURL   string
	profileURL string
}

func NewLinkedInClient(cfg config.LinkedInConfig) *LinkedInClient {
	return &LinkedInClient{
		cfg:        cfg,
		http:       &http.Client{Timeout: 10 * time.Second},
		tokenURL:   linkedinTokenURL,
		profileURL: linkedinProfileURL,
	}
}

func (l *LinkedInClient) redirectURI(uriType string) (string, error) {
	switch uriType {
	case URITypeAuth:
		return l.cfg.RedirectURIAuth, nil
	case URITypeLink:
		return l.cfg.RedirectURILink, nil
	}
	return "", apperrors.Generic("Invalid uri_type", map[string]string{"message": "Invalid uri_type"}, http.StatusBadRequest)
}

// AuthorizationURL is where the client sends the browser. Anything but
// "auth" uses the account-linking redirect.
func (l *LinkedInClient) AuthorizationURL(urlType string, state int) string {
	uriType := URITypeLink
	if urlType == URITypeAuth {
		uriType = URITypeAuth
	}
	redirect, _ := l.redirectURI(uriType)
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {l.cfg.ClientID},
		"redirect_uri":  {redirect},
		"state":         {strconv.Itoa(state)},
		"scope":         {"openid email profile"},
	}
	return linkedinAuthorizeURL + "?" + params.Encode()
}

// Profile trades an authorization code for the member's profile.
func (l *LinkedInClient) Profile(ctx context.Context, code, uriType string) (*LinkedInProfile, error) {
	redirect, err := l.redirectURI(uriType)
	if err != nil {
		return nil, err
	}
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirect},
		"client_id":     {l.cfg.ClientID},
		"client_secret": {l.cfg.ClientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := l.doJSON(req, &token); err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, apperrors.Generic("Expired code",
			map[string]string{"message": "Try again authentication code is expired"}, http.StatusBadRequest)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, l.profileURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	var profile LinkedInProfile
	if err := l.doJSON(req, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (l *LinkedInClient) doJSON(req *http.Request, out any) error {
	resp, err := l.http.Do(req)
	if err != nil {
		return fmt.Errorf("linkedin %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()
	// error bodies still decode; a missing access_token is handled by the caller
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("linkedin %s: decode: %w", req.URL.Path, err)
	}
	return nil
}
