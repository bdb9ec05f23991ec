package steamauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
)

// ChallengeKind tags the proof Steam is waiting for.
type ChallengeKind int

const (
	ChallengeNone ChallengeKind = iota
	ChallengeCaptcha
	ChallengeEmail
	ChallengeTwoFactor
)

func (k ChallengeKind) String() string {
	switch k {
	case ChallengeCaptcha:
		return "captcha"
	case ChallengeEmail:
		return "email"
	case ChallengeTwoFactor:
		return "two_factor"
	default:
		return "none"
	}
}

func (k ChallengeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ChallengeKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none", "":
		*k = ChallengeNone
	case "captcha":
		*k = ChallengeCaptcha
	case "email":
		*k = ChallengeEmail
	case "two_factor":
		*k = ChallengeTwoFactor
	default:
		return fmt.Errorf("unknown challenge kind %q", string(text))
	}
	return nil
}

// Challenge is the single pending login challenge. It is set by a login
// attempt that Steam answered with a challenge and cleared by a successful
// attempt or replaced by a challenge of another kind.
type Challenge struct {
	Kind ChallengeKind `json:"kind"`
	// CaptchaGID identifies the captcha image for ChallengeCaptcha.
	CaptchaGID string `json:"captcha_gid,omitempty"`
	// SteamIDHint is sent back as emailsteamid for email and two-factor
	// challenges.
	SteamIDHint string `json:"steam_id_hint,omitempty"`
}

// AuthResult is the outcome of one Login call.
type AuthResult struct {
	Code Code `json:"code"`
	// Response is the raw dologin payload when it was valid JSON.
	Response json.RawMessage `json:"response,omitempty"`
}

const incorrectCredentialsPhrase = "account name or password that you have entered is incorrect"

// flexString decodes JSON strings and numbers alike; Steam sends ids both ways.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

type loginResponse struct {
	Success            bool           `json:"success"`
	Message            string         `json:"message"`
	CaptchaNeeded      bool           `json:"captcha_needed"`
	CaptchaGID         flexString     `json:"captcha_gid"`
	EmailAuthNeeded    bool           `json:"emailauth_needed"`
	EmailSteamID       flexString     `json:"emailsteamid"`
	RequiresTwoFactor  bool           `json:"requires_twofactor"`
	LoginComplete      *bool          `json:"login_complete"`
	OAuth              flexString     `json:"oauth"`
	TransferParameters map[string]any `json:"transfer_parameters"`
}

// Login runs one login attempt: fetch the RSA key, encrypt the password,
// submit dologin and interpret the answer.
//
// Challenge outcomes (NeedCaptcha, NeedEmail, Need2FA, BadCredentials) are
// results, not errors: supply the missing proof through the setters and call
// Login again. The error is non-nil only for transport failures or when the
// post-login bootstrap finds an unexpected page.
func (c *Client) Login(ctx context.Context) (AuthResult, error) {
	key, err := c.FetchRSAKey(ctx, c.cfg.Username)
	switch {
	case errors.Is(err, ErrBadRSA):
		return AuthResult{Code: BadRsa}, nil
	case errors.Is(err, ErrUnexpectedResponse):
		return AuthResult{Code: LoginFail}, nil
	case err != nil:
		return AuthResult{Code: LoginFail}, err
	}

	encrypted, err := EncryptPassword(c.cfg.Password, key)
	if err != nil {
		return AuthResult{Code: BadRsa}, nil
	}

	params, err := c.loginParams(encrypted, key.Timestamp)
	if err != nil {
		return AuthResult{Code: LoginFail}, err
	}

	body, err := c.send(ctx, request{
		method:   http.MethodPost,
		endpoint: "/login/dologin/",
		query:    map[string]string{"l": "english"},
		form:     params,
		headers:  map[string]string{"User-Agent": loginUserAgent},
	})
	if err != nil {
		return AuthResult{Code: LoginFail}, err
	}

	result := AuthResult{Code: LoginFail}
	if json.Valid(body) {
		result.Response = json.RawMessage(body)
	}
	var res loginResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return result, nil
	}

	switch {
	case res.CaptchaNeeded:
		c.challenge = Challenge{Kind: ChallengeCaptcha, CaptchaGID: string(res.CaptchaGID)}
		c.proofs.captchaGID = c.challenge.CaptchaGID
		result.Code = NeedCaptcha
	case res.EmailAuthNeeded:
		c.challenge = Challenge{Kind: ChallengeEmail, SteamIDHint: string(res.EmailSteamID)}
		c.proofs.emailSteamID = c.challenge.SteamIDHint
		result.Code = NeedEmail
	case res.RequiresTwoFactor && !res.Success:
		c.challenge = Challenge{Kind: ChallengeTwoFactor, SteamIDHint: c.twoFactorHint(res)}
		result.Code = Need2FA
	case res.LoginComplete != nil && !*res.LoginComplete:
		result.Code = BadCredentials
	case strings.Contains(strings.ToLower(res.Message), incorrectCredentialsPhrase):
		result.Code = BadCredentials
	case res.Success:
		if err := c.finalizeLogin(ctx, res); err != nil {
			return result, err
		}
		result.Code = LoginSuccess
	}

	if result.Code.IsChallenge() {
		log.Printf("steamauth: %s login needs %s", c.cfg.Username, c.challenge.Kind)
	}
	return result, nil
}

// loginParams assembles the dologin form. Whatever proofs are currently held
// are always sent.
func (c *Client) loginParams(encryptedPassword, rsaTimestamp string) (map[string]string, error) {
	twoFactor := c.proofs.twoFactorCode
	if twoFactor == "" && c.cfg.SharedSecret != "" {
		code, err := GenerateSteamGuardCode(c.cfg.SharedSecret, c.now())
		if err != nil {
			return nil, err
		}
		twoFactor = code
	}

	params := map[string]string{
		"username":       c.cfg.Username,
		"password":       encryptedPassword,
		"twofactorcode":  twoFactor,
		"captchagid":     "-1",
		"captcha_text":   "",
		"emailsteamid":   "",
		"emailauth":      "",
		"rsatimestamp":   rsaTimestamp,
		"remember_login": "false",
	}
	if c.proofs.captchaGID != "" {
		params["captchagid"] = c.proofs.captchaGID
		params["captcha_text"] = c.proofs.captchaText
	}
	if c.proofs.emailSteamID != "" {
		params["emailsteamid"] = c.proofs.emailSteamID
		params["emailauth"] = c.proofs.emailCode
	}
	if c.challenge.Kind == ChallengeTwoFactor && c.challenge.SteamIDHint != "" {
		params["emailsteamid"] = c.challenge.SteamIDHint
	}
	return params, nil
}

func (c *Client) twoFactorHint(res loginResponse) string {
	if res.EmailSteamID != "" {
		return string(res.EmailSteamID)
	}
	if c.challenge.SteamIDHint != "" {
		return c.challenge.SteamIDHint
	}
	return c.session.SteamID
}

// finalizeLogin runs after Steam accepted the credentials: persist the oauth
// token, replace the session from the now-authenticated jar, keep the
// transfer parameters and provision the API key once.
func (c *Client) finalizeLogin(ctx context.Context, res loginResponse) error {
	if res.OAuth != "" {
		if err := writeFileAtomic(c.cfg.authPath(), []byte(res.OAuth)); err != nil {
			log.Printf("steamauth: failed to persist oauth token for %s: %v", c.cfg.Username, err)
		}
	}

	c.session = Session{}
	if _, err := c.Bootstrap(ctx); err != nil {
		c.loggedIn = false
		return err
	}

	c.loggedIn = true
	c.authData = res.TransferParameters
	c.challenge = Challenge{}
	c.proofs = proofs{}

	if _, err := c.EnsureAPIKey(ctx); err != nil {
		log.Printf("steamauth: api key provisioning for %s failed: %v", c.cfg.Username, err)
	}
	return nil
}

// StoredOAuthToken reads the long-lived token written by the last successful
// login, if Steam issued one.
func (c *Client) StoredOAuthToken() (string, error) {
	data, err := os.ReadFile(c.cfg.authPath())
	if err != nil {
		return "", err
	}
	return string(data), nil
}
