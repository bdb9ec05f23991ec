package steamauth

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/oops"
)

// Client drives one Steam account: login, session bootstrap and the
// session-bound community actions. A Client is not safe for concurrent use;
// callers serialise access per account.
type Client struct {
	cfg    Config
	http   *resty.Client
	jar    *CookieStore
	parser SessionParser
	now    func() time.Time

	session   Session
	challenge Challenge
	proofs    proofs

	loggedIn bool
	authData map[string]any

	apiKey APIKeyState
}

// proofs held since the last successful login. Each one is resent on every
// attempt, whatever challenge Steam raises next.
type proofs struct {
	captchaGID    string
	captchaText   string
	emailSteamID  string
	emailCode     string
	twoFactorCode string
}

// Option customises a Client.
type Option func(*Client)

// WithSessionParser swaps the landing-page token parser.
func WithSessionParser(p SessionParser) Option {
	return func(c *Client) { c.parser = p }
}

// WithClock overrides the clock used for Steam Guard codes.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithTimeout sets the transport timeout. No operation in this package
// imposes its own deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.SetTimeout(d) }
}

// NewClient builds a client and opens the account's cookie jar. No request is
// made until the first operation.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	jar, err := OpenCookieStore(cfg.cookiePath())
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		jar:    jar,
		parser: MarkerParser{},
		now:    time.Now,
		http:   newHTTPClient(cfg, jar),
	}
	c.apiKey = APIKeyState{Value: cfg.WebAPIKey, Domain: cfg.APIKeyDomain, Provisioned: cfg.WebAPIKey != ""}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newHTTPClient(cfg Config, jar http.CookieJar) *resty.Client {
	client := resty.New()
	client.SetCookieJar(jar)
	client.SetHeader("User-Agent", browserUserAgent)
	client.SetHeader("Referer", cfg.CommunityURL+"/")
	if cfg.ProxyURL != "" {
		client.SetProxy(cfg.ProxyURL)
	}
	return client
}

// Username returns the account the client is bound to.
func (c *Client) Username() string { return c.cfg.Username }

// CookiePath is <storage>/<username>-cookie.
func (c *Client) CookiePath() string { return c.cfg.cookiePath() }

// AuthPath is <storage>/<username>-auth.
func (c *Client) AuthPath() string { return c.cfg.authPath() }

// CommunityURL is the base all community requests are sent to.
func (c *Client) CommunityURL() string { return c.cfg.CommunityURL }

// Session returns a copy of the current session.
func (c *Client) Session() Session { return c.session }

// Challenge returns the pending login challenge, if any.
func (c *Client) Challenge() Challenge { return c.challenge }

// LoggedIn reports whether the last Login call succeeded.
func (c *Client) LoggedIn() bool { return c.loggedIn }

// AuthData returns the transfer parameters from the last successful login,
// or nil if the client is not logged in.
func (c *Client) AuthData() map[string]any {
	if !c.loggedIn {
		return nil
	}
	return c.authData
}

// APIKey returns the provisioned Web-API key state.
func (c *Client) APIKey() APIKeyState { return c.apiKey }

// SetUsername rebinds the client to another account. The cookie jar is
// swapped for that account's jar and all session state is dropped.
func (c *Client) SetUsername(username string) error {
	if username == c.cfg.Username {
		return nil
	}
	cfg := c.cfg
	cfg.Username = username
	jar, err := OpenCookieStore(cfg.cookiePath())
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.jar = jar
	c.http.SetCookieJar(jar)
	c.session = Session{}
	c.challenge = Challenge{}
	c.proofs = proofs{}
	c.loggedIn = false
	c.authData = nil
	if cfg.WebAPIKey == "" {
		c.apiKey = APIKeyState{Domain: cfg.APIKeyDomain}
	}
	return nil
}

// SetPassword replaces the password used by the next Login call.
func (c *Client) SetPassword(password string) { c.cfg.Password = password }

// SetAPIKeyDomain sets the domain used to register a key after login.
func (c *Client) SetAPIKeyDomain(domain string) {
	c.cfg.APIKeyDomain = domain
	c.apiKey.Domain = domain
}

// SetCaptchaText supplies the answer for a NeedCaptcha challenge.
func (c *Client) SetCaptchaText(text string) { c.proofs.captchaText = text }

// SetEmailCode supplies the code for a NeedEmail challenge.
func (c *Client) SetEmailCode(code string) { c.proofs.emailCode = code }

// SetTwoFactorCode supplies the code for a Need2FA challenge.
func (c *Client) SetTwoFactorCode(code string) { c.proofs.twoFactorCode = code }

// CaptchaURL is where the image for the pending captcha can be fetched.
func (c *Client) CaptchaURL() string {
	if c.challenge.Kind != ChallengeCaptcha {
		return ""
	}
	return c.cfg.CommunityURL + "/public/captcha.php?gid=" + c.challenge.CaptchaGID
}

type request struct {
	method   string
	endpoint string
	query    map[string]string
	form     map[string]string
	headers  map[string]string
}

// send performs one community request. Transport errors and non-2xx statuses
// come back as ErrTransport; the jar is flushed to disk either way.
func (c *Client) send(ctx context.Context, r request) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if len(r.headers) > 0 {
		req.SetHeaders(r.headers)
	}
	if len(r.query) > 0 {
		req.SetQueryParams(r.query)
	}
	if len(r.form) > 0 {
		req.SetFormData(r.form)
	}

	resp, err := req.Execute(r.method, c.cfg.CommunityURL+r.endpoint)
	if saveErr := c.jar.Save(); saveErr != nil {
		log.Printf("steamauth: failed to persist cookies for %s: %v", c.cfg.Username, saveErr)
	}
	if err != nil {
		return nil, transportFailure(r.endpoint, err)
	}
	if resp.IsError() {
		return nil, transportFailure(r.endpoint, oops.With("status", resp.StatusCode()).Errorf("unexpected status %s", resp.Status()))
	}
	return resp.Body(), nil
}
