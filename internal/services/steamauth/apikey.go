package steamauth

import (
	"context"
	"log"
	"net/http"
	"regexp"
)

// maxAPIKeyAttempts caps how many times the key page is checked. It is a hard
// limit, not a tunable.
const maxAPIKeyAttempts = 3

// APIKeyState is the outcome of provisioning. Once Provisioned is set an
// empty Value is a terminal answer meaning "no key available", not a
// retryable failure.
type APIKeyState struct {
	Value       string `json:"value"`
	Domain      string `json:"domain,omitempty"`
	Provisioned bool   `json:"provisioned"`
}

var (
	apiKeyDeniedMarker = regexp.MustCompile(`<h2>Access Denied</h2>`)
	apiKeyMarker       = regexp.MustCompile(`<p>Key: (.*?)</p>`)
)

// EnsureAPIKey reads the account's Web-API key, registering one for the
// configured domain when none exists. It is a no-op when a key was given in
// Config. Only transport failures are returned as errors.
func (c *Client) EnsureAPIKey(ctx context.Context) (APIKeyState, error) {
	if c.cfg.WebAPIKey != "" {
		return c.apiKey, nil
	}

	state := APIKeyState{Domain: c.cfg.APIKeyDomain, Provisioned: true}
	for attempt := 1; ; attempt++ {
		body, err := c.send(ctx, request{
			method:   http.MethodGet,
			endpoint: "/dev/apikey",
			query:    map[string]string{"l": "english"},
		})
		if err != nil {
			return c.apiKey, err
		}

		if apiKeyDeniedMarker.Match(body) {
			break
		}
		if m := apiKeyMarker.FindSubmatch(body); m != nil {
			state.Value = string(m[1])
			break
		}
		if state.Domain == "" || attempt >= maxAPIKeyAttempts {
			break
		}
		if err := c.registerAPIKey(ctx, state.Domain); err != nil {
			return c.apiKey, err
		}
	}

	if state.Value == "" {
		log.Printf("steamauth: no web api key available for %s", c.cfg.Username)
	}
	c.apiKey = state
	return state, nil
}

func (c *Client) registerAPIKey(ctx context.Context, domain string) error {
	_, err := c.send(ctx, request{
		method:   http.MethodPost,
		endpoint: "/dev/registerkey",
		form: map[string]string{
			"domain":       domain,
			"agreeToTerms": "agreed",
			"sessionid":    c.session.SessionID,
			"Submit":       "Register",
		},
		headers: map[string]string{"Referer": c.cfg.CommunityURL + "/dev/apikey?l=english"},
	})
	return err
}
