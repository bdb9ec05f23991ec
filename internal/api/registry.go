package api

import (
	"strings"
	"sync"

	"steam-trader/internal/services/steam"
	"steam-trader/internal/services/steamauth"
)

// Account serialises access to one account's client. A steamauth.Client is
// not safe for concurrent use and its cookie jar must never be shared.
type Account struct {
	mu     sync.Mutex
	client *steamauth.Client
}

// Do runs fn with exclusive access to the client.
func (a *Account) Do(fn func(c *steamauth.Client) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.client)
}

// Registry hands out exactly one client per username.
type Registry struct {
	mu        sync.Mutex
	accounts  map[string]*Account
	configFor func(username string) steamauth.Config
	opts      []steamauth.Option

	webAPIBase string
	proxyURL   string
}

func NewRegistry(configFor func(username string) steamauth.Config, opts ...steamauth.Option) *Registry {
	return &Registry{
		accounts:   make(map[string]*Account),
		configFor:  configFor,
		opts:       opts,
		webAPIBase: steam.DefaultAPIBase,
	}
}

// SetWebAPI configures the Web-API gateway handed out by WebAPI.
func (r *Registry) SetWebAPI(baseURL, proxyURL string) {
	r.webAPIBase = baseURL
	r.proxyURL = proxyURL
}

// Get returns the account for username, opening its cookie jar on first use.
func (r *Registry) Get(username string) (*Account, error) {
	username = strings.TrimSpace(username)
	r.mu.Lock()
	defer r.mu.Unlock()

	if acc, ok := r.accounts[username]; ok {
		return acc, nil
	}
	client, err := steamauth.NewClient(r.configFor(username), r.opts...)
	if err != nil {
		return nil, err
	}
	acc := &Account{client: client}
	r.accounts[username] = acc
	return acc, nil
}

// WebAPI builds a gateway bound to the client's key and identity.
func (r *Registry) WebAPI(c *steamauth.Client) *steam.WebAPI {
	return steam.NewWebAPI(c.APIKey().Value, c.Session().SteamID).
		SetBaseURL(r.webAPIBase).
		SetProxy(r.proxyURL)
}
