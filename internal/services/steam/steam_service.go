package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/oops"
)

const DefaultAPIBase = "https://api.steampowered.com"

// WebAPI is a thin gateway to the Steam Web-API: every call is
// (interface, method, version, params) and the account key is injected
// unless the caller passed one.
type WebAPI struct {
	baseURL string
	apiKey  string
	steamID string
	client  *resty.Client
}

// Response is the raw Web-API answer.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsOK reports a 200 status.
func (r *Response) IsOK() bool {
	return r.StatusCode == http.StatusOK
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return oops.In("steam").Code("steam_webapi_decode").Wrapf(err, "decode web api response")
	}
	return nil
}

func NewWebAPI(apiKey, steamID string) *WebAPI {
	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &WebAPI{
		baseURL: DefaultAPIBase,
		apiKey:  apiKey,
		steamID: steamID,
		client:  client,
	}
}

// SetBaseURL points the gateway at another host.
func (s *WebAPI) SetBaseURL(base string) *WebAPI {
	s.baseURL = strings.TrimRight(base, "/")
	return s
}

// SetProxy routes Web-API traffic through proxyURL.
func (s *WebAPI) SetProxy(proxyURL string) *WebAPI {
	if proxyURL != "" {
		s.client.SetProxy(proxyURL)
	}
	return s
}

func (s *WebAPI) APIKey() string     { return s.apiKey }
func (s *WebAPI) SetAPIKey(k string) { s.apiKey = k }
func (s *WebAPI) SteamID() string    { return s.steamID }
func (s *WebAPI) SetSteamID(id string) {
	s.steamID = id
}

// BuildURL returns <base>/<iface>/<method>/<version>/.
func (s *WebAPI) BuildURL(iface, method, version string) string {
	return fmt.Sprintf("%s/%s/%s/%s/", s.baseURL, iface, method, version)
}

// Call performs one Web-API request. GET sends params in the query string,
// anything else as a form body.
func (s *WebAPI) Call(ctx context.Context, httpMethod, iface, method, version string, params map[string]string) (*Response, error) {
	values := make(map[string]string, len(params)+1)
	for k, v := range params {
		values[k] = v
	}
	if _, ok := values["key"]; !ok {
		values["key"] = s.apiKey
	}

	httpMethod = strings.ToUpper(httpMethod)
	req := s.client.R().SetContext(ctx)
	if httpMethod == http.MethodGet {
		req.SetQueryParams(values)
	} else {
		req.SetFormData(values)
	}

	resp, err := req.Execute(httpMethod, s.BuildURL(iface, method, version))
	if err != nil {
		return nil, oops.
			In("steam").
			Code("steam_webapi_transport").
			With("interface", iface, "method", method).
			Wrapf(err, "call %s/%s", iface, method)
	}
	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}

// IEconService

func (s *WebAPI) GetTradeOffers(ctx context.Context, params map[string]string) (*Response, error) {
	return s.Call(ctx, http.MethodGet, "IEconService", "GetTradeOffers", "v1", params)
}

func (s *WebAPI) GetTradeOffer(ctx context.Context, params map[string]string) (*Response, error) {
	return s.Call(ctx, http.MethodGet, "IEconService", "GetTradeOffer", "v1", params)
}

func (s *WebAPI) GetTradeOffersSummary(ctx context.Context, params map[string]string) (*Response, error) {
	return s.Call(ctx, http.MethodGet, "IEconService", "GetTradeOffersSummary", "v1", params)
}

func (s *WebAPI) CancelTradeOffer(ctx context.Context, params map[string]string) (*Response, error) {
	return s.Call(ctx, http.MethodPost, "IEconService", "CancelTradeOffer", "v1", params)
}

func (s *WebAPI) DeclineTradeOffer(ctx context.Context, params map[string]string) (*Response, error) {
	return s.Call(ctx, http.MethodPost, "IEconService", "DeclineTradeOffer", "v1", params)
}

// ISteamUser

func (s *WebAPI) GetFriendList(ctx context.Context, steamID string) (*Response, error) {
	return s.Call(ctx, http.MethodGet, "ISteamUser", "GetFriendList", "v1", map[string]string{"steamid": steamID})
}

func (s *WebAPI) GetPlayerBans(ctx context.Context, steamIDs ...string) (*Response, error) {
	return s.Call(ctx, http.MethodGet, "ISteamUser", "GetPlayerBans", "v1", map[string]string{"steamids": strings.Join(steamIDs, ",")})
}

func (s *WebAPI) GetPlayerSummaries(ctx context.Context, steamIDs ...string) (*Response, error) {
	return s.Call(ctx, http.MethodGet, "ISteamUser", "GetPlayerSummaries", "v2", map[string]string{"steamids": strings.Join(steamIDs, ",")})
}

func (s *WebAPI) GetUserGroupList(ctx context.Context, steamID string) (*Response, error) {
	return s.Call(ctx, http.MethodGet, "ISteamUser", "GetUserGroupList", "v1", map[string]string{"steamid": steamID})
}

func (s *WebAPI) ResolveVanityURL(ctx context.Context, vanityURL string, urlType int) (*Response, error) {
	return s.Call(ctx, http.MethodGet, "ISteamUser", "ResolveVanityURL", "v1", map[string]string{
		"vanityurl": vanityURL,
		"url_type":  strconv.Itoa(urlType),
	})
}

type SteamUser struct {
	SteamID     string `json:"steamid"`
	PersonaName string `json:"personaname"`
	Avatar      string `json:"avatar"`
	AvatarFull  string `json:"avatarfull"`
}

type SteamUserResponse struct {
	Response struct {
		Players []SteamUser `json:"players"`
	} `json:"response"`
}

// GetUserInfo returns the profile summary of one account.
func (s *WebAPI) GetUserInfo(ctx context.Context, steamID string) (*SteamUser, error) {
	resp, err := s.GetPlayerSummaries(ctx, steamID)
	if err != nil {
		return nil, err
	}

	var steamResp SteamUserResponse
	if err := resp.Decode(&steamResp); err != nil {
		return nil, err
	}

	if len(steamResp.Response.Players) == 0 {
		return nil, oops.
			In("steam").
			Code("steam_user_not_found").
			With("steam_id", steamID).
			Errorf("user %s not found", steamID)
	}

	player := steamResp.Response.Players[0]
	return &player, nil
}

// ValidateAPIKey checks the key against a known public profile.
func (s *WebAPI) ValidateAPIKey(ctx context.Context) error {
	resp, err := s.GetPlayerSummaries(ctx, "76561197960435530")
	if err != nil {
		return err
	}

	if !resp.IsOK() {
		return oops.
			In("steam").
			Code("steam_invalid_api_key").
			With("status", resp.StatusCode).
			Errorf("invalid API key")
	}

	return nil
}
