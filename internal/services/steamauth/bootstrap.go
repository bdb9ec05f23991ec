package steamauth

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

// AnonymousSteamID is the identity Steam reports for a jar without a login.
const AnonymousSteamID = "0"

// Session is the identity recognised by Steam for the current cookie jar.
// It is always replaced as a whole, never patched field by field.
type Session struct {
	SteamID   string `json:"steam_id"`
	SessionID string `json:"session_id"`
}

// Authenticated reports whether the session carries a real account identity.
// An unknown ("") or anonymous ("0") identity permits no account actions.
func (s Session) Authenticated() bool {
	return s.SteamID != "" && s.SteamID != AnonymousSteamID
}

// SessionParser extracts the session tokens from the community landing page.
type SessionParser interface {
	ParseSession(body []byte) (Session, error)
}

// MarkerParser is version 1 of the landing-page contract: the page must
// contain the script assignments
//
//	g_steamID = "<id>";     (or g_steamID = false; when anonymous)
//	g_sessionID = "<token>";
//
// A missing assignment is an ErrUnexpectedResponse.
type MarkerParser struct{}

var (
	steamIDMarker   = regexp.MustCompile(`g_steamID = (.*?);`)
	sessionIDMarker = regexp.MustCompile(`g_sessionID = (.*?);`)
)

func (MarkerParser) ParseSession(body []byte) (Session, error) {
	m := steamIDMarker.FindSubmatch(body)
	if m == nil {
		return Session{}, unexpectedResponse("bootstrap", "g_steamID marker not found")
	}
	steamID := strings.ReplaceAll(string(m[1]), `"`, "")
	if steamID == "false" {
		steamID = AnonymousSteamID
	}

	m = sessionIDMarker.FindSubmatch(body)
	if m == nil {
		return Session{}, unexpectedResponse("bootstrap", "g_sessionID marker not found")
	}
	sessionID := strings.ReplaceAll(string(m[1]), `"`, "")

	return Session{SteamID: steamID, SessionID: sessionID}, nil
}

// Bootstrap loads the landing page with the account's cookie jar and replaces
// the session with the identity found there. The jar itself is untouched
// beyond whatever cookies the response sets.
func (c *Client) Bootstrap(ctx context.Context) (Session, error) {
	body, err := c.send(ctx, request{
		method:   http.MethodGet,
		endpoint: "/",
		query:    map[string]string{"l": "english"},
	})
	if err != nil {
		return Session{}, err
	}
	session, err := c.parser.ParseSession(body)
	if err != nil {
		return Session{}, err
	}
	c.session = session
	return session, nil
}

// ensureSession lazily re-bootstraps when the cached identity is unknown or
// anonymous, e.g. after restoring a cookie jar without calling Login.
func (c *Client) ensureSession(ctx context.Context, action string) error {
	if c.session.Authenticated() && c.session.SessionID != "" {
		return nil
	}
	session, err := c.Bootstrap(ctx)
	if err != nil {
		return err
	}
	if !session.Authenticated() {
		return notLoggedIn(action)
	}
	return nil
}
