package steamauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSteamID = "76561198000000001"

type loginReply struct {
	body  string
	grant bool
}

// fakeSteam imitates the community endpoints the client talks to.
type fakeSteam struct {
	t      *testing.T
	server *httptest.Server
	key    *rsa.PrivateKey

	mu sync.Mutex

	rsaSuccess bool
	rsaHits    int

	loginReplies []loginReply
	loginForms   []url.Values
	loginAgents  []string
	passwords    []string

	landingHits int

	apiKeyPage      string
	apiKeyAfterReg  string
	apiKeyHits      int
	registerForms   []url.Values
	marketPage      string
	marketHits      int
	acceptBody      string
	acceptForms     []url.Values
	acceptReferers  []string
	reportBody      string
	reportForms     []url.Values
	inviteBody      string
	inviteForms     []url.Values
	failGetRSAKey   bool
	grantedSessions int
}

func newFakeSteam(t *testing.T) *fakeSteam {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)

	f := &fakeSteam{
		t:          t,
		key:        key,
		rsaSuccess: true,
		apiKeyPage: "<h2>Access Denied</h2>",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", f.landing)
	mux.HandleFunc("/login/getrsakey", f.getRSAKey)
	mux.HandleFunc("/login/dologin/", f.doLogin)
	mux.HandleFunc("/dev/apikey", f.apiKey)
	mux.HandleFunc("/dev/registerkey", f.registerKey)
	mux.HandleFunc("/market/", f.market)
	mux.HandleFunc("/tradeoffer/", f.acceptOffer)
	mux.HandleFunc("/actions/ReportAbuse/", f.reportAbuse)
	mux.HandleFunc("/actions/GroupInvite/", f.groupInvite)

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeSteam) config(t *testing.T) Config {
	return Config{
		Username:     "alice",
		Password:     "hunter2",
		StoragePath:  t.TempDir(),
		CommunityURL: f.server.URL,
	}
}

func (f *fakeSteam) newClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(f.config(t), opts...)
	require.NoError(t, err)
	return c
}

func (f *fakeSteam) reply(replies ...loginReply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginReplies = append(f.loginReplies, replies...)
}

func (f *fakeSteam) lastLoginForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(f.t, f.loginForms)
	return f.loginForms[len(f.loginForms)-1]
}

func authenticated(r *http.Request) bool {
	c, err := r.Cookie("steamLoginSecure")
	return err == nil && c.Value != ""
}

func (f *fakeSteam) landing(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	f.mu.Lock()
	f.landingHits++
	n := f.landingHits
	f.mu.Unlock()

	steamID := "false"
	if authenticated(r) {
		steamID = `"` + testSteamID + `"`
	}
	http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: fmt.Sprintf("sess%d", n), Path: "/"})
	fmt.Fprintf(w, "<html><script>\n\tg_steamID = %s;\n\tg_sessionID = \"sess%d\";\n</script></html>", steamID, n)
}

func (f *fakeSteam) getRSAKey(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, http.MethodPost, r.Method)
	assert.NoError(f.t, r.ParseForm())

	f.mu.Lock()
	defer f.mu.Unlock()
	f.rsaHits++
	if f.failGetRSAKey {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	if !f.rsaSuccess {
		fmt.Fprint(w, `{"success":false}`)
		return
	}
	fmt.Fprintf(w, `{"success":true,"publickey_mod":"%x","publickey_exp":"%x","timestamp":"12345","token_gid":"abc"}`,
		f.key.N, f.key.E)
}

func (f *fakeSteam) doLogin(w http.ResponseWriter, r *http.Request) {
	assert.Equal(f.t, http.MethodPost, r.Method)
	assert.NoError(f.t, r.ParseForm())

	enc, err := base64.StdEncoding.DecodeString(r.PostForm.Get("password"))
	assert.NoError(f.t, err)
	plain, err := rsa.DecryptPKCS1v15(nil, f.key, enc)
	assert.NoError(f.t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginForms = append(f.loginForms, r.PostForm)
	f.loginAgents = append(f.loginAgents, r.UserAgent())
	f.passwords = append(f.passwords, string(plain))

	if !assert.NotEmpty(f.t, f.loginReplies, "unexpected dologin call") {
		http.Error(w, "no reply", http.StatusInternalServerError)
		return
	}
	reply := f.loginReplies[0]
	if len(f.loginReplies) > 1 {
		f.loginReplies = f.loginReplies[1:]
	}
	if reply.grant {
		f.grantedSessions++
		http.SetCookie(w, &http.Cookie{
			Name:     "steamLoginSecure",
			Value:    fmt.Sprintf("%s%%7C%%7Ctoken%d", testSteamID, f.grantedSessions),
			Path:     "/",
			HttpOnly: true,
		})
	}
	fmt.Fprint(w, reply.body)
}

func (f *fakeSteam) apiKey(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKeyHits++
	page := f.apiKeyPage
	if f.apiKeyAfterReg != "" && len(f.registerForms) > 0 {
		page = f.apiKeyAfterReg
	}
	fmt.Fprint(w, page)
}

func (f *fakeSteam) registerKey(w http.ResponseWriter, r *http.Request) {
	assert.NoError(f.t, r.ParseForm())
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registerForms = append(f.registerForms, r.PostForm)
	fmt.Fprint(w, "<html>registered</html>")
}

func (f *fakeSteam) market(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marketHits++
	fmt.Fprint(w, f.marketPage)
}

func (f *fakeSteam) acceptOffer(w http.ResponseWriter, r *http.Request) {
	assert.True(f.t, strings.HasSuffix(r.URL.Path, "/accept"))
	assert.NoError(f.t, r.ParseForm())
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acceptForms = append(f.acceptForms, r.PostForm)
	f.acceptReferers = append(f.acceptReferers, r.Referer())
	fmt.Fprint(w, f.acceptBody)
}

func (f *fakeSteam) reportAbuse(w http.ResponseWriter, r *http.Request) {
	assert.NoError(f.t, r.ParseForm())
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportForms = append(f.reportForms, r.PostForm)
	fmt.Fprint(w, f.reportBody)
}

func (f *fakeSteam) groupInvite(w http.ResponseWriter, r *http.Request) {
	assert.NoError(f.t, r.ParseForm())
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inviteForms = append(f.inviteForms, r.PostForm)
	fmt.Fprint(w, f.inviteBody)
}

const successReply = `{"success":true,"requires_twofactor":false,"login_complete":true,` +
	`"transfer_urls":["https://store.steampowered.com/login/transfer"],` +
	`"transfer_parameters":{"steamid":"76561198000000001","token_secure":"tok","auth":"a1","remember_login":false},` +
	`"oauth":"{\"steamid\":\"76561198000000001\",\"oauth_token\":\"oauth-1\"}"}`

// loggedInClient logs the client in against f.
func loggedInClient(t *testing.T, f *fakeSteam, opts ...Option) *Client {
	t.Helper()
	f.reply(loginReply{body: successReply, grant: true})
	c := f.newClient(t, opts...)
	res, err := c.Login(context.Background())
	require.NoError(t, err)
	require.Equal(t, LoginSuccess, res.Code)
	return c
}
