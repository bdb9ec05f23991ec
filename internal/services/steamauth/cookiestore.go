package steamauth

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"golang.org/x/net/publicsuffix"
)

// storedCookie is the on-disk form of one cookie.
type storedCookie struct {
	Domain   string     `json:"domain"`
	HostOnly bool       `json:"host_only,omitempty"`
	Path     string     `json:"path"`
	Name     string     `json:"name"`
	Value    string     `json:"value"`
	Expires  *time.Time `json:"expires,omitempty"`
	Secure   bool       `json:"secure,omitempty"`
	HttpOnly bool       `json:"http_only,omitempty"`
}

func (s storedCookie) key() string {
	return s.Domain + "|" + s.Path + "|" + s.Name
}

func (s storedCookie) expired(now time.Time) bool {
	return s.Expires != nil && !s.Expires.After(now)
}

// CookieStore is a file-backed http.CookieJar owned by exactly one account.
// Lookups are served by a standard cookiejar; every cookie the jar accepts is
// mirrored so it can be written back to disk, session cookies included.
type CookieStore struct {
	mu      sync.Mutex
	path    string
	jar     *cookiejar.Jar
	cookies map[string]storedCookie
	now     func() time.Time
}

// OpenCookieStore loads the jar at path. A missing file yields an empty jar.
func OpenCookieStore(path string) (*CookieStore, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, oops.In("steamauth").Code(codeStorage).Wrapf(err, "create cookie jar")
	}
	s := &CookieStore{
		path:    path,
		jar:     jar,
		cookies: make(map[string]storedCookie),
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, oops.In("steamauth").Code(codeStorage).With("path", path).Wrapf(err, "read cookie file")
	}
	var stored []storedCookie
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &stored); err != nil {
			return nil, oops.In("steamauth").Code(codeStorage).With("path", path).Wrapf(err, "decode cookie file")
		}
	}
	now := s.now()
	for _, sc := range stored {
		if sc.expired(now) {
			continue
		}
		s.restore(sc)
	}
	return s, nil
}

func (s *CookieStore) restore(sc storedCookie) {
	sc.Domain = strings.ToLower(strings.TrimPrefix(sc.Domain, "."))
	scheme := "http"
	if sc.Secure {
		scheme = "https"
	}
	u := &url.URL{Scheme: scheme, Host: sc.Domain, Path: sc.Path}
	c := &http.Cookie{
		Name:     sc.Name,
		Value:    sc.Value,
		Path:     sc.Path,
		Secure:   sc.Secure,
		HttpOnly: sc.HttpOnly,
	}
	if !sc.HostOnly {
		c.Domain = sc.Domain
	}
	if sc.Expires != nil {
		c.Expires = *sc.Expires
	}
	s.jar.SetCookies(u, []*http.Cookie{c})
	s.cookies[sc.key()] = sc
}

// Path is the file the store persists to.
func (s *CookieStore) Path() string {
	return s.path
}

// SetCookies implements http.CookieJar. Only cookies the underlying jar
// accepts are mirrored, keyed the way the jar keys them.
func (s *CookieStore) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jar.SetCookies(u, cookies)
	if u.Scheme != "http" && u.Scheme != "https" {
		return
	}
	host := strings.ToLower(u.Hostname())
	now := s.now()
	for _, c := range cookies {
		domain, hostOnly, ok := cookieDomain(host, c.Domain)
		if !ok {
			continue
		}
		sc := storedCookie{
			Domain:   domain,
			HostOnly: hostOnly,
			Path:     c.Path,
			Name:     c.Name,
			Value:    c.Value,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if sc.Path == "" || !strings.HasPrefix(sc.Path, "/") {
			sc.Path = defaultCookiePath(u.Path)
		}
		switch {
		case c.MaxAge < 0:
			delete(s.cookies, sc.key())
			continue
		case c.MaxAge > 0:
			exp := now.Add(time.Duration(c.MaxAge) * time.Second)
			sc.Expires = &exp
		case !c.Expires.IsZero():
			exp := c.Expires.UTC()
			sc.Expires = &exp
		}
		if sc.expired(now) {
			delete(s.cookies, sc.key())
			continue
		}
		s.cookies[sc.key()] = sc
	}
}

// cookieDomain applies the RFC 6265 domain rules the standard jar uses. ok is
// false for cookies the jar rejects.
func cookieDomain(host, domain string) (string, bool, bool) {
	if domain == "" {
		return host, true, true
	}
	if net.ParseIP(host) != nil {
		return host, true, host == domain
	}
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	if domain == "" || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", false, false
	}
	if ps := publicsuffix.List.PublicSuffix(domain); ps != "" && !strings.HasSuffix(domain, "."+ps) {
		// a bare public suffix only works as a host-only cookie
		return host, true, host == domain
	}
	if host != domain && !strings.HasSuffix(host, "."+domain) {
		return "", false, false
	}
	return domain, false, true
}

// defaultCookiePath is the RFC 6265 default-path of a request path.
func defaultCookiePath(requestPath string) string {
	if requestPath == "" || requestPath[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(requestPath, "/")
	if i == 0 {
		return "/"
	}
	return requestPath[:i]
}

// Cookies implements http.CookieJar.
func (s *CookieStore) Cookies(u *url.URL) []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jar.Cookies(u)
}

// Len is the number of live cookies that would be persisted.
func (s *CookieStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cookies)
}

// Save writes the jar to disk, replacing the previous file atomically.
func (s *CookieStore) Save() error {
	s.mu.Lock()
	now := s.now()
	stored := make([]storedCookie, 0, len(s.cookies))
	for _, sc := range s.cookies {
		if sc.expired(now) {
			continue
		}
		stored = append(stored, sc)
	}
	s.mu.Unlock()

	sort.Slice(stored, func(i, j int) bool { return stored[i].key() < stored[j].key() })
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return oops.In("steamauth").Code(codeStorage).Wrapf(err, "encode cookies")
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return oops.In("steamauth").Code(codeStorage).With("path", s.path).Wrapf(err, "write cookie file")
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
