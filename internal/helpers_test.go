package internal_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/social/internal"
	"github.com/dmitrymomot/social/pkg/connection"
	"github.com/dmitrymomot/social/pkg/cookie"
	"github.com/dmitrymomot/social/pkg/oauth"
	"github.com/dmitrymomot/social/pkg/signal"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var errBadCode = errors.New("bad verification code")

// fakeProvider answers like a real provider without any network calls.
type fakeProvider struct {
	id, name       string
	pkce           bool
	providerUserID string
	accessToken    string
	profileErr     error

	mu        sync.Mutex
	redirects []string
	verifiers []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{id: "fake", name: "Fake", providerUserID: "p-1", accessToken: "at-1"}
}

func (p *fakeProvider) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID: "client",
		Endpoint: oauth2.Endpoint{AuthURL: "https://provider.test/authorize"},
	}
}

func (p *fakeProvider) ID() string   { return p.id }
func (p *fakeProvider) Name() string { return p.name }
func (p *fakeProvider) PKCE() bool   { return p.pkce }

func (p *fakeProvider) AuthCodeURL(state string, opts ...oauth2.AuthCodeOption) string {
	return p.oauthConfig().AuthCodeURL(state, opts...)
}

func (p *fakeProvider) Exchange(_ context.Context, code, redirectURI string, opts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	if code != "good" {
		return nil, errBadCode
	}
	// Render the options to read the PKCE verifier back.
	u, _ := url.Parse(p.oauthConfig().AuthCodeURL("", opts...))

	p.mu.Lock()
	p.redirects = append(p.redirects, redirectURI)
	p.verifiers = append(p.verifiers, u.Query().Get("code_verifier"))
	p.mu.Unlock()

	return &oauth2.Token{
		AccessToken:  p.accessToken,
		RefreshToken: "rt-1",
		Expiry:       time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}, nil
}

func (p *fakeProvider) ProviderUserID(_ context.Context, token *oauth2.Token) (string, error) {
	if token == nil {
		return "", nil
	}
	if p.profileErr != nil {
		return "", p.profileErr
	}
	return p.providerUserID, nil
}

func (p *fakeProvider) ConnectionValues(ctx context.Context, token *oauth2.Token) (*connection.Connection, error) {
	if token == nil {
		return nil, nil
	}
	id, err := p.ProviderUserID(ctx, token)
	if err != nil {
		return nil, err
	}
	return &connection.Connection{
		ProviderID:     p.id,
		ProviderUserID: id,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		ExpiresAt:      token.Expiry,
		DisplayName:    "fake-user",
	}, nil
}

func (p *fakeProvider) TokenPair(token *oauth2.Token) oauth.TokenPair { return oauth.TokenPairOf(token) }

func (p *fakeProvider) Client(ctx context.Context, token *oauth2.Token) *http.Client {
	return p.oauthConfig().Client(ctx, token)
}

func (p *fakeProvider) lastVerifier() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.verifiers) == 0 {
		return ""
	}
	return p.verifiers[len(p.verifiers)-1]
}

// recorder collects flow events.
type recorder struct {
	mu     sync.Mutex
	events []signal.Event
}

func (r *recorder) Notify(_ context.Context, e signal.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []signal.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]signal.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

func (r *recorder) last() signal.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return signal.Event{}
	}
	return r.events[len(r.events)-1]
}

// faultyStore wraps a memory datastore and injects store failures.
type faultyStore struct {
	*connection.Memory

	deleteErr error
	// missedFinds is the number of FindConnection calls that report
	// ErrNotFound before the memory datastore is consulted.
	missedFinds atomic.Int32
}

func newFaultyStore() *faultyStore {
	return &faultyStore{Memory: connection.NewMemoryDatastore()}
}

func (s *faultyStore) Begin(context.Context) (connection.Store, error) { return s, nil }

func (s *faultyStore) FindConnection(ctx context.Context, f connection.Filter) (*connection.Connection, error) {
	if s.missedFinds.Add(-1) >= 0 {
		return nil, connection.ErrNotFound
	}
	return s.Memory.FindConnection(ctx, f)
}

func (s *faultyStore) DeleteConnection(ctx context.Context, f connection.Filter) (bool, error) {
	if s.deleteErr != nil {
		return false, s.deleteErr
	}
	return s.Memory.DeleteConnection(ctx, f)
}

func (s *faultyStore) DeleteConnections(ctx context.Context, f connection.Filter) (bool, error) {
	if s.deleteErr != nil {
		return false, s.deleteErr
	}
	return s.Memory.DeleteConnections(ctx, f)
}

// newFaultyHarness runs the extension on store; harness helpers read and
// write the wrapped memory datastore.
func newFaultyHarness(t *testing.T, store *faultyStore) *harness {
	t.Helper()

	h := newHarness(t, internal.WithDatastore(store))
	h.ds = store.Memory
	return h
}

func testConfig() internal.Config {
	cfg := internal.DefaultConfig()
	cfg.CookieSecret = testSecret
	cfg.LoginView = "/login"
	return cfg
}

func newTestExtension(t *testing.T, opts ...internal.Option) *internal.Extension {
	t.Helper()
	base := []internal.Option{
		internal.WithEnviron([]string{}),
		internal.WithConfig(testConfig()),
		internal.WithDatastore(connection.NewMemoryDatastore()),
		internal.WithProvider(newFakeProvider()),
	}
	ext, err := internal.New(append(base, opts...)...)
	require.NoError(t, err)
	return ext
}

// harness is a host application with the extension mounted and a browser
// that keeps cookies and does not follow redirects.
type harness struct {
	t        *testing.T
	ext      *internal.Extension
	ds       *connection.Memory
	provider *fakeProvider
	events   *recorder
	srv      *httptest.Server
	client   *http.Client
}

func newHarness(t *testing.T, opts ...internal.Option) *harness {
	t.Helper()

	h := &harness{
		t:        t,
		ds:       connection.NewMemoryDatastore(),
		provider: newFakeProvider(),
		events:   &recorder{},
	}
	base := []internal.Option{
		internal.WithEnviron([]string{}),
		internal.WithConfig(testConfig()),
		internal.WithDatastore(h.ds),
		internal.WithProvider(h.provider),
		internal.WithNotifier(h.events),
	}
	ext, err := internal.New(append(base, opts...)...)
	require.NoError(t, err)
	h.ext = ext

	r := chi.NewRouter()
	r.Post("/_login", func(w http.ResponseWriter, r *http.Request) {
		if err := ext.Login(w, r, r.FormValue("uid")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	r.Get("/_me", func(w http.ResponseWriter, r *http.Request) {
		uid, err := ext.CurrentUserID(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(uid))
	})
	r.Get("/_flashes", func(w http.ResponseWriter, r *http.Request) {
		flashes, err := ext.Flashes(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(flashes)
	})
	r.Mount("/", ext)

	h.srv = httptest.NewServer(r)
	t.Cleanup(h.srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	h.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return h
}

func (h *harness) do(method, path string, form url.Values, header ...string) *http.Response {
	h.t.Helper()
	body := strings.NewReader("")
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, h.srv.URL+path, body)
	require.NoError(h.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (h *harness) login(uid string) {
	h.t.Helper()
	resp := h.do(http.MethodPost, "/_login", url.Values{"uid": {uid}})
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
}

func (h *harness) currentUser() string {
	h.t.Helper()
	resp := h.do(http.MethodGet, "/_me", nil)
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)
	return string(b)
}

func (h *harness) flashes() []cookie.Flash {
	h.t.Helper()
	resp := h.do(http.MethodGet, "/_flashes", nil)
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	var out []cookie.Flash
	require.NoError(h.t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// start posts to a flow start route and returns the state sent to the provider.
func (h *harness) start(path string, form url.Values) (state string, authURL *url.URL) {
	h.t.Helper()
	resp := h.do(http.MethodPost, path, form)
	require.Equal(h.t, http.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(h.t, err)
	require.Equal(h.t, "provider.test", loc.Host)
	state = loc.Query().Get("state")
	require.NotEmpty(h.t, state)
	return state, loc
}

func (h *harness) callback(path, code, state string) *http.Response {
	h.t.Helper()
	q := url.Values{}
	if code != "" {
		q.Set("code", code)
	}
	if state != "" {
		q.Set("state", state)
	}
	return h.do(http.MethodGet, path+"?"+q.Encode(), nil)
}

func (h *harness) link(userID, providerUserID, accessToken string) *connection.Connection {
	h.t.Helper()
	ctx := context.Background()
	store, err := h.ds.Begin(ctx)
	require.NoError(h.t, err)
	conn, err := store.CreateConnection(ctx, &connection.Connection{
		UserID:         userID,
		ProviderID:     h.provider.id,
		ProviderUserID: providerUserID,
		AccessToken:    accessToken,
	})
	require.NoError(h.t, err)
	require.NoError(h.t, store.Commit(ctx))
	return conn
}

func (h *harness) connections(userID string) []*connection.Connection {
	h.t.Helper()
	conns, err := h.ext.Connections(context.Background(), userID)
	require.NoError(h.t, err)
	return conns
}

func location(t *testing.T, resp *http.Response) string {
	t.Helper()
	return resp.Header.Get("Location")
}
