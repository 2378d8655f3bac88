package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcalc/internal/state"
	"github.com/leapstack-labs/leapcalc/internal/testutil"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-32-bytes-long!!"

func setupTestServer(t *testing.T, store state.Store) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(Config{
		SessionSecret: testSecret,
		Options:       []formula.Option{formula.WithDigits(4)},
		Prelude: func(env *formula.Environment) error {
			return env.Preload("g = 9.81")
		},
		Store:  store,
		Logger: testutil.NewTestLogger(t),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

func evaluate(t *testing.T, c *http.Client, base, input string) EvaluateResponse {
	t.Helper()
	body, err := json.Marshal(EvaluateRequest{Input: input})
	require.NoError(t, err)

	resp, err := c.Post(base+"/api/evaluate", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out EvaluateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func listVariables(t *testing.T, c *http.Client, base string) []Variable {
	t.Helper()
	resp, err := c.Get(base + "/api/variables")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var vars []Variable
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&vars))
	return vars
}

func doDelete(t *testing.T, c *http.Client, url string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestEvaluate(t *testing.T) {
	_, ts := setupTestServer(t, nil)
	c := newClient(t)

	out := evaluate(t, c, ts.URL, "2 * g")
	assert.Equal(t, "19.62", out.Answer)
	assert.Empty(t, out.Error)
	assert.NotEmpty(t, out.Trace)
	require.Len(t, out.Lines, 1)
}

func TestEvaluate_Error(t *testing.T) {
	_, ts := setupTestServer(t, nil)
	c := newClient(t)

	out := evaluate(t, c, ts.URL, "1 / 0")
	assert.Equal(t, "division by zero", out.Error)
	assert.Equal(t, "arithmetic", out.Kind)
}

func TestEvaluate_BadRequest(t *testing.T) {
	_, ts := setupTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"empty input", `{"input": "  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/api/evaluate", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			_ = resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestVariablesPerClient(t *testing.T) {
	srv, ts := setupTestServer(t, nil)
	alice, bob := newClient(t), newClient(t)

	evaluate(t, alice, ts.URL, "v = <1, 2, 3>")
	out := evaluate(t, alice, ts.URL, "v * 2")
	assert.Equal(t, "<2, 4, 6>", out.Answer)

	vars := listVariables(t, alice, ts.URL)
	require.Len(t, vars, 2)
	assert.Equal(t, Variable{Name: "g", Value: "9.81", Kind: "number"}, vars[0])
	assert.Equal(t, Variable{Name: "v", Value: "<1, 2, 3>", Kind: "vector"}, vars[1])

	// Bob has his own environment.
	bobVars := listVariables(t, bob, ts.URL)
	require.Len(t, bobVars, 1)
	assert.Equal(t, "g", bobVars[0].Name)
	assert.Equal(t, 2, srv.clients.len())

	assert.Equal(t, http.StatusOK, doDelete(t, alice, ts.URL+"/api/variables/v"))
	assert.Equal(t, http.StatusNotFound, doDelete(t, alice, ts.URL+"/api/variables/v"))
	assert.Len(t, listVariables(t, alice, ts.URL), 1)

	evaluate(t, alice, ts.URL, "w = 5")
	assert.Equal(t, http.StatusNoContent, doDelete(t, alice, ts.URL+"/api/variables"))
	vars = listVariables(t, alice, ts.URL)
	require.Len(t, vars, 1, "reset keeps only the preloaded variables")
	assert.Equal(t, "g", vars[0].Name)
}

func TestBindingsSurviveRequests(t *testing.T) {
	srv, ts := setupTestServer(t, nil)
	c := newClient(t)

	first := evaluate(t, c, ts.URL, "v = <1, 2, 3>")
	require.Empty(t, first.Error)
	second := evaluate(t, c, ts.URL, "v * 2")
	assert.Empty(t, second.Error)
	assert.Equal(t, "<2, 4, 6>", second.Answer)
	assert.Equal(t, 1, srv.clients.len(), "one cookie jar is one client")
}

func TestSessionCookieSecure(t *testing.T) {
	tests := []struct {
		name   string
		secure bool
	}{
		{"plain http", false},
		{"https only", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := NewServer(Config{SessionSecret: testSecret, Secure: tt.secure})
			ts := httptest.NewServer(srv.Handler())
			defer ts.Close()

			resp, err := http.Post(ts.URL+"/api/evaluate", "application/json", strings.NewReader(`{"input":"1"}`))
			require.NoError(t, err)
			_ = resp.Body.Close()

			cookies := resp.Cookies()
			require.Len(t, cookies, 1)
			assert.Equal(t, sessionName, cookies[0].Name)
			assert.Equal(t, tt.secure, cookies[0].Secure)
			assert.True(t, cookies[0].HttpOnly)
		})
	}
}

func TestUnsetRemovesDerivedVariables(t *testing.T) {
	bindings := map[string]string{"g": "10", "mass": "80", "weight": "mass * g"}
	srv := NewServer(Config{
		SessionSecret: testSecret,
		Prelude: func(env *formula.Environment) error {
			return env.Preload("g = 10\nmass = 80\nweight = mass * g")
		},
		Variables: bindings,
		Logger:    testutil.NewTestLogger(t),
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	c := newClient(t)

	evaluate(t, c, ts.URL, "own = 1")

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/variables/mass", nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out UnsetResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, []string{"mass", "weight"}, out.Removed)

	var names []string
	for _, v := range listVariables(t, c, ts.URL) {
		names = append(names, v.Name)
	}
	assert.Equal(t, []string{"g", "own"}, names)

	assert.Equal(t, http.StatusNotFound, doDelete(t, c, ts.URL+"/api/variables/weight"))
}

func TestHistory(t *testing.T) {
	store := state.NewSQLiteStore()
	require.NoError(t, store.Open(":memory:"))
	t.Cleanup(func() { _ = store.Close() })

	_, ts := setupTestServer(t, store)
	c := newClient(t)

	evaluate(t, c, ts.URL, "1 + 1")
	evaluate(t, c, ts.URL, "1 / 0")

	resp, err := c.Get(ts.URL + "/api/history?limit=10")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var evals []state.Evaluation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&evals))
	require.Len(t, evals, 2)
	inputs := []string{evals[0].Input, evals[1].Input}
	assert.ElementsMatch(t, []string{"1 + 1", "1 / 0"}, inputs)

	bad, err := c.Get(ts.URL + "/api/history?limit=x")
	require.NoError(t, err)
	_ = bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestHistoryDisabled(t *testing.T) {
	_, ts := setupTestServer(t, nil)
	resp, err := http.Get(ts.URL + "/api/history")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEvents(t *testing.T) {
	srv, ts := setupTestServer(t, nil)
	c := newClient(t)

	// Establish the session cookie first.
	evaluate(t, c, ts.URL, "1")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)

	type result struct {
		resp *http.Response
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := c.Do(req)
		done <- result{resp, err}
	}()

	// Wait until the stream is subscribed before evaluating.
	require.Eventually(t, func() bool {
		srv.notifier.mu.RLock()
		defer srv.notifier.mu.RUnlock()
		return len(srv.notifier.listeners) == 1
	}, 2*time.Second, 10*time.Millisecond)

	other := newClient(t)
	evaluate(t, other, ts.URL, "100")
	evaluate(t, c, ts.URL, "6 * 7")

	res := <-done
	require.NoError(t, res.err)
	defer func() { _ = res.resp.Body.Close() }()
	require.Equal(t, http.StatusOK, res.resp.StatusCode)

	scanner := bufio.NewScanner(res.resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: signals ") {
			data = line
			break
		}
	}
	require.NoError(t, scanner.Err())
	assert.Contains(t, data, `"answer":"42"`)
	assert.NotContains(t, data, `"answer":"100"`)
}

func TestClientRegistrySweep(t *testing.T) {
	now := time.Now()
	reg := newClientRegistry(func() (*formula.Environment, error) { return formula.NewEnvironment(), nil })
	reg.now = func() time.Time { return now }

	_, err := reg.get("a")
	require.NoError(t, err)
	_, err = reg.get("b")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	b, err := reg.get("b")
	require.NoError(t, err)
	b.mu.Lock()
	reg.touch(b)
	b.mu.Unlock()

	assert.Equal(t, 1, reg.sweep(time.Hour))
	assert.Equal(t, 1, reg.len())
}

func TestNotifier(t *testing.T) {
	n := NewNotifier()
	ch := n.Subscribe()

	n.Broadcast(Event{Client: "a", Sequence: 1})
	evt := <-ch
	assert.Equal(t, uint64(1), evt.Sequence)

	n.Unsubscribe(ch)
	n.Unsubscribe(ch) // second call is a no-op
	_, ok := <-ch
	assert.False(t, ok)

	n.Broadcast(Event{Client: "a", Sequence: 2}) // no listeners
}
