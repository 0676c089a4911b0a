package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/jvx/internal/flatten"
	"github.com/oakwood-commons/jvx/pkg/loader"
	"github.com/oakwood-commons/jvx/pkg/value"
)

const sampleDoc = `{"a":{"b":1,"c":"two"},"list":[true,null],"name":"jvx"}`

type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	cfg.SessionSecret = "test-secret-0123456789abcdef0123"
	s := New(cfg)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func newClient(t *testing.T, ts *httptest.Server) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{t: t, base: ts.URL, http: &http.Client{Jar: jar}}
}

func mustLoad(t *testing.T, doc string) value.Value {
	t.Helper()
	v, err := loader.Load([]byte(doc), loader.FormatJSON)
	require.NoError(t, err)
	return v
}

func (c *client) do(method, path, contentType string, body io.Reader) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, body)
	require.NoError(c.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, data
}

func (c *client) json(method, path string, body any, out any) int {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(b)
	}
	resp, data := c.do(method, path, "application/json", reader)
	if out != nil {
		require.NoError(c.t, json.Unmarshal(data, out), string(data))
	}
	return resp.StatusCode
}

func (c *client) rows(query string) rowsResponse {
	c.t.Helper()
	var out rowsResponse
	status := c.json(http.MethodGet, "/api/rows"+query, nil, &out)
	require.Equal(c.t, http.StatusOK, status)
	return out
}

func (c *client) paths(query string) []string {
	c.t.Helper()
	var out []string
	for _, r := range c.rows(query).Rows {
		out = append(out, r.Path)
	}
	return out
}

func (c *client) post(doc string) (int, []byte) {
	c.t.Helper()
	resp, data := c.do(http.MethodPost, "/api/document", "text/plain", strings.NewReader(doc))
	return resp.StatusCode, data
}

func TestRowsWithoutDocument(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	c := newClient(t, ts)

	got := c.rows("")
	assert.False(t, got.Document)
	assert.Equal(t, 0, got.Total)
	assert.Empty(t, got.Rows)
}

func TestDocumentToggleAndWindow(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	c := newClient(t, ts)

	status, body := c.post(sampleDoc)
	require.Equal(t, http.StatusOK, status, string(body))

	assert.Equal(t, []string{""}, c.paths(""))

	var tog toggleResponse
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/toggle", toggleRequest{Path: ""}, &tog))
	assert.True(t, tog.Expanded)
	assert.Equal(t, 4, tog.Total)

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/toggle", toggleRequest{Path: "a"}, &tog))
	assert.Equal(t, []string{"", "a", "a.b", "a.c", "list", "name"}, c.paths(""))

	window := c.rows("?offset=2&limit=2")
	assert.Equal(t, 6, window.Total)
	assert.Equal(t, 2, window.Offset)
	require.Len(t, window.Rows, 2)
	assert.Equal(t, "a.b", window.Rows[0].Path)
	assert.Equal(t, "b", window.Rows[0].Key)
	assert.Equal(t, 2, window.Rows[0].Level)
	assert.Equal(t, "number", window.Rows[0].Kind)
	assert.JSONEq(t, "1", string(window.Rows[0].Value))

	past := c.rows("?offset=50")
	assert.Empty(t, past.Rows)
	assert.Equal(t, 6, past.Total)

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/toggle", toggleRequest{Path: "a"}, &tog))
	assert.False(t, tog.Expanded)
	assert.Equal(t, []string{"", "a", "list", "name"}, c.paths(""))
}

func TestRowsBadQuery(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	c := newClient(t, ts)

	var out errorResponse
	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodGet, "/api/rows?offset=-1", nil, &out))
	assert.Contains(t, out.Error, "offset")
	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodGet, "/api/rows?limit=x", nil, &out))
}

func TestExpandAllCollapseAll(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	c := newClient(t, ts)
	status, _ := c.post(sampleDoc)
	require.Equal(t, http.StatusOK, status)

	var out map[string]int
	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/expand-all", nil, &out))
	assert.Equal(t, 8, out["total"])

	require.Equal(t, http.StatusOK, c.json(http.MethodPost, "/api/collapse-all", nil, &out))
	assert.Equal(t, 1, out["total"])
}

func TestSearch(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	c := newClient(t, ts)
	status, _ := c.post(sampleDoc)
	require.Equal(t, http.StatusOK, status)

	var res searchResponse
	require.Equal(t, http.StatusOK, c.json(http.MethodPut, "/api/search", searchRequest{Term: "TWO"}, &res))
	assert.Equal(t, "TWO", res.Search)
	assert.Empty(t, res.SearchNotice)
	assert.Equal(t, []string{"", "a", "a.c"}, c.paths(""))

	require.Equal(t, http.StatusOK, c.json(http.MethodPut, "/api/search", searchRequest{Term: "(b"}, &res))
	assert.Equal(t, "invalid pattern, matching as plain text", res.SearchNotice)
	assert.Equal(t, []string{""}, c.paths(""))
	assert.Equal(t, res.SearchNotice, c.rows("").SearchNotice)

	require.Equal(t, http.StatusOK, c.json(http.MethodPut, "/api/search", searchRequest{Term: ""}, &res))
	assert.Equal(t, []string{""}, c.paths(""))

	var bad errorResponse
	assert.Equal(t, http.StatusBadRequest, c.json(http.MethodPut, "/api/search", map[string]string{"q": "x"}, &bad))
	assert.Contains(t, bad.Error, "invalid request body")
}

func TestSearchErrorMode(t *testing.T) {
	_, ts := newTestServer(t, Config{InvalidPattern: flatten.InvalidPatternError})
	c := newClient(t, ts)
	status, _ := c.post(sampleDoc)
	require.Equal(t, http.StatusOK, status)

	var out errorResponse
	require.Equal(t, http.StatusBadRequest, c.json(http.MethodPut, "/api/search", searchRequest{Term: "(b"}, &out))
	assert.NotEmpty(t, out.Error)
	assert.NotContains(t, out.Error, "plain text")

	// Filtering is off until the next search.
	assert.Equal(t, 1, c.rows("").Total)
}

func TestUploadTooLarge(t *testing.T) {
	orig := maxDocumentBytes
	maxDocumentBytes = 64
	defer func() { maxDocumentBytes = orig }()

	_, ts := newTestServer(t, Config{})
	c := newClient(t, ts)
	big := `["` + strings.Repeat("x", 256) + `"]`

	status, body := c.post(big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, status, string(body))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "big.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(big))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, body := c.do(http.MethodPost, "/api/document", mw.FormDataContentType(), &buf)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "too large")

	status, _ = c.post(`[1]`)
	assert.Equal(t, http.StatusOK, status)
}

func TestCopy(t *testing.T) {
	_, ts := newTestServer(t, Config{Expanded: []string{"", "a"}})
	c := newClient(t, ts)
	status, _ := c.post(sampleDoc)
	require.Equal(t, http.StatusOK, status)

	tests := []struct {
		query      string
		wantStatus int
		want       string
	}{
		{query: "?path=a.c", wantStatus: http.StatusOK, want: "two"},
		{query: "?path=a.c&what=path", wantStatus: http.StatusOK, want: "a.c"},
		{query: "?path=a.c&what=key", wantStatus: http.StatusOK, want: "c"},
		{query: "?path=a&what=value", wantStatus: http.StatusOK, want: `{"b":1,"c":"two"}`},
		{query: "?path=list.0", wantStatus: http.StatusNotFound},
		{query: "?path=a.b&what=type", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp, body := c.do(http.MethodGet, "/api/copy"+tt.query, "", nil)
			assert.Equal(t, tt.wantStatus, resp.StatusCode, string(body))
			if tt.want != "" {
				assert.Equal(t, tt.want, string(body))
			}
		})
	}
}

func TestInvalidDocumentClearsView(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	c := newClient(t, ts)
	status, _ := c.post(sampleDoc)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, c.rows("").Total)

	status, body := c.post(`{"a":`)
	assert.Equal(t, http.StatusBadRequest, status)
	var out errorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Invalid JSON format", out.Error)

	got := c.rows("")
	assert.False(t, got.Document)
	assert.Equal(t, "Invalid JSON format", got.Error)
	assert.Equal(t, 0, got.Total)

	_, has := s.Document()
	assert.False(t, has)
}

func TestEmptyDocumentMeansNone(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	c := newClient(t, ts)
	status, _ := c.post(sampleDoc)
	require.Equal(t, http.StatusOK, status)

	status, body := c.post("  \n")
	require.Equal(t, http.StatusOK, status, string(body))
	var doc documentResponse
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.False(t, doc.Document)

	got := c.rows("")
	assert.False(t, got.Document)
	assert.Empty(t, got.Error)
}

func TestDocumentFormatQuery(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	c := newClient(t, ts)

	resp, body := c.do(http.MethodPost, "/api/document?format=yaml", "text/plain", strings.NewReader("a: 1\nb: [x]\n"))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var tog toggleResponse
	c.json(http.MethodPost, "/api/toggle", toggleRequest{Path: ""}, &tog)
	assert.Equal(t, []string{"", "a", "b"}, c.paths(""))

	resp, _ = c.do(http.MethodPost, "/api/document?format=xml", "text/plain", strings.NewReader("{}"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMultipartUpload(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	c := newClient(t, ts)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "data.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(`[1,2,3]`))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, body := c.do(http.MethodPost, "/api/document", mw.FormDataContentType(), &buf)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var doc documentResponse
	require.NoError(t, json.Unmarshal(body, &doc))
	assert.True(t, doc.Document)
	assert.Equal(t, "data.json", doc.Source)

	got, ok := s.Document()
	require.True(t, ok)
	assert.Equal(t, 3, got.Len())

	buf.Reset()
	mw = multipart.NewWriter(&buf)
	part, err = mw.CreateFormFile("file", "bad.json")
	require.NoError(t, err)
	_, err = part.Write([]byte(`[1,`))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, body = c.do(http.MethodPost, "/api/document", mw.FormDataContentType(), &buf)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Invalid JSON file")
}

func TestSessionsAreIsolated(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	alice := newClient(t, ts)
	bob := newClient(t, ts)

	status, _ := alice.post(sampleDoc)
	require.Equal(t, http.StatusOK, status)

	var tog toggleResponse
	alice.json(http.MethodPost, "/api/toggle", toggleRequest{Path: ""}, &tog)
	alice.json(http.MethodPut, "/api/search", searchRequest{Term: "list"}, nil)

	assert.Equal(t, []string{"", "list", "list.0", "list.1"}, alice.paths(""))
	assert.Equal(t, []string{""}, bob.paths(""))
	assert.Equal(t, "", bob.rows("").Search)
	assert.Equal(t, 2, s.Sessions())

	// A new document keeps each session's expanded paths.
	s.SetDocument(mustLoad(t, `{"list":[1],"other":2}`), "second.json")
	alice.json(http.MethodPut, "/api/search", searchRequest{Term: ""}, nil)
	assert.Equal(t, []string{"", "list", "other"}, alice.paths(""))
	got := bob.rows("")
	assert.Equal(t, "second.json", got.Source)
	assert.Equal(t, 1, got.Total)
}

func TestSessionCapEvictsLeastRecent(t *testing.T) {
	s, ts := newTestServer(t, Config{MaxSessions: 2})
	s.SetDocument(mustLoad(t, sampleDoc), "doc.json")
	first := newClient(t, ts)
	second := newClient(t, ts)
	// No cookie jar: every request makes a new view.
	anon := &client{t: t, base: ts.URL, http: &http.Client{}}

	first.rows("")
	var tog toggleResponse
	require.Equal(t, http.StatusOK, second.json(http.MethodPost, "/api/toggle", toggleRequest{Path: ""}, &tog))
	assert.Equal(t, []string{"", "a", "list", "name"}, second.paths(""))

	for i := 0; i < 5; i++ {
		first.rows("")
		anon.rows("")
		assert.LessOrEqual(t, s.Sessions(), 2)
	}

	// The evicted session starts over with the seeded state.
	assert.Equal(t, []string{""}, second.paths(""))
	assert.Equal(t, 2, s.Sessions())
}

func TestExpandedSeedsNewSessions(t *testing.T) {
	s, ts := newTestServer(t, Config{Expanded: []string{"", "list"}})
	s.SetDocument(mustLoad(t, sampleDoc), "seed.json")
	c := newClient(t, ts)
	assert.Equal(t, []string{"", "a", "list", "list.0", "list.1", "name"}, c.paths(""))
}

func TestIndexAndHelpPages(t *testing.T) {
	_, ts := newTestServer(t, Config{AppName: "jvx", Source: "doc.json", RowHeight: 24, Overscan: 7})
	c := newClient(t, ts)

	resp, body := c.do(http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	page := string(body)
	assert.Contains(t, page, "<title>jvx · doc.json</title>")
	assert.Regexp(t, `const ROW = \s*24\s*;`, page)
	assert.Regexp(t, `const OVERSCAN = \s*7\s*;`, page)

	resp, body = c.do(http.MethodGet, "/help", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	help := string(body)
	assert.Contains(t, help, `<h1 id="jvx-viewer">jvx viewer</h1>`)
	assert.Contains(t, help, "<table>")
}

func TestNotFound(t *testing.T) {
	_, ts := newTestServer(t, Config{})
	c := newClient(t, ts)
	resp, _ := c.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEventsStream(t *testing.T) {
	s, ts := newTestServer(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	buf := make([]byte, 256)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), ": connected")

	require.Eventually(t, func() bool { return s.Notifier().Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	s.SetDocument(mustLoad(t, `{}`), "")

	var got strings.Builder
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(got.String(), "\n\n") && time.Now().Before(deadline) {
		n, err := resp.Body.Read(buf)
		got.Write(buf[:n])
		if err != nil {
			break
		}
	}
	assert.Equal(t, "event: document\ndata: {\"version\":1}\n\n", got.String())
}

func TestServeShutsDownOnCancel(t *testing.T) {
	listened := make(chan string, 1)
	s := New(Config{OnListen: func(addr string) { listened <- addr }})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/api/rows")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, "http://"+ln.Addr().String(), <-listened)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestApplyLoadMessages(t *testing.T) {
	s := New(Config{Source: "start.json"})
	assert.Empty(t, s.ApplyLoad(mustLoad(t, `[1]`), nil, ""))
	st := s.snapshot()
	assert.True(t, st.hasDoc)
	assert.Equal(t, "start.json", st.source)
	assert.Equal(t, uint64(1), st.version)

	_, err := loader.LoadNamed([]byte(`{`), "x.json", loader.FormatAuto)
	assert.Equal(t, "Invalid JSON file", s.ApplyLoad(mustLoad(t, `[]`), err, ""))
	st = s.snapshot()
	assert.False(t, st.hasDoc)
	assert.Equal(t, "Invalid JSON file", st.loadErr)

	assert.Empty(t, s.ApplyLoad(mustLoad(t, `[]`), loader.ErrEmptyInput, ""))
	assert.Empty(t, s.snapshot().loadErr)
	assert.Equal(t, uint64(3), s.snapshot().version)
}
