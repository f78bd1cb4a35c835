package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chrisuehlinger/folio/config"
)

const pageCSS = `
@page { size: 400px 300px; margin: 20px; }
.folio_page { font-size: 10px; }
.note { float: footnote; }
`

func newTestServer(t *testing.T, modify func(*config.Config)) (*Server, *bytes.Buffer) {
	t.Helper()
	cfg := config.Config{
		PageWidth: 400, PageHeight: 300, PageMargin: 20,
		MaxPages:       10,
		LogLevel:       "info",
		LogFormat:      "text",
		MaxUploadBytes: 1 << 20,
		RenderTimeout:  5 * time.Second,
	}
	if modify != nil {
		modify(&cfg)
	}
	var buf bytes.Buffer
	return New(slog.New(slog.NewTextHandler(&buf, nil)), cfg), &buf
}

func post(s *Server, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, logs := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(logs.String(), "path=/healthz") || !strings.Contains(logs.String(), "status=200") {
		t.Errorf("Expected a request log line, got %s", logs.String())
	}
}

func TestRenderReport(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := post(s, "/render", map[string]any{
		"html": `<p>Text<span class="note">Note</span></p>`,
		"css":  []string{pageCSS},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Pages  int `json:"pages"`
		Report []struct {
			Number    int      `json:"number"`
			Calls     []string `json:"calls"`
			Footnotes []string `json:"footnotes"`
		} `json:"report"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Pages != 1 || len(resp.Report) != 1 {
		t.Fatalf("Unexpected response %+v", resp)
	}
	r := resp.Report[0]
	if r.Number != 1 || len(r.Calls) != 1 || len(r.Footnotes) != 1 || r.Calls[0] != r.Footnotes[0] {
		t.Errorf("Unexpected page report %+v", r)
	}
}

func TestRenderRejects(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		modify func(*config.Config)
		status int
		errSub string
	}{
		{"no source", map[string]any{"css": []string{pageCSS}}, nil, http.StatusBadRequest, "required"},
		{"both sources", map[string]any{"html": "<p>a</p>", "markdown": "a"}, nil, http.StatusBadRequest, "only one"},
		{"not json", "just a string", nil, http.StatusBadRequest, "invalid JSON"},
		{"script disabled", map[string]any{"html": "<p>a</p>", "script": "1"}, nil, http.StatusForbidden, "disabled"},
		{"too large", map[string]any{"html": strings.Repeat("x", 2048)}, func(c *config.Config) { c.MaxUploadBytes = 1024 }, http.StatusRequestEntityTooLarge, "max size"},
		{"page limit", map[string]any{
			"html": strings.Repeat("<section>x</section>", 3),
			"css":  []string{"section { break-before: page; }"},
		}, func(c *config.Config) { c.MaxPages = 2 }, http.StatusUnprocessableEntity, "page limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.modify)
			rec := post(s, "/render", tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			var resp map[string]string
			json.Unmarshal(rec.Body.Bytes(), &resp)
			if !strings.Contains(resp["error"], tt.errSub) {
				t.Errorf("error = %q, want it to contain %q", resp["error"], tt.errSub)
			}
		})
	}
}

func TestRenderWithScript(t *testing.T) {
	s, logs := newTestServer(t, func(c *config.Config) { c.AllowScripts = true })
	rec := post(s, "/render", map[string]any{
		"markdown": "Hello<span class=\"note\">md</span>",
		"css":      []string{pageCSS},
		"script":   `folio.registerHandler({ afterRendered: function (book) { console.log("pages", book.pages.length); } });`,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(logs.String(), `msg="pages 1"`) {
		t.Errorf("Expected console output in the log, got %s", logs.String())
	}
}

func TestRenderPNG(t *testing.T) {
	s, _ := newTestServer(t, nil)
	body := map[string]any{"html": `<p>Text<span class="note">Note</span></p>`, "css": []string{pageCSS}}

	rec := post(s, "/render/pages/1.png?scale=0.5", body)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("status = %d, type %q, body %s", rec.Code, rec.Header().Get("Content-Type"), rec.Body.String())
	}
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 150 {
		t.Errorf("Unexpected image size %v", b)
	}

	if rec := post(s, "/render/pages/2.png", body); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a missing page, got %d", rec.Code)
	}
	if rec := post(s, "/render/pages/zero.png", body); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad page number, got %d", rec.Code)
	}
}
