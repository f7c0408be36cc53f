package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kailas-cloud/fixflow"
	"github.com/kailas-cloud/fixflow/internal/fakeapi"
)

type cliEnv struct {
	fake     *fakeapi.Server
	config   string
	textfile string
}

func newCLIEnv(t *testing.T, wrap func(http.Handler) http.Handler) *cliEnv {
	t.Helper()
	fake := fakeapi.New()
	var h http.Handler = fake.Handler()
	if wrap != nil {
		h = wrap(h)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	env := &cliEnv{
		fake:     fake,
		config:   filepath.Join(dir, "test.yaml"),
		textfile: filepath.Join(dir, "metrics", "fixflow.prom"),
	}
	doc := fmt.Sprintf("api:\n  base_url: %s%s\nlogging:\n  level: error\nmetrics:\n  textfile: %s\n",
		srv.URL, fakeapi.APIPrefix, env.textfile)
	if err := os.WriteFile(env.config, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append([]string{"--config", e.config, "--env", "local"}, args...)
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestVersion(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(context.Background(), []string{"version"}, &stdout, &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout.String(), "fixflow dev") {
		t.Errorf("output = %q", stdout.String())
	}
}

func TestCreate(t *testing.T) {
	env := newCLIEnv(t, nil)

	out, err := env.run(t, "create",
		"--title", "pip fails behind proxy",
		"--content", "pip install hangs",
		"--solution", "export HTTPS_PROXY",
		"--tags", "python, pip",
		"--meta", "team=infra")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(out, "Created issue ") || !strings.Contains(out, "pip fails behind proxy") {
		t.Errorf("output = %q", out)
	}

	req, _ := env.fake.LastRequest()
	var body struct {
		Tags     []string       `json:"tags"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := json.Unmarshal(req.Body, &body); err != nil {
		t.Fatal(err)
	}
	if strings.Join(body.Tags, ",") != "python,pip" {
		t.Errorf("tags = %v", body.Tags)
	}
	if body.Metadata["source"] != "cli" || body.Metadata["team"] != "infra" {
		t.Errorf("metadata = %v", body.Metadata)
	}
}

func TestCreate_MissingFieldsSendNothing(t *testing.T) {
	env := newCLIEnv(t, nil)

	_, err := env.run(t, "create", "--title", "only a title")
	if !errors.Is(err, fixflow.ErrInvalidIssue) {
		t.Fatalf("err = %v, want ErrInvalidIssue", err)
	}
	if n := len(env.fake.Requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestSearch(t *testing.T) {
	env := newCLIEnv(t, nil)
	is := env.fake.Add(fakeapi.Issue{
		Title: "pip fails behind proxy", Content: "c", Solution: "s", Tags: []string{"python"},
	})

	out, err := env.run(t, "search", "pip", "proxy")
	if err != nil {
		t.Fatal(err)
	}
	want := fmt.Sprintf("100%%  pip fails behind proxy  [%s]\n      #python\n", is.ID)
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestSearch_NoResults(t *testing.T) {
	env := newCLIEnv(t, nil)

	out, err := env.run(t, "search", "kubernetes")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `No issues match "kubernetes"`) {
		t.Errorf("output = %q", out)
	}
}

func TestSearch_JSON(t *testing.T) {
	env := newCLIEnv(t, nil)
	env.fake.Add(fakeapi.Issue{Title: "disk full", Content: "c", Solution: "s"})

	out, err := env.run(t, "--json", "search", "disk")
	if err != nil {
		t.Fatal(err)
	}
	var hits []fixflow.SearchResult
	if err := json.Unmarshal([]byte(out), &hits); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(hits) != 1 || hits[0].Title != "disk full" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestGet_RecordsView(t *testing.T) {
	env := newCLIEnv(t, nil)
	is := env.fake.Add(fakeapi.Issue{Title: "t", Content: "problem", Solution: "fix", ViewCount: 2})

	out, err := env.run(t, "get", is.ID, "--view")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "views: 3  useful: 0") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "Problem:\nproblem\n") || !strings.Contains(out, "Solution:\nfix\n") {
		t.Errorf("output = %q", out)
	}
	stored, _ := env.fake.Get(is.ID)
	if stored.ViewCount != 3 {
		t.Errorf("stored views = %d, want 3", stored.ViewCount)
	}
}

func TestGet_ViewFailureIsNotFatal(t *testing.T) {
	env := newCLIEnv(t, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/feedback") {
				http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	is := env.fake.Add(fakeapi.Issue{Title: "t", Content: "c", Solution: "s", ViewCount: 2})

	out, err := env.run(t, "get", is.ID, "--view")
	if err != nil {
		t.Fatalf("view failure should not fail get: %v", err)
	}
	if !strings.Contains(out, "views: 2 ") {
		t.Errorf("view count should stay unchanged, output = %q", out)
	}
}

func TestGet_NotFound(t *testing.T) {
	env := newCLIEnv(t, nil)

	_, err := env.run(t, "get", "missing")
	if !errors.Is(err, fixflow.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err.Error() != "failed to fetch issue (status 404)" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestTrending(t *testing.T) {
	env := newCLIEnv(t, nil)
	env.fake.Add(fakeapi.Issue{ID: "low", Title: "low", Content: "c", Solution: "s", UsefulCount: 1})
	env.fake.Add(fakeapi.Issue{ID: "high", Title: "high", Content: "c", Solution: "s", UsefulCount: 9})

	out, err := env.run(t, "trending", "--limit", "1")
	if err != nil {
		t.Fatal(err)
	}
	if out != " 1. high  [high]\n    useful: 9  views: 0\n" {
		t.Errorf("output = %q", out)
	}
	req, _ := env.fake.LastRequest()
	if req.RawQuery != "limit=1" {
		t.Errorf("query = %q", req.RawQuery)
	}
}

func TestFeedback_Useful(t *testing.T) {
	env := newCLIEnv(t, nil)
	is := env.fake.Add(fakeapi.Issue{Title: "t", Content: "c", Solution: "s"})

	out, err := env.run(t, "feedback", is.ID, "useful")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Thanks for your feedback!\n" {
		t.Errorf("output = %q", out)
	}
	stored, _ := env.fake.Get(is.ID)
	if stored.UsefulCount != 1 {
		t.Errorf("useful = %d, want 1", stored.UsefulCount)
	}
}

func TestFeedback_InvalidKind(t *testing.T) {
	env := newCLIEnv(t, nil)

	_, err := env.run(t, "feedback", "x1", "love")
	if !errors.Is(err, fixflow.ErrInvalidFeedbackKind) {
		t.Fatalf("err = %v", err)
	}
	if n := len(env.fake.Requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestHealth(t *testing.T) {
	env := newCLIEnv(t, nil)

	out, err := env.run(t, "health")
	if err != nil {
		t.Fatal(err)
	}
	if out != "ok: FixFlow API is running\n" {
		t.Errorf("output = %q", out)
	}
}

func TestTimeoutFlag(t *testing.T) {
	env := newCLIEnv(t, func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})
	})

	_, err := env.run(t, "--timeout", "30ms", "trending")
	if !errors.Is(err, fixflow.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if err.Error() != "request timed out after 30ms" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestTimeoutFlag_Rejected(t *testing.T) {
	env := newCLIEnv(t, nil)

	for _, v := range []string{"500us", "-1s"} {
		_, err := env.run(t, "--timeout", v, "trending")
		if err == nil || !strings.Contains(err.Error(), "--timeout") {
			t.Errorf("--timeout %s: err = %v, want flag error", v, err)
		}
	}
	if n := len(env.fake.Requests()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestMetricsTextfile(t *testing.T) {
	env := newCLIEnv(t, nil)

	// Failed commands still export.
	if _, err := env.run(t, "get", "missing"); err == nil {
		t.Fatal("expected error")
	}
	data, err := os.ReadFile(env.textfile)
	if err != nil {
		t.Fatalf("textfile not written: %v", err)
	}
	want := `fixflow_client_operations_total{operation="get_issue",status="http_error"} 1`
	if !strings.Contains(string(data), want) {
		t.Errorf("textfile missing %q:\n%s", want, data)
	}
}
