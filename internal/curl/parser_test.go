package curl

import (
	"strings"
	"testing"

	"github.com/unkn0wn-root/daakiya/internal/restfile"
)

func assertHeaders(t *testing.T, got []restfile.KeyValue, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d headers, got %d: %+v", len(want), len(got), got)
	}
	for i, w := range want {
		name, value, _ := strings.Cut(w, "|")
		if got[i].Key != name || got[i].Value != value || !got[i].Enabled {
			t.Fatalf("header %d: expected %q=%q enabled, got %+v", i, name, value, got[i])
		}
		if got[i].ID == "" {
			t.Fatalf("header %d: expected id", i)
		}
	}
}

func TestParseCommandFullExample(t *testing.T) {
	t.Parallel()

	req := ParseCommand(`curl https://x/y -X POST -H "A: 1" -d "body"`)
	if req.URL != "https://x/y" {
		t.Fatalf("unexpected url %q", req.URL)
	}
	if req.Method != restfile.MethodPost {
		t.Fatalf("expected POST, got %s", req.Method)
	}
	assertHeaders(t, req.Headers, "A|1")
	if req.Body != "body" {
		t.Fatalf("unexpected body %q", req.Body)
	}
	if req.Params == nil || len(req.Params) != 0 {
		t.Fatalf("expected empty params, got %#v", req.Params)
	}
}

func TestParseCommandMethodDefaults(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cmd  string
		want restfile.Method
	}{
		{"curl https://example.com", restfile.MethodGet},
		{"curl https://example.com -d x=1", restfile.MethodPost},
		{"curl https://example.com --data-raw '{}'", restfile.MethodPost},
		{"curl https://example.com --data x", restfile.MethodPost},
		{"curl -X put https://example.com -d x", restfile.MethodPut},
		{"curl --request=delete https://example.com", restfile.MethodDelete},
		{"curl -XPATCH https://example.com", restfile.MethodPatch},
		{"curl -d x -X GET https://example.com", restfile.MethodGet},
	}
	for _, tc := range cases {
		if got := ParseCommand(tc.cmd).Method; got != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.cmd, tc.want, got)
		}
	}
}

func TestParseCommandHeaders(t *testing.T) {
	t.Parallel()

	cmd := `curl 'https://api.test/v1' -H 'Authorization: Bearer a:b:c' --header "X-Trace:  abc " -H 'NoColon' -H ': empty' -H 'Accept:'`
	res := ParseCommandInfo(cmd)
	assertHeaders(t, res.Request.Headers, "Authorization|Bearer a:b:c", "X-Trace|abc", "Accept|")
	if len(res.Warnings) == 0 {
		t.Fatalf("expected warnings for ignored headers")
	}
}

func TestParseCommandDuplicateHeadersKept(t *testing.T) {
	t.Parallel()

	req := ParseCommand(`curl https://a.test -H 'X: 1' -H 'X: 2'`)
	assertHeaders(t, req.Headers, "X|1", "X|2")
}

func TestParseCommandFirstBodyWins(t *testing.T) {
	t.Parallel()

	res := ParseCommandInfo(`curl https://a.test -d first --data second`)
	if res.Request.Body != "first" {
		t.Fatalf("expected first body, got %q", res.Request.Body)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "--data") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected warning about extra body, got %v", res.Warnings)
	}
}

func TestParseCommandQuotedWhitespace(t *testing.T) {
	t.Parallel()

	cmd := `curl -X POST "https://a.test/items" -H "Content-Type: application/json" -d '{"name": "two words",  "n": 1}'`
	req := ParseCommand(cmd)
	if req.Body != `{"name": "two words",  "n": 1}` {
		t.Fatalf("quoted body split or altered: %q", req.Body)
	}
	assertHeaders(t, req.Headers, "Content-Type|application/json")
}

func TestParseCommandNestedQuotes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cmd  string
		body string
	}{
		{`curl https://a.test -d 'say "hi" now'`, `say "hi" now`},
		{`curl https://a.test -d "say \"hi\" now"`, `say "hi" now`},
		{`curl https://a.test -d 'it'\''s'`, `it's`},
		{`curl https://a.test -d "path\n\$HOME"`, `path\n$HOME`},
		{`curl https://a.test -d $'line1\nline2'`, "line1\nline2"},
		{`curl https://a.test -d ''`, ``},
	}
	for _, tc := range cases {
		req := ParseCommand(tc.cmd)
		if req.Body != tc.body {
			t.Fatalf("%s: expected body %q, got %q", tc.cmd, tc.body, req.Body)
		}
		if req.Method != restfile.MethodPost {
			t.Fatalf("%s: expected POST, got %s", tc.cmd, req.Method)
		}
	}
}

func TestParseCommandLineContinuation(t *testing.T) {
	t.Parallel()

	cmd := "curl --location 'https://api.test/users' \\\n  --header 'Accept: application/json' \\\n    --data-raw '{\"a\": 1}'"
	req := ParseCommand(cmd)
	if req.URL != "https://api.test/users" {
		t.Fatalf("unexpected url %q", req.URL)
	}
	assertHeaders(t, req.Headers, "Accept|application/json")
	if req.Body != `{"a": 1}` {
		t.Fatalf("unexpected body %q", req.Body)
	}
	if req.Method != restfile.MethodPost {
		t.Fatalf("expected POST, got %s", req.Method)
	}
}

func TestParseCommandURLAnywhere(t *testing.T) {
	t.Parallel()

	req := ParseCommand(`curl -H 'A: b' -s "http://late.test/path?q=1&r=2"`)
	if req.URL != "http://late.test/path?q=1&r=2" {
		t.Fatalf("unexpected url %q", req.URL)
	}
	if len(req.Params) != 0 {
		t.Fatalf("query string must stay in the url")
	}

	req = ParseCommand(`curl --url https://flag.test`)
	if req.URL != "https://flag.test" {
		t.Fatalf("unexpected url from --url: %q", req.URL)
	}
}

func TestParseCommandURLKeepsQuoteCharacters(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		`curl "https://x.test/search?q='a b'"`: `https://x.test/search?q='a b'`,
		`curl 'https://x.test/say?w="hi"'`:     `https://x.test/say?w="hi"`,
		`curl https://x.test/it\'s`:            `https://x.test/it's`,
	}
	for cmd, want := range cases {
		if got := ParseCommand(cmd).URL; got != want {
			t.Fatalf("%s: expected url %q, got %q", cmd, want, got)
		}
	}
}

func TestParseCommandSchemeIsCaseSensitive(t *testing.T) {
	t.Parallel()

	res := ParseCommandInfo(`curl HTTPS://upper.test`)
	if res.Request.URL != "" {
		t.Fatalf("expected upper-case scheme to be ignored, got %q", res.Request.URL)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected a warning for the unused argument")
	}
}

func TestParseCommandIgnoresValueOfUnmodelledFlags(t *testing.T) {
	t.Parallel()

	res := ParseCommandInfo(`curl -o https://not-the-url.test https://real.test -u user:pass`)
	if res.Request.URL != "https://real.test" {
		t.Fatalf("expected flag argument to be skipped, got %q", res.Request.URL)
	}
	if len(res.Warnings) < 2 {
		t.Fatalf("expected warnings for -o and -u, got %v", res.Warnings)
	}
}

func TestParseCommandNeverFails(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"   ",
		"curl",
		"curl -X",
		"curl -H",
		"curl 'https://open.test -d x",
		`curl https://a.test -d "unterminated`,
		"curl https://a.test \\",
		"not a curl command at all",
		"curl ftp://files.test",
		"curl -- -d",
	}
	for _, in := range inputs {
		req := ParseCommand(in)
		if req.Method == "" {
			t.Fatalf("%q: expected default method", in)
		}
		if req.Headers == nil || req.Params == nil {
			t.Fatalf("%q: expected non-nil slices", in)
		}
	}

	req := ParseCommand("curl ftp://files.test")
	if req.URL != "" || req.Method != restfile.MethodGet {
		t.Fatalf("expected empty url and GET, got %+v", req)
	}
}

func TestParseCommandUnterminatedQuoteKeepsPartial(t *testing.T) {
	t.Parallel()

	res := ParseCommandInfo(`curl https://a.test -d '{"a": 1`)
	if res.Request.Body != `{"a": 1` {
		t.Fatalf("unexpected partial body %q", res.Request.Body)
	}
	if len(res.Warnings) == 0 {
		t.Fatalf("expected unterminated warning")
	}
}

func TestParseCommandPrefixes(t *testing.T) {
	t.Parallel()

	for _, cmd := range []string{
		"$ curl https://api.example.com",
		"sudo -u root curl https://api.example.com",
		"env -u FOO BAR=1 curl https://api.example.com",
		"time -p curl https://api.example.com",
		"https://api.example.com",
	} {
		if got := ParseCommand(cmd).URL; got != "https://api.example.com" {
			t.Fatalf("%s: unexpected url %q", cmd, got)
		}
	}
}

func TestParseCommandNonStandardMethod(t *testing.T) {
	t.Parallel()

	res := ParseCommandInfo("curl -X purge https://cdn.test")
	if res.Request.Method != "PURGE" {
		t.Fatalf("expected upper-cased method, got %s", res.Request.Method)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", res.Warnings)
	}
}

func TestParseCommandShortClusters(t *testing.T) {
	t.Parallel()

	req := ParseCommand(`curl -sSL -H'X-A: 1' -dpayload https://a.test`)
	assertHeaders(t, req.Headers, "X-A|1")
	if req.Body != "payload" || req.Method != restfile.MethodPost {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestParseCommandsMultiple(t *testing.T) {
	t.Parallel()

	src := "curl https://a.test\n\n$ curl -X DELETE https://b.test/1 \\\n  -H 'A: 1'\n"
	res := ParseCommands(src)
	if len(res) != 2 {
		t.Fatalf("expected 2 results, got %d", len(res))
	}
	if res[1].Request.Method != restfile.MethodDelete || res[1].Request.URL != "https://b.test/1" {
		t.Fatalf("unexpected second request %+v", res[1].Request)
	}
	assertHeaders(t, res[1].Request.Headers, "A|1")
}
