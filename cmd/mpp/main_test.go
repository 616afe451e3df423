package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	perrors "github.com/sambeau/mustachepp/pkg/errors"
)

func noenv(string) string { return "" }

func runWith(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	err := run(context.Background(), args, strings.NewReader(stdin), stdout, stderr, noenv)
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunVersion(t *testing.T) {
	out, _, err := runWith(t, "", "--version")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "mpp version") {
		t.Errorf("expected version output, got %q", out)
	}
}

func TestRunHelp(t *testing.T) {
	out, _, err := runWith(t, "", "--help")
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, want := range []string{"mpp - mustache templates", "--config", "--check", "serve"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in help, got %q", want, out)
		}
	}
}

func TestRunInvalidFlag(t *testing.T) {
	if _, _, err := runWith(t, "", "--invalid-flag"); err == nil {
		t.Error("expected error for invalid flag")
	}
}

func TestRunMissingConfig(t *testing.T) {
	_, _, err := runWith(t, "", "--config", "/nonexistent/config.yaml", "-e", "x")
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("expected 'config file not found' error, got %v", err)
	}
}

func TestRunRender(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "data.yaml", "name: Ann\nitems: [1, 2, 3]\n")
	page := writeFile(t, dir, "page.mustache", "{{> header}}{{#each items}}{{.}}{{/each}}")
	partials := filepath.Join(dir, "partials")
	writeFile(t, dir, "partials/header.mustache", "<h1>{{name}}</h1>")

	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"template file", "", []string{"-d", data, "-p", partials, page}, "<h1>Ann</h1>123"},
		{"inline", "", []string{"--data", data, "-e", "{{#if items.length > 2}}{{name}}{{/if}}"}, "Ann"},
		{"stdin", "{{#unless missing}}-{{/unless}}{{#with items}}{{~name}}{{/with}}", []string{"-d", data}, "-Ann"},
		{"no data", "", []string{"-e", "[{{name}}]"}, "[]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runWith(t, tt.stdin, tt.args...)
			if err != nil {
				t.Fatal(err)
			}
			if out != tt.want {
				t.Errorf("got %q, want %q", out, tt.want)
			}
		})
	}
}

func TestRunOutputFile(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "out.html")

	out, _, err := runWith(t, "", "-e", "hello", "-o", outPath)
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("expected nothing on stdout, got %q", out)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "hello" {
		t.Errorf("got %q", data)
	}
}

func TestRunStrict(t *testing.T) {
	_, _, err := runWith(t, "", "--strict", "-e", "{{missing}}")
	if !perrors.HasCode(err, "UNDEF-0001") {
		t.Errorf("error = %v, want UNDEF-0001", err)
	}
}

func TestRunTemplateErrorNamesFile(t *testing.T) {
	dir := t.TempDir()
	page := writeFile(t, dir, "bad.mustache", "{{#if f()}}x{{/if}}")

	_, _, err := runWith(t, "", page)
	if !perrors.HasCode(err, "EXPR-0001") {
		t.Fatalf("error = %v, want EXPR-0001", err)
	}
	te := err.(*perrors.TemplateError)
	if te.File != page {
		t.Errorf("File = %q, want %q", te.File, page)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "mustachepp.yaml", "delimiters: [\"{ {\", \"}}\"]\nlocale: \"not a locale!\"\n")

	out, _, err := runWith(t, "", "--config", cfgPath, "-e", "x")
	if err == nil {
		t.Fatalf("expected a configuration error, rendered %q", out)
	}
	for _, want := range []string{"configuration errors:", "delimiters", "invalid locale"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should contain %q: %v", want, err)
		}
	}
}

func TestRunConfigHelpers(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "mustachepp.yaml", "helpers: [markdown]\ndelimiters: [\"<%\", \"%>\"]\n")

	out, _, err := runWith(t, "", "--config", cfgPath, "-e", "<%#markdown%># Hi<%/markdown%>")
	if err != nil {
		t.Fatal(err)
	}
	if out != "<h1>Hi</h1>\n" {
		t.Errorf("got %q", out)
	}
}

func TestRunCheck(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.mustache", "{{#if a > 1}}x{{/if}}")
	writeFile(t, dir, "nested/bad.mustache", "{{#unless a[0]}}x{{/unless}}")
	writeFile(t, dir, "broken.mustache", "{{#open}}")

	out, _, err := runWith(t, "", "--check", dir)
	if err == nil || err.Error() != "2 of 3 templates failed" {
		t.Errorf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"ok   " + filepath.Join(dir, "good.mustache"),
		"FAIL " + filepath.Join(dir, "nested", "bad.mustache"),
		"cannot contain square brackets",
		"FAIL " + filepath.Join(dir, "broken.mustache"),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	if _, _, err := runWith(t, "", "--check", "-e", "{{#if ok}}y{{/if}}"); err != nil {
		t.Errorf("inline check failed: %v", err)
	}
}

func TestRunTooManyTemplates(t *testing.T) {
	if _, _, err := runWith(t, "", "a.mustache", "b.mustache"); err == nil {
		t.Error("expected error for two templates")
	}
}

func TestRunServeInvalidPort(t *testing.T) {
	_, _, err := runWith(t, "", "serve", "--port", "70000")
	if err == nil || !strings.Contains(err.Error(), "invalid port") {
		t.Errorf("expected invalid port error, got %v", err)
	}
}
