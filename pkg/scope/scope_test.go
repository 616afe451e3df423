package scope

import (
	"testing"

	"github.com/sambeau/mustachepp/pkg/mustache"
)

func newEngine() *mustache.Engine {
	return mustache.New(mustache.WithExtension(Extension{}))
}

// chain builds root -> father -> son -> friend frames.
func chain(t *testing.T) []*mustache.Context {
	t.Helper()
	e := newEngine()
	root := e.NewContext(map[string]any{"name": "root", "only": "root-only"})
	father := root.Push(map[string]any{"name": "father"})
	son := father.Push(map[string]any{"name": "son"})
	friend := son.Push(map[string]any{"name": "friend"})
	return []*mustache.Context{root, father, son, friend}
}

func TestLookupRootJump(t *testing.T) {
	frames := chain(t)

	for d, c := range frames {
		got, ok := c.Lookup("~name")
		if d == 0 {
			if ok {
				t.Errorf("depth 0: ~name = %v, want miss", got)
			}
			continue
		}
		want, _ := frames[0].Lookup("name")
		if !ok || got != want {
			t.Errorf("depth %d: ~name = %v, want %v", d, got, want)
		}
	}
}

func TestLookupParentJump(t *testing.T) {
	frames := chain(t)

	for d, c := range frames {
		for n := 1; n <= 4; n++ {
			path := ""
			for i := 0; i < n; i++ {
				path += ":"
			}
			got, ok := c.Lookup(path + "name")
			if !ok {
				t.Fatalf("depth %d: %sname missed", d, path)
			}

			target := d - n
			if target < 0 {
				target = 0
			}
			want, _ := frames[target].Lookup("name")
			if got != want {
				t.Errorf("depth %d: %sname = %v, want %v", d, path, got, want)
			}
		}
	}
}

func TestLookupPlain(t *testing.T) {
	frames := chain(t)
	friend := frames[3]

	tests := []struct {
		path string
		want any
		ok   bool
	}{
		{"name", "friend", true},
		{"only", "root-only", true},
		{":only", "root-only", true},
		{"~only", "root-only", true},
		{"missing", nil, false},
		{"~missing", nil, false},
		{":::missing", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := friend.Lookup(tt.path)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Lookup(%q) = %v, %v; want %v, %v", tt.path, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLookupLoneColonAtRoot(t *testing.T) {
	root := newEngine().NewContext(map[string]any{"name": "root"})
	got, ok := root.Lookup(":name")
	if !ok || got != "root" {
		t.Errorf(":name at root = %v, %v", got, ok)
	}
}

func TestRenderScopeJumps(t *testing.T) {
	view := map[string]any{
		"name": "Father",
		"son": map[string]any{
			"name": "Son",
			"friend": map[string]any{
				"name": "Friend",
			},
		},
	}
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"plain", "{{#son}}{{#friend}}{{name}}{{/friend}}{{/son}}", "Friend"},
		{"one up", "{{#son}}{{#friend}}{{:name}}{{/friend}}{{/son}}", "Son"},
		{"two up", "{{#son}}{{#friend}}{{::name}}{{/friend}}{{/son}}", "Father"},
		{"too far", "{{#son}}{{#friend}}{{:::::name}}{{/friend}}{{/son}}", "Father"},
		{"root", "{{#son}}{{#friend}}{{~name}}{{/friend}}{{/son}}", "Father"},
		{"root at root", "[{{~name}}]", "[]"},
	}

	e := newEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Render(tt.template, view, nil)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOverlay(t *testing.T) {
	base := map[string]any{"a": 1}
	o := NewOverlay(base, map[string]any{"@value": base})
	o.Set("b", 2)

	if v, ok := o.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if v, ok := o.Get("b"); !ok || v != 2 {
		t.Errorf("Get(b) = %v, %v", v, ok)
	}
	if _, ok := base["b"]; ok {
		t.Error("overlay leaked into base")
	}
	if Wrap(o) != o {
		t.Error("Wrap should keep an existing overlay")
	}
	if Wrap(base) == Wrap(base) {
		t.Error("Wrap should create a fresh overlay each time")
	}
	if s := NewOverlay([]int{1, 2, 3}, nil).String(); s != "1,2,3" {
		t.Errorf("String() = %q", s)
	}
}

func TestFramesAreFindable(t *testing.T) {
	c := newEngine().NewContext(map[string]any{"x": 1})
	child := c.Push([]int{1})
	if f, ok := c.Session().FrameFor(child.View()); !ok || f != child {
		t.Error("pushed frame not found by its view")
	}
	if f, ok := c.Session().FrameFor(c.View()); !ok || f != c {
		t.Error("root frame not found by its view")
	}
}
