package mustachepp

import (
	"strings"
	"sync"
	"testing"

	perrors "github.com/sambeau/mustachepp/pkg/errors"
	"github.com/sambeau/mustachepp/pkg/mustache"
)

func family() map[string]any {
	return map[string]any{
		"father": map[string]any{
			"name": "Raymond",
			"son": map[string]any{
				"name": "Eric",
				"friend": map[string]any{
					"name": "Alex",
				},
			},
		},
	}
}

func TestScopeJumps(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{
			name:     "parent",
			template: `{{#father.son}}{{#friend}}<p>{{:name}}'s friend is {{name}}</p>{{/friend}}{{/father.son}}`,
			want:     "<p>Eric's friend is Alex</p>",
		},
		{
			name:     "grandparent",
			template: `{{#father}}{{#son}}{{#friend}}<p>{{:name}}'s friend is {{name}} and his father is {{::name}}</p>{{/friend}}{{/son}}{{/father}}`,
			want:     "<p>Eric's friend is Alex and his father is Raymond</p>",
		},
		{
			name:     "root",
			template: `{{#father}}{{#son}}{{#friend}}<p>{{:name}}'s friend is {{name}} and his father is {{~father.name}}</p>{{/friend}}{{/son}}{{/father}}`,
			want:     "<p>Eric's friend is Alex and his father is Raymond</p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Render(tt.template, family(), nil)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

type pageOptions struct {
	Mode    string `mustache:"mode"`
	Margins string `mustache:"margins"`
}

func TestWith(t *testing.T) {
	tests := []struct {
		name     string
		template string
		view     any
		want     string
	}{
		{
			name:     "context",
			template: "{{#with options}}The mode is {{mode}}.{{/with}}",
			view:     map[string]any{"options": map[string]any{"mode": "prod"}},
			want:     "The mode is prod.",
		},
		{
			name:     "array is not iterated",
			template: "{{#with numbers}}The result: {{.}}{{/with}}",
			view:     map[string]any{"numbers": []int{1, 2, 3, 4, 5}},
			want:     "The result: 1,2,3,4,5",
		},
		{
			name:     "struct",
			template: "{{#with options}}{{mode}}{{/with}}",
			view:     map[string]any{"options": pageOptions{Mode: "dev"}},
			want:     "dev",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, tt.view, nil)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEach(t *testing.T) {
	ordered := mustache.NewOrderedMap()
	ordered.Set("mode", "debug")
	ordered.Set("margins", "10px 15px 5px 5px")

	numbers := map[string]any{"numbers": []int{1, 2, 3, 4, 5}}
	tests := []struct {
		name     string
		template string
		view     any
		want     string
	}{
		{"index and dot", "{{#each numbers}}{{@index}}:{{.}},{{/each}}", numbers, "0:1,1:2,2:3,3:4,4:5,"},
		{"index and value", "{{#each numbers}}{{@index}}:{{@value}},{{/each}}", numbers, "0:1,1:2,2:3,3:4,4:5,"},
		{
			"ordered mapping",
			`{{#each options}}{{@key}}="{{@value}}"<br/>{{/each}}`,
			map[string]any{"options": ordered},
			`mode="debug"<br/>margins="10px 15px 5px 5px"<br/>`,
		},
		{
			"struct fields",
			`{{#each options}}{{@key}}="{{@value}}"<br/>{{/each}}`,
			map[string]any{"options": pageOptions{Mode: "debug", Margins: "10px 15px 5px 5px"}},
			`mode="debug"<br/>margins="10px 15px 5px 5px"<br/>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, tt.view, nil)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Render() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConditionals(t *testing.T) {
	view := map[string]any{"numbers": []int{1, 2, 3, 4, 5}}
	want := "<h1>Numbers</h1>\n1,2,3,4,5\n\n<h2>Numbers</h2>\n1,2,3,4,5"

	tests := []struct {
		name     string
		template string
	}{
		{
			"if",
			"{{#if numbers.length}}<h1>Numbers</h1>\n{{#each numbers}}{{@value}}{{#if @index < numbers.length - 1}},{{/if}}{{/each}}{{/if}}\n\n" +
				"{{#if numbers.length > 0}}<h2>Numbers</h2>\n{{#each numbers}}{{@value}}{{#if @index < numbers.length - 1}},{{/if}}{{/each}}{{/if}}",
		},
		{
			"unless",
			"{{#unless numbers.length === 0}}<h1>Numbers</h1>\n{{#each numbers}}{{@value}}{{#if @index < numbers.length - 1}},{{/if}}{{/each}}{{/unless}}\n\n" +
				"{{#unless numbers.length < 0}}<h2>Numbers</h2>\n{{#each numbers}}{{@value}}{{#if @index < numbers.length - 1}},{{/if}}{{/each}}{{/unless}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, view, nil)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if got != want {
				t.Errorf("Render() = %q, want %q", got, want)
			}
		})
	}

	a, _ := Render("{{#if numbers.length > 0}}body{{/if}}", view, nil)
	b, _ := Render("{{#unless numbers.length === 0}}body{{/unless}}", view, nil)
	if a != "body" || a != b {
		t.Errorf("if = %q, unless = %q", a, b)
	}
}

func TestConditionalsReject(t *testing.T) {
	inputs := []string{"45[]", "45{}", "45++", "45--", "45+=3", "a=b", "45-=", "45/=", "45*=", "45|=", "45&=", "test()", "test  ( )", "test(1, 2, age)"}
	for _, helper := range []string{"if", "unless"} {
		for _, input := range inputs {
			t.Run(helper+" "+input, func(t *testing.T) {
				_, err := Render("{{#"+helper+" "+input+"}}{{/"+helper+"}}", map[string]any{}, nil)
				if err == nil {
					t.Fatal("expected an error")
				}
				if perrors.ClassOf(err) != perrors.ClassValidation {
					t.Errorf("error class = %q, want validation", perrors.ClassOf(err))
				}
			})
		}
	}
}

func TestEvaluationFailureIsLogged(t *testing.T) {
	logger := NewBufferedLogger()
	e := New(WithLogger(logger))
	got, err := e.Render("[{{#if a >}}x{{/if}}]", map[string]any{"a": 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "[]" {
		t.Errorf("got %q", got)
	}
	lines := logger.Lines()
	if len(lines) != 1 || !strings.Contains(lines[0], "cannot evaluate 'a >'") {
		t.Errorf("log = %q", logger.String())
	}
}

func TestIterationNamesInConditions(t *testing.T) {
	logger := NewBufferedLogger()
	e := New(WithLogger(logger))
	settings := mustache.NewOrderedMap()
	settings.Set("a", 1)
	settings.Set("b", 2)
	view := map[string]any{
		"numbers":  []int{1, 2, 3, 4, 5},
		"settings": settings,
	}

	tests := []struct {
		template string
		want     string
	}{
		{"{{#each numbers}}{{@value}}{{#if @index < 4}},{{/if}}{{/each}}", "1,2,3,4,5"},
		{"{{#each numbers}}{{#unless @value % 2}}{{.}}{{/unless}}{{/each}}", "24"},
		{"{{#each settings}}{{#if @key == 'b'}}{{@value}}{{/if}}{{/each}}", "2"},
	}
	for _, tt := range tests {
		got, err := e.Render(tt.template, view, nil)
		if err != nil {
			t.Fatalf("Render(%q) error = %v", tt.template, err)
		}
		if got != tt.want {
			t.Errorf("Render(%q) = %q, want %q", tt.template, got, tt.want)
		}
	}
	if lines := logger.Lines(); len(lines) != 0 {
		t.Errorf("unexpected evaluation failures: %q", lines)
	}
}

type address struct{ City string }

type contact struct {
	*address
	Name string
}

func TestNilEmbeddedPointer(t *testing.T) {
	got, err := Render("[{{City}}]{{#if City}}yes{{/if}}{{Name}}", contact{Name: "n"}, nil)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != "[]n" {
		t.Errorf("Render() = %q, want %q", got, "[]n")
	}

	got, _ = Render("{{#if City == 'Oslo'}}{{City}}{{/if}}", contact{address: &address{City: "Oslo"}}, nil)
	if got != "Oslo" {
		t.Errorf("Render() = %q, want %q", got, "Oslo")
	}
}

func TestHelpers(t *testing.T) {
	e := New()
	e.RegisterHelper("repeat", func(s *mustache.Section, args, body string) (string, error) {
		out, err := s.Render(body)
		return strings.Repeat(out, len(args)), err
	})
	e.AliasHelper("again", "repeat")

	got, err := e.Render("{{#again xxx}}{{n}}{{/again}}", map[string]any{"n": 1}, nil)
	if err != nil || got != "111" {
		t.Errorf("Render() = %q, %v", got, err)
	}

	if _, ok := e.GetHelper("again"); !ok {
		t.Error("GetHelper(again) missed")
	}
	if _, ok := e.GetHelper("nope"); ok {
		t.Error("GetHelper(nope) should miss")
	}

	// helpers shadow view data of the same name
	got, _ = e.Render("{{#each list}}{{.}}{{/each}}", map[string]any{"each": "data", "list": []int{1, 2}}, nil)
	if got != "12" {
		t.Errorf("shadowed helper = %q", got)
	}

	// registering again replaces
	e.RegisterHelper("repeat", func(s *mustache.Section, args, body string) (string, error) { return "new", nil })
	if got, _ := e.Render("{{#again x}}{{/again}}", nil, nil); got != "new" {
		t.Errorf("replaced helper = %q", got)
	}
}

func TestPackageHelpers(t *testing.T) {
	RegisterHelper("pkgtest", func(s *mustache.Section, args, body string) (string, error) { return "<" + args + ">", nil })
	AliasHelper("pkgalias", "pkgtest")
	if _, ok := GetHelper("pkgalias"); !ok {
		t.Fatal("GetHelper(pkgalias) missed")
	}
	tmpl, err := Compile("{{#pkgalias a b}}{{/pkgalias}}")
	if err != nil {
		t.Fatal(err)
	}
	got, err := tmpl.Render(nil, nil)
	if err != nil || got != "<a b>" {
		t.Errorf("Render() = %q, %v", got, err)
	}
}

func TestCompileTags(t *testing.T) {
	e := New()
	tmpl, err := e.Compile("<%#each xs%><%@index%>=<%.%> <%/each%>", mustache.Tags{"<%", "%>"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := tmpl.Render(map[string]any{"xs": []string{"a", "b"}}, nil)
	if err != nil || got != "0=a1=b" {
		t.Errorf("Render() = %q, %v", got, err)
	}

	e = New(WithTags("[[", "]]"))
	got, err = e.Render("[[#with p]][[name]][[/with]]", map[string]any{"p": map[string]any{"name": "n"}}, nil)
	if err != nil || got != "n" {
		t.Errorf("Render() = %q, %v", got, err)
	}

	e = New(WithTags("«", "»"))
	got, err = e.Render("«#each items»«.»,«/each»", map[string]any{"items": []string{"a", "b"}}, nil)
	if err != nil || got != "a,b," {
		t.Errorf("Render() = %q, %v", got, err)
	}
}

func TestPartials(t *testing.T) {
	partials := map[string]string{
		"item": "<li>{{@index}}:{{name}}{{#if @index === 0}}*{{/if}}</li>",
	}
	view := map[string]any{"people": []any{
		map[string]any{"name": "a"},
		map[string]any{"name": "b"},
	}}
	got, err := Render("<ul>{{#each people}}{{> item}}{{/each}}</ul>", view, partials)
	if err != nil {
		t.Fatal(err)
	}
	if got != "<ul><li>0:a*</li><li>1:b</li></ul>" {
		t.Errorf("got %q", got)
	}
}

func TestStrict(t *testing.T) {
	_, err := New(WithStrict(true)).Render("{{#with a}}{{missing}}{{/with}}", map[string]any{"a": map[string]any{}}, nil)
	if !perrors.HasCode(err, "UNDEF-0001") {
		t.Errorf("error = %v, want UNDEF-0001", err)
	}
}

func TestWrap(t *testing.T) {
	if _, err := Wrap(nil); !perrors.HasCode(err, "CONFIG-0001") {
		t.Fatalf("Wrap(nil) error = %v", err)
	} else if err.(*perrors.TemplateError).Message != "Mustache does not exist." {
		t.Errorf("message = %q", err.(*perrors.TemplateError).Message)
	}

	core := mustache.New(mustache.Delimiters("<%", "%>"))
	e, err := Wrap(core)
	if err != nil {
		t.Fatal(err)
	}
	if e.Core() != core || e.Tags() != core.Tags() {
		t.Error("Wrap did not keep the core settings")
	}
	got, err := e.Render("<%#each xs%><%.%><%/each%>", map[string]any{"xs": []int{1, 2}}, nil)
	if err != nil || got != "12" {
		t.Errorf("Render() = %q, %v", got, err)
	}
}

func TestRenderIsRepeatable(t *testing.T) {
	e := New()
	template := "{{#each xs}}{{#with .}}{{:@index}}{{/with}}{{/each}}|{{#if xs.length > 1}}many{{/if}}"
	view := map[string]any{"xs": []string{"a", "b", "c"}}

	first, err := e.Render(template, view, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first != "012|many" {
		t.Errorf("first render = %q", first)
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = e.Render(template, view, nil)
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		if r != first {
			t.Errorf("render %d = %q, want %q", i, r, first)
		}
	}
}
