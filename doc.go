/*
Package mustachepp renders mustache templates extended with section helpers
and scope jumps.

Section helpers take arguments in their opening tag:

	{{#with options}}The mode is {{mode}}.{{/with}}
	{{#each numbers}}{{@index}}:{{.}},{{/each}}
	{{#if numbers.length > 0}}...{{/if}}
	{{#unless numbers.length === 0}}...{{/unless}}

Names can jump up the chain of sections they are rendered in. "~name" is
looked up on the root view, ":name" one section up and "::name" two:

	{{#father}}{{#son}}{{name}} is the son of {{:name}}{{/son}}{{/father}}

Register helpers of your own with RegisterHelper; a Helper receives the
trimmed argument text and the section body, and renders the body with
Section.Render:

	mustachepp.RegisterHelper("upper", func(s *mustache.Section, args, body string) (string, error) {
		out, err := s.Render(body)
		return strings.ToUpper(out), err
	})
*/
package mustachepp
