/*
Package mustache is an implementation of the mustache templating language in
Go, built to be extended.

	engine := mustache.New()
	s, err := engine.Render("Hello, {{subject}}!", map[string]any{"subject": "world"}, nil)
	if err != nil {
		// handle error
	}
	fmt.Println(s)

Values are resolved against a chain of Context frames. A section whose value
is a slice renders once per element, a map, struct or scalar value is pushed
as a new frame, and a Lambda value is called with the raw, unrendered text of
the section:

	upper := mustache.Lambda(func(s *mustache.Section) (string, error) {
		out, err := s.Render(s.Text)
		return strings.ToUpper(out), err
	})
	engine.Render("{{#upper}}hi {{name}}{{/upper}}", map[string]any{"upper": upper, "name": "bob"}, nil)

The engine exposes three extension points through the Extension interface:
OnCompile sees template text before it is parsed, OnPush sees every view
before a frame is created for it, and OnLookup sees every name lookup. Each
extension does its own work and then calls the next handler in the chain; the
last handler is the engine's own behaviour.

Every frame created while rendering one template is recorded in a Session,
which can map a view back to the frame that holds it (see Session.FrameFor).
*/
package mustache
