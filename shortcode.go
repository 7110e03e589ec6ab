// Package shortcode expands bracketed directives embedded in free-form content.
//
// A directive names a handler and carries attributes:
//
//	Price: [field field="price" format="currency"] today
//
// Two forms are recognized:
//
// Self-closing directives: [name attr="value" ...] or [name attr="value" /]
//
//	[typed_field name="gallery" type="gallery"]
//
// Block directives: [name attr="value"]inner[/name]
//
//	[callout tone="info"]Read the terms first.[/callout]
//
// The enclosed text reaches the handler as InnerContent. Only registered names
// take the block form; for any other name the opening and closing tags stay
// literal and the text between them is rendered like the rest of the content.
//
// Anything that does not match the grammar, and any directive whose name is not
// registered, is left in the output exactly as written. [[name]] escapes a
// directive.
//
// # Built-in Directives
//
// list - Query a collection of content items:
//
//	[list type="product" count="4" orderby="title" order="ASC" template="grid"]
//
// field - One field of a content item (defaults to the ambient item):
//
//	[field field="title" wrapper="h2" class="product-title"]
//
// typed_field - A custom field whose type tag drives formatting:
//
//	[typed_field name="gallery" size="thumbnail"]
//
// raw_meta - An untyped metadata value:
//
//	[raw_meta key="sku" default="n/a"]
//
// # Basic Usage
//
//	source := shortcode.NewMemorySource()
//	engine := shortcode.MustNew(shortcode.WithSource(source))
//	doc, err := engine.Render(ctx, "Hello [field field=\"title\"]", &shortcode.Context{PostID: 42})
//	fmt.Println(doc.String())
//
// # Asynchronous Rendering
//
// Start returns a Session whose directives resolve concurrently. Each directive
// moves from Loading to Resolved, Empty or Errored; Snapshot renders the current
// state with placeholders for pending directives, and Dispose drops any result
// that arrives after the consumer has gone away:
//
//	session := engine.Start(ctx, content, rc)
//	defer session.Dispose()
//	for update := range session.Updates() {
//	    redraw(session.Snapshot(), update)
//	}
//
// # Custom Handlers
//
// Implement Handler, or build one with NewHandlerFunc, and register it.
// Registration is first-come-wins: a second handler for the same name is
// rejected and the first stays active.
//
//	engine.MustRegister(shortcode.NewHandlerFunc("year", nil,
//	    func(ctx context.Context, rc *shortcode.Context, attrs shortcode.Attributes) shortcode.ResolvedValue {
//	        return shortcode.Resolved(time.Now().Year(), shortcode.TypeNumber)
//	    }, nil, nil))
//
// # Configuration
//
//	engine, _ := shortcode.New(
//	    shortcode.WithSource(shortcode.NewHTTPSource(shortcode.HTTPSourceConfig{BaseURL: api})),
//	    shortcode.WithLocale("de-DE"),
//	    shortcode.WithLogger(logger),
//	)
package shortcode
