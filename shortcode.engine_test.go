package shortcode

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestEngine(t *testing.T, src ContentSource, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithSource(src), WithLogger(zaptest.NewLogger(t))}, opts...)
	engine, err := New(opts...)
	require.NoError(t, err)
	return engine
}

func render(t *testing.T, e *Engine, text string, rc *Context) string {
	t.Helper()
	out, err := e.RenderString(context.Background(), text, rc)
	require.NoError(t, err)
	return out
}

func TestNew(t *testing.T) {
	engine, err := New()
	require.NoError(t, err)

	assert.Equal(t, []string{DirectiveField, DirectiveList, DirectiveRawMeta, DirectiveTypedField}, engine.List())
	assert.Len(t, engine.All(), 4)
	assert.NotNil(t, engine.Cache())
	assert.Equal(t, DefaultLocale, engine.Formatter().Locale().String())
	assert.Nil(t, engine.Source())
	assert.NoError(t, engine.Close())

	t.Run("without builtins", func(t *testing.T) {
		assert.Empty(t, MustNew(WithoutBuiltins()).List())
	})

	t.Run("bad locale", func(t *testing.T) {
		_, err := New(WithLocale("??"))
		assert.Error(t, err)
		assert.Panics(t, func() { MustNew(WithCurrency("nope")) })
	})
}

func TestEngine_ZeroDirectiveIdentity(t *testing.T) {
	engine := newTestEngine(t, newProductSource())
	inputs := []string{
		"",
		"plain text",
		"<p>markup &amp; entities</p>",
		"see note [1] and [2]",
		"[note: read this]",
		"a [ b ] c",
		`[field field="price"`,
		"[/field] stray close",
		"multi\nline\r\ntext",
		"unicode ✓ 日本語",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, input, render(t, engine, input, &Context{PostID: 1}))
		})
	}
}

func TestEngine_RoundTripWithoutHandlers(t *testing.T) {
	engine := MustNew(WithoutBuiltins())
	inputs := []string{
		`Price: [field field="price" format="currency"] today`,
		`[list type=product count=3 show_thumbnail]`,
		`[field field="bio"]No bio[/field] and [raw_meta key='sku' /]`,
		`[[field field="price"]] escaped`,
		`[a][b][/a][/b]`,
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			doc, err := engine.Render(context.Background(), input, nil)
			require.NoError(t, err)
			assert.Equal(t, input, doc.String())
		})
	}
}

func TestEngine_UnregisteredDirectiveIsLiteral(t *testing.T) {
	engine := newTestEngine(t, newProductSource())
	input := `Hello [gallery ids="1,2"] and [field field="title"]!`

	doc, err := engine.Render(context.Background(), input, &Context{PostID: 1})
	require.NoError(t, err)

	assert.Equal(t, `Hello [gallery ids="1,2"] and Anvil!`, doc.String())
	directives := doc.Directives()
	require.Len(t, directives, 2)
	assert.True(t, directives[0].Literal)
	assert.Equal(t, "gallery", directives[0].Directive.Name)
	assert.Equal(t, StateResolved, directives[1].State)
}

func TestEngine_UnregisteredBlockDoesNotHideDirectives(t *testing.T) {
	engine := newTestEngine(t, newProductSource())

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"nested field resolves", `[note]Price: [field field="price" post_id="1"][/note]`, `[note]Price: $50,000.00[/note]`},
		{"attributes on the unknown tag", `<[note tone="x"]>[field field="title"]</[/note]>`, `<[note tone="x"]>Anvil</[/note]>`},
		{"registered block still consumes its content", `[field field="title"][note]x[/note][/field]`, "Anvil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, render(t, engine, tt.input, &Context{PostID: 1}))
		})
	}

	assert.Len(t, engine.Parse(`[note][field field="title"][/note]`), 1, "Parse reports the block as written")
}

func TestEngine_Scenarios(t *testing.T) {
	engine := newTestEngine(t, newProductSource())

	t.Run("ambient currency field", func(t *testing.T) {
		out := render(t, engine, `Price: [field field="price" format="currency"] today`, &Context{PostID: 1})
		assert.Equal(t, "Price: $50,000.00 today", out)
	})

	t.Run("empty list renders the empty-state message", func(t *testing.T) {
		out := render(t, engine, `[list type="x" count="2"]`, nil)
		assert.Equal(t, `<p class="shortcode-list-empty">No items found.</p>`, out)
	})

	t.Run("gallery renders two images in order", func(t *testing.T) {
		doc, err := engine.Render(context.Background(), `[typed_field name="gallery" type="gallery"]`, &Context{PostID: 1})
		require.NoError(t, err)
		require.Len(t, doc.Fragments, 1)

		imgs := doc.Fragments[0].Node.FindAll(tagImg)
		require.Len(t, imgs, 2)
		assert.Equal(t, "/1.jpg", AttrValue(imgs[0], attrSrc))
		assert.Equal(t, "/2.jpg", AttrValue(imgs[1], attrSrc))
	})

	t.Run("duplicate registration keeps the first handler", func(t *testing.T) {
		e := MustNew(WithoutBuiltins())
		first := NewHandlerFunc("greet", nil, func(context.Context, *Context, Attributes) ResolvedValue {
			return Resolved("first", "")
		}, nil, nil)
		second := NewHandlerFunc("greet", nil, func(context.Context, *Context, Attributes) ResolvedValue {
			return Resolved("second", "")
		}, nil, nil)

		require.NoError(t, e.Register(first))
		err := e.Register(second)
		require.Error(t, err)
		assert.Panics(t, func() { e.MustRegister(second) })

		h, ok := e.Get("greet")
		require.True(t, ok)
		assert.Same(t, first, h)
		assert.Equal(t, "first", render(t, e, "[greet]", nil))
	})
}

func TestEngine_FieldStates(t *testing.T) {
	engine := newTestEngine(t, newProductSource())
	rc := &Context{PostID: 1}

	tests := []struct {
		name     string
		input    string
		rc       *Context
		expected string
	}{
		{"resolved", `[field field="title"]`, rc, "Anvil"},
		{"explicit post id", `[field field="title" post_id="2"]`, nil, "Bucket"},
		{"post type mismatch is empty", `[field field="title" post_type="page"]`, rc, ""},
		{"not found uses default", `[field field="nope" default="N/A"]`, rc, "N/A"},
		{"not found ignores block content", `[field field="nope"]<em>none</em>[/field]`, rc, ""},
		{"missing raw meta ignores block content", `a[raw_meta key="missing"]fallback[/raw_meta]b`, rc, "ab"},
		{"default wins over block content", `[field field="nope" default="d"]inner[/field]`, rc, "d"},
		{"not found without fallback", `a[field field="nope"]b`, rc, "ab"},
		{"missing item uses default", `[field field="title" post_id="404" default="gone"]`, nil, "gone"},
		{"validation failure is omitted", `a[field]b`, rc, "ab"},
		{"invalid post id is omitted", `a[field field="title" post_id="abc"]b`, rc, "ab"},
		{"raw format escapes", `[field field="price" format="raw"]`, rc, "50000"},
		{"name rule picks currency", `[field field="price"]`, rc, "$50,000.00"},
		{"date field", `[field field="date"]`, rc, "January 1, 2024"},
		{"wrapper and class", `[field field="title" wrapper="h2" class="t"]`, rc, `<h2 class="t">Anvil</h2>`},
		{"disallowed wrapper becomes span", `[field field="title" wrapper="script"]`, rc, `<span>Anvil</span>`},
		{"class alone wraps in span", `[field field="title" class="x"]`, rc, `<span class="x">Anvil</span>`},
		{"raw meta", `[raw_meta key="sku"]`, rc, "ANV-1"},
		{"raw meta list", `[raw_meta key="tags" single="false" separator=" / "]`, rc, "heavy / iron"},
		{"typed field date", `[typed_field name="launch"]`, rc, "March 15, 2024"},
		{"typed field raw", `[typed_field name="launch" format="raw"]`, rc, "2024-03-15"},
		{"typed field bad format is omitted", `[typed_field name="launch" format="fancy"]`, rc, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, render(t, engine, tt.input, tt.rc))
		})
	}
}

func TestEngine_ErroredDirective(t *testing.T) {
	src := newCountingSource()
	src.setFailure(errors.New("dial tcp: connection refused"))
	engine := newTestEngine(t, src)
	rc := &Context{PostID: 1}

	t.Run("error marker", func(t *testing.T) {
		out := render(t, engine, `x [field field="title"] y`, rc)
		assert.Equal(t, `x <span class="shortcode-error" data-shortcode="field" data-error="content source request failed">Unable to load</span> y`, out)
		assert.NotContains(t, out, "dial tcp")
	})

	t.Run("default replaces the marker", func(t *testing.T) {
		assert.Equal(t, "n/a", render(t, engine, `[field field="title" default="n/a"]`, rc))
	})

	t.Run("no target item", func(t *testing.T) {
		doc, err := MustNew(WithSource(newProductSource())).Render(context.Background(), `[field field="title"]`, &Context{})
		require.NoError(t, err)
		f := doc.Fragments[0]
		assert.Equal(t, StateErrored, f.State)
		assert.Equal(t, ErrMsgNoTargetItem, f.Value.Message)
	})

	t.Run("no source configured", func(t *testing.T) {
		doc, err := MustNew().Render(context.Background(), `[field field="title"]`, &Context{PostID: 1})
		require.NoError(t, err)
		assert.Equal(t, StateErrored, doc.Fragments[0].State)
		assert.Equal(t, ErrMsgNoSource, doc.Fragments[0].Value.Message)
	})
}

func TestEngine_PanicContainment(t *testing.T) {
	engine := newTestEngine(t, newProductSource())
	engine.MustRegister(NewHandlerFunc("boom", nil, func(context.Context, *Context, Attributes) ResolvedValue {
		panic("resolver exploded")
	}, nil, nil))
	engine.MustRegister(NewHandlerFunc("badrender", nil, func(context.Context, *Context, Attributes) ResolvedValue {
		return Resolved("x", "")
	}, func(ResolvedValue, Attributes) Node {
		panic("render exploded")
	}, nil))

	doc, err := engine.Render(context.Background(), `[boom] [field field="title"] [badrender]`, &Context{PostID: 1})
	require.NoError(t, err)

	directives := doc.Directives()
	require.Len(t, directives, 3)
	assert.Equal(t, StateErrored, directives[0].State)
	assert.Equal(t, ErrMsgHandlerPanic, directives[0].Value.Message)
	assert.Equal(t, StateResolved, directives[1].State)
	assert.Contains(t, doc.String(), "Anvil")
	assert.Contains(t, directives[2].String(), ClassError)
	assert.NotContains(t, doc.String(), "exploded")
}

func TestEngine_CustomHandler(t *testing.T) {
	engine := MustNew(WithoutBuiltins())
	engine.MustRegister(NewHandlerFunc("year",
		map[string]string{"offset": "0"},
		func(_ context.Context, _ *Context, attrs Attributes) ResolvedValue {
			return Resolved(2024+attrs.Int("offset", 0), TypeNumber)
		}, nil, nil))
	engine.MustRegister(NewHandlerFunc("nothing", nil, nil, nil, nil))
	engine.MustRegister(NewHandlerFunc("strict", nil, nil, nil, requireAttributes("strict", "id")))

	assert.Equal(t, "2024 2025", render(t, engine, `[year] [year offset=1]`, nil))
	assert.Equal(t, "fallback", render(t, engine, `[nothing default="fallback"]`, nil))
	assert.Equal(t, "<>", render(t, engine, `<[strict]>`, nil))

	require.True(t, engine.Unregister("year"))
	assert.False(t, engine.Unregister("year"))
	assert.False(t, engine.Has("year"))
	assert.Equal(t, "[year]", render(t, engine, `[year]`, nil))

	assert.Error(t, engine.Register(nil))
	assert.Error(t, engine.Register(NewHandlerFunc("", nil, nil, nil, nil)))
}

func TestEngine_Lists(t *testing.T) {
	engine := newTestEngine(t, newProductSource())

	t.Run("compact list", func(t *testing.T) {
		out := render(t, engine, `[list type="product" count="2" template="list" show_excerpt="false"]`, nil)
		assert.Equal(t, `<ul class="shortcode-list shortcode-list-compact">`+
			`<li class="shortcode-list-item"><span class="shortcode-item-title">Bucket</span></li>`+
			`<li class="shortcode-list-item"><span class="shortcode-item-title">crate</span></li></ul>`, out)
	})

	t.Run("grid", func(t *testing.T) {
		doc, err := engine.Render(context.Background(), `[list type="product" template="grid" columns="2" orderby="title" order="asc"]`, nil)
		require.NoError(t, err)
		node := doc.Fragments[0].Node
		divs := node.FindAll(tagDiv)
		require.NotEmpty(t, divs)
		assert.Equal(t, "2", AttrValue(divs[0], attrColumns))
		articles := node.FindAll(tagArticle)
		require.Len(t, articles, 3)
		links := node.FindAll(tagA)
		require.Len(t, links, 1)
		assert.Equal(t, "/anvil", AttrValue(links[0], attrHref))
	})

	t.Run("meta line", func(t *testing.T) {
		out := render(t, engine, `[list type="product" count="1" template="card" show_meta]`, nil)
		assert.Contains(t, out, `<time datetime="2024-01-03T00:00:00Z">January 3, 2024</time>`)
		assert.Contains(t, out, ClassListCard)
		assert.Contains(t, out, "Holds water")
	})

	invalid := []string{
		`[list]`,
		`[list type="product" count="0"]`,
		`[list type="product" count="101"]`,
		`[list type="product" columns="13"]`,
		`[list type="product" orderby="price"]`,
		`[list type="product" order="up"]`,
		`[list type="product" template="carousel"]`,
	}
	for _, input := range invalid {
		t.Run("omitted "+input, func(t *testing.T) {
			assert.Equal(t, "", render(t, engine, input, nil))
		})
	}
}

func TestEngine_ListCacheAttribute(t *testing.T) {
	src := newCountingSource()
	engine := newTestEngine(t, src)

	render(t, engine, `[list type="product"]`, nil)
	render(t, engine, `[list type="product"]`, nil)
	assert.Equal(t, int64(1), src.lists.Load())

	render(t, engine, `[list type="product" cache="false"]`, nil)
	render(t, engine, `[list type="product" cache="0"]`, nil)
	assert.Equal(t, int64(3), src.lists.Load())

	assert.Equal(t, 1, engine.InvalidateList("product"))
	render(t, engine, `[list type="product"]`, nil)
	assert.Equal(t, int64(4), src.lists.Load())

	render(t, engine, `[field field="title"]`, &Context{PostID: 1})
	assert.Equal(t, 1, engine.InvalidateItem(1))
}

func TestEngine_ConcurrentIdenticalDirectivesFetchOnce(t *testing.T) {
	src := newCountingSource()
	src.delay = 20 * time.Millisecond
	engine := newTestEngine(t, src)
	input := strings.Repeat(`[raw_meta key="sku"] `, 20)

	out := render(t, engine, input, &Context{PostID: 1})

	assert.Equal(t, strings.Repeat("ANV-1 ", 20), out)
	assert.Equal(t, int64(1), src.metas.Load())
}

func TestEngine_Locale(t *testing.T) {
	engine := newTestEngine(t, newProductSource(), WithLocale("de-DE"), WithCurrency("EUR"))

	assert.Equal(t, "€50.000,00", render(t, engine, `[field field="price"]`, &Context{PostID: 1}))
	assert.Equal(t, "01.01.2024", render(t, engine, `[field field="date"]`, &Context{PostID: 1}))

	t.Run("per pass override", func(t *testing.T) {
		assert.Equal(t, "€50,000.00", render(t, engine, `[field field="price"]`, &Context{PostID: 1, Locale: "en-US"}))
	})
}

func TestEngine_AmbientPost(t *testing.T) {
	src := newCountingSource()
	engine := newTestEngine(t, src)
	rc := &Context{Post: &Item{ID: 5, Title: "Preloaded", Fields: map[string]any{"price": 3}}}

	assert.Equal(t, "Preloaded $3.00", render(t, engine, `[field field="title"] [field field="price"]`, rc))
	assert.Equal(t, int64(0), src.items.Load())
}

func TestEngine_Parse(t *testing.T) {
	engine := MustNew()

	directives := engine.Parse(`a [field field="x"] b [unknown flag]c[/unknown]`)

	type summary struct {
		Name  string
		Attrs map[string]string
		Inner string
	}
	got := make([]summary, 0, len(directives))
	for _, d := range directives {
		got = append(got, summary{Name: d.Name, Attrs: d.Attributes.Map(), Inner: d.InnerContent})
	}
	want := []summary{
		{Name: "field", Attrs: map[string]string{"field": "x"}},
		{Name: "unknown", Attrs: map[string]string{"flag": ""}, Inner: "c"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_RenderCancelled(t *testing.T) {
	src := newCountingSource()
	src.gate = make(chan struct{})
	defer close(src.gate)
	engine := newTestEngine(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	doc, err := engine.Render(ctx, `a [field field="title"] b`, &Context{PostID: 1})

	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, doc)
	assert.True(t, strings.HasPrefix(doc.String(), "a "))
}
