package engine

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/brightline/cache"
)

const benchSrc = `<div>
    <h1 class='header'>{{header}}</h1>
    <h2 class='header2'>{{header2}}</h2>
    <ul class='list'>
        <!-- BEGIN list -->
        <li class='item'><a href="mailto:{{email}}">{{name}}</a> {{word}}</li>
        <!-- END list -->
    </ul>
</div>`

func fakeRows(n int) []map[string]any {
	f := gofakeit.New(42)
	rows := make([]map[string]any, n)
	for i := range rows {
		rows[i] = map[string]any{
			"name":  f.Name(),
			"email": f.Email(),
			"word":  f.Word(),
		}
	}
	return rows
}

func BenchmarkRender(b *testing.B) {
	rows := fakeRows(100)
	e := newTestEngine(b, benchSrc)
	for b.Loop() {
		e.Set("header", "Header")
		e.Set("header2", "Header2")
		if err := e.Each(rows, "list", nil); err != nil {
			b.Fatal(err)
		}
		if _, err := e.Render(""); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkLoadAndRender(b *testing.B) {
	rows := fakeRows(100)
	store := cache.NewMemoryStore()
	factory, err := newTestEngine(b, benchSrc).Compile(store, "bench")
	require.NoError(b, err)
	for b.Loop() {
		e, err := factory()
		if err != nil {
			b.Fatal(err)
		}
		if err := e.Each(rows, "list", nil); err != nil {
			b.Fatal(err)
		}
		if _, err := e.Render(""); err != nil {
			b.Fatal(err)
		}
	}
}

func TestRender_FakeRows(t *testing.T) {
	rows := fakeRows(5)
	e := newTestEngine(t, benchSrc)

	require.NoError(t, e.Each(rows, "list", nil))
	out, err := e.Render("")
	require.NoError(t, err)
	for _, r := range rows {
		require.Contains(t, out, r["email"].(string))
	}
}
