package browser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/scout/internal/testing/browsertest"
)

func newFakePages() map[string]browsertest.Page {
	return map[string]browsertest.Page{
		"https://shop.example/": {
			Title:        "Shop",
			HTML:         `<html><body><h1>Kettles</h1><input name="q" placeholder="Search"><a href="/k1">Kettle One</a></body></html>`,
			Elements:     []string{"input[name=q]", "a.kettle"},
			ScrollHeight: 3200,
		},
		"https://shop.example/k1": {
			Title: "Kettle One",
			HTML:  `<html><body><p>Kettle One costs $30</p></body></html>`,
		},
	}
}

func TestPage_Read(t *testing.T) {
	a := browsertest.New(newFakePages())
	p := NewPage(a)
	ctx := context.Background()

	require.NoError(t, p.Navigate(ctx, "https://shop.example/"))
	snap, err := p.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example/", snap.URL)
	assert.Equal(t, "Shop", snap.Title)
	assert.Equal(t, "[Scroll position: 25%]\nKettles\n[Input: Search] Kettle One", snap.Content)

	require.NoError(t, p.Scroll(ctx, "down", 0))
	snap, err = p.Read(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(snap.Content, "[Scroll position: 45%]"), snap.Content)
}

func TestPage_ReadTruncates(t *testing.T) {
	pages := map[string]browsertest.Page{
		"https://long.example/": {HTML: "<body><p>" + strings.Repeat("a", 500) + "</p></body>"},
	}
	p := NewPage(browsertest.New(pages), WithMaxContentLength(100))
	ctx := context.Background()
	require.NoError(t, p.Navigate(ctx, "long.example/"))

	snap, err := p.Read(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(snap.Content, TruncationMarker))
}

func TestPage_Navigate(t *testing.T) {
	t.Run("adds scheme", func(t *testing.T) {
		a := browsertest.New(newFakePages())
		p := NewPage(a)
		require.NoError(t, p.Navigate(context.Background(), "shop.example/"))
		url, _ := a.CurrentURL(context.Background())
		assert.Equal(t, "https://shop.example/", url)
	})

	t.Run("guard denies", func(t *testing.T) {
		guard, err := NewURLGuard([]string{"allowed.example"}, nil)
		require.NoError(t, err)
		p := NewPage(browsertest.New(newFakePages()), WithURLGuard(guard))
		err = p.Navigate(context.Background(), "https://shop.example/")
		assert.True(t, errors.Is(err, ErrNavigationDenied))
	})

	t.Run("load failure is wrapped", func(t *testing.T) {
		p := NewPage(browsertest.New(newFakePages()))
		err := p.Navigate(context.Background(), "https://missing.example/")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load https://missing.example/")
	})

	t.Run("history targets", func(t *testing.T) {
		a := browsertest.New(newFakePages())
		p := NewPage(a)
		ctx := context.Background()

		// nothing to go forward to yet
		require.NoError(t, p.Navigate(ctx, TargetForward))
		require.NoError(t, p.Navigate(ctx, "https://shop.example/"))
		require.NoError(t, p.Navigate(ctx, "https://shop.example/k1"))

		require.NoError(t, p.Navigate(ctx, "Back"))
		url, _ := a.CurrentURL(ctx)
		assert.Equal(t, "https://shop.example/", url)

		require.NoError(t, p.Navigate(ctx, TargetForward))
		url, _ = a.CurrentURL(ctx)
		assert.Equal(t, "https://shop.example/k1", url)

		require.NoError(t, p.Navigate(ctx, TargetReload))
	})
}

func TestPage_ClickAndType(t *testing.T) {
	a := browsertest.New(newFakePages())
	p := NewPage(a)
	ctx := context.Background()
	require.NoError(t, p.Navigate(ctx, "https://shop.example/"))

	require.NoError(t, p.Click(ctx, "a.kettle"))
	assert.Equal(t, []string{"a.kettle"}, a.Clicks())

	err := p.Click(ctx, "#missing")
	assert.True(t, errors.Is(err, ErrElementNotFound))

	require.NoError(t, p.Type(ctx, "input[name=q]", "kettle\n"))
	assert.Equal(t, "kettle\n", a.Typed("input[name=q]"))

	err = p.Type(ctx, "#nope", "x")
	assert.True(t, errors.Is(err, ErrElementNotFound))
}

func TestPage_ActuatorErrors(t *testing.T) {
	a := browsertest.New(newFakePages())
	a.Err = errors.New("target closed")
	p := NewPage(a)

	_, err := p.Read(context.Background())
	assert.Error(t, err)
	assert.Error(t, p.Scroll(context.Background(), "up", 10))
	_, err = p.Screenshot(context.Background())
	assert.Error(t, err)
}

func TestScrollPercent(t *testing.T) {
	assert.Equal(t, 100, ScrollPercent(0, 800, 600))
	assert.Equal(t, 100, ScrollPercent(0, 800, 0))
	assert.Equal(t, 25, ScrollPercent(0, 800, 3200))
	assert.Equal(t, 100, ScrollPercent(2400, 800, 3200))
	assert.Equal(t, 100, ScrollPercent(5000, 800, 3200))
}
