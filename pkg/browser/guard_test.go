package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLGuard(t *testing.T) {
	guard, err := NewURLGuard([]string{"*.example.com", "example.com"}, []string{"ads.example.com"})
	require.NoError(t, err)

	tests := []struct {
		url     string
		allowed bool
	}{
		{"https://example.com/", true},
		{"https://shop.example.com/kettles", true},
		{"https://SHOP.Example.com/", true},
		{"https://ads.example.com/track", false},
		{"https://other.org/", false},
		{"file:///etc/passwd", false},
		{"javascript:alert(1)", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := guard.Check(tt.url)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrNavigationDenied), "got %v", err)
			}
		})
	}
}

func TestURLGuard_EmptyAllowListAllowsAll(t *testing.T) {
	guard, err := NewURLGuard(nil, []string{"*.bad.test"})
	require.NoError(t, err)
	assert.NoError(t, guard.Check("https://anything.test/"))
	assert.Error(t, guard.Check("http://x.bad.test/"))
}

func TestURLGuard_NilOnlyChecksScheme(t *testing.T) {
	var guard *URLGuard
	assert.NoError(t, guard.Check("https://anything.test/"))
	assert.ErrorIs(t, guard.Check("ftp://files.test/"), ErrNavigationDenied)
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com/a", NormalizeURL("  example.com/a "))
	assert.Equal(t, "http://example.com", NormalizeURL("http://example.com"))
	assert.Equal(t, "about:blank", NormalizeURL("about:blank"))
	assert.Equal(t, "", NormalizeURL(""))
}
