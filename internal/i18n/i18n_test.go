package i18n

import (
	"encoding/json"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateWithFallback(t *testing.T) {
	require.NoError(t, Initialize())

	assert.Equal(t, "Panier vidé", T("fr", KeyCartCleared))
	assert.Equal(t, "Cart cleared", T("de", KeyCartCleared))
	assert.Equal(t, "Invalid order id", T("en", KeyRequestInvalidID, "order"))
	assert.Equal(t, "missing.key", T("en", "missing.key"))
	assert.Equal(t, "Not enough stock for this product", T("en", ErrorKey("INSUFFICIENT_STOCK")))
	assert.ElementsMatch(t, []string{"en", "fr"}, GetSupportedLanguages())
}

func TestLocalesShareKeys(t *testing.T) {
	load := func(name string) map[string]string {
		data, err := fs.ReadFile(localeFS, "locales/"+name)
		require.NoError(t, err)
		var m map[string]string
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}
	en, fr := load("en.json"), load("fr.json")

	for key := range en {
		assert.Contains(t, fr, key)
	}
	assert.Len(t, fr, len(en))
}
