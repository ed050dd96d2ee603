package locale_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveire/grantlee/internal/locale"
)

func TestLookupPluralCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		count int
	}{
		{"de_DE", 2},
		{"fr_FR", 2},
		{"en", 2},
		{"en_GB", 2},
		{"ru_RU", 3},
		{"pl", 3},
		{"cs_CZ", 3},
		{"ja_JP", 1},
		{"zh_CN", 1},
		{"ar", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l, err := locale.Lookup(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.count, l.PluralCount())
			assert.Len(t, l.Categories(), tt.count)
		})
	}
}

func TestPluralIndex(t *testing.T) {
	t.Parallel()

	de := locale.MustLookup("de_DE")
	assert.Equal(t, 0, de.PluralIndex(1))
	assert.Equal(t, 1, de.PluralIndex(0))
	assert.Equal(t, 1, de.PluralIndex(2))
	assert.Equal(t, 0, de.PluralIndex(-1))

	ru := locale.MustLookup("ru")
	assert.Equal(t, 0, ru.PluralIndex(21))
	assert.Equal(t, 1, ru.PluralIndex(3))
	assert.Equal(t, 2, ru.PluralIndex(5))
	assert.Equal(t, 2, ru.PluralIndex(11))
}

func TestCategories(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"one", "other"}, locale.MustLookup("de").Categories())
	assert.Equal(t, []string{"one", "few", "many"}, locale.MustLookup("ru").Categories())
	assert.Equal(t, []string{"other"}, locale.MustLookup("ja").Categories())
}

func TestLookupErrors(t *testing.T) {
	t.Parallel()

	_, err := locale.Lookup("")
	require.ErrorIs(t, err, locale.ErrEmptyLocale)

	_, err = locale.Lookup("not a locale!")
	require.ErrorIs(t, err, locale.ErrUnknownLocale)
}

func TestFormatNumber(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1.000", locale.MustLookup("de_DE").FormatNumber(1000, 0))
	assert.Equal(t, "1,000", locale.MustLookup("en_US").FormatNumber(1000, 0))
	assert.Equal(t, "0,60", locale.MustLookup("de").FormatNumber(0.6, 2))
}
