package jobs

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestAbbreviate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "Birthday", "Birthday"},
		{"exactly sixty", strings.Repeat("a", 60), strings.Repeat("a", 60)},
		{"ascii", strings.Repeat("a", 61), strings.Repeat("a", 57) + "..."},
		{"sixty runes of cyrillic", strings.Repeat("ж", 60), strings.Repeat("ж", 60)},
		{"cyrillic", strings.Repeat("ж", 70), strings.Repeat("ж", 57) + "..."},
		{"mixed width", strings.Repeat("a", 56) + strings.Repeat("日本", 5), strings.Repeat("a", 56) + "日..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := abbreviate(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
