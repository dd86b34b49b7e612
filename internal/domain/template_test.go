package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplatePlaceholder(t *testing.T) {
	tpl, err := ParseTemplate("https://cdn.example.com/live/{index}.ts?sig=abc", "")
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/live/0.ts?sig=abc", tpl.URL(0))
	assert.Equal(t, "https://cdn.example.com/live/1234.ts?sig=abc", tpl.URL(1234))
	assert.Equal(t, "https://cdn.example.com/live/{index}.ts?sig=abc", tpl.String())
	assert.False(t, tpl.IsZero())
}

func TestParseTemplateDigitsBeforeExtension(t *testing.T) {
	cases := []struct {
		raw  string
		ext  string
		want string
	}{
		{"https://h/v/seg-17.ts", "", "https://h/v/seg-5.ts"},
		{"https://h:8443/2024/seg-00017.ts?token=9", "", "https://h:8443/2024/seg-5.ts?token=9"},
		{"https://h/720p/chunk_3.m4s", ".m4s", "https://h/720p/chunk_5.m4s"},
		{"https://h/a1.ts/b2.ts", "", "https://h/a5.ts/b2.ts"},
	}

	for _, tc := range cases {
		tpl, err := ParseTemplate(tc.raw, tc.ext)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, tpl.URL(5), tc.raw)
	}
}

func TestParseTemplateRejects(t *testing.T) {
	for _, raw := range []string{"", "https://h/video.mp4", "https://h/seg-x.ts"} {
		_, err := ParseTemplate(raw, "")
		assert.ErrorIs(t, err, ErrNoIndexInTemplate, raw)
	}
}

func TestTemplateZeroValue(t *testing.T) {
	var tpl Template
	assert.True(t, tpl.IsZero())
}
