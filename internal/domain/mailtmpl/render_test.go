package mailtmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	ctx := map[string]string{
		KeyAddonName:    "Tab Mix",
		KeyAddonVersion: "1.4",
		KeyVersion:      "2.0",
		KeyResultLinks:  "https://a/1 https://a/2",
	}

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"plain text untouched", "no placeholders", "no placeholders"},
		{"spaced tags", "{{ ADDON_NAME }} {{ADDON_VERSION}} is compatible with {{  VERSION }}", "Tab Mix 1.4 is compatible with 2.0"},
		{"unknown key renders empty", "[{{ MISSING }}]", "[]"},
		{"repeated key", "{{VERSION}}/{{VERSION}}", "2.0/2.0"},
		{"multi-value", "See: {{ RESULT_LINKS }}", "See: https://a/1 https://a/2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tmpl, ctx))
		})
	}
}

func TestRender_NilContext(t *testing.T) {
	assert.Equal(t, "hi ", Render("hi {{ ADDON_NAME }}", nil))
}
