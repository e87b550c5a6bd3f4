// Package mailtmpl renders operator-supplied notification templates.
//
// Templates use `{{ NAME }}` placeholders. Unknown names render as the empty string.
package mailtmpl

import (
	"io"
	"strings"

	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

// Context keys available to notification templates.
const (
	KeyAddonName    = "ADDON_NAME"
	KeyAddonVersion = "ADDON_VERSION"
	KeyApplication  = "APPLICATION"
	KeyCompatLink   = "COMPAT_LINK"
	KeyResultLinks  = "RESULT_LINKS"
	KeyVersion      = "VERSION"
)

// Render substitutes every placeholder in tmpl with its value from ctx.
func Render(tmpl string, ctx map[string]string) string {
	if !strings.Contains(tmpl, startTag) {
		return tmpl
	}
	return fasttemplate.ExecuteFuncString(tmpl, startTag, endTag, func(w io.Writer, tag string) (int, error) {
		return io.WriteString(w, ctx[strings.TrimSpace(tag)])
	})
}

// Keys lists every context key a notification template may reference.
func Keys() []string {
	return []string{KeyAddonName, KeyAddonVersion, KeyApplication, KeyCompatLink, KeyResultLinks, KeyVersion}
}
