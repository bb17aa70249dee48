// internal/service/renderer.go
package service

import (
	"strings"

	"github.com/unclebandit/campaign-dispatch/internal/model"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// RenderTemplate substitutes the template's declared variables with the
// user's field values, HTML-escaped. Only declared variables are touched:
// a {{placeholder}} outside the whitelist is left verbatim, so a template
// author cannot pull in fields the template never declared. Declared
// variables the user has no value for render as empty string.
func RenderTemplate(tmpl *model.Template, user *model.User) string {
	result := tmpl.Body
	for _, name := range tmpl.Variables {
		placeholder := "{{" + name + "}}"
		value := htmlEscaper.Replace(user.Field(name))
		result = strings.ReplaceAll(result, placeholder, value)
	}
	return result
}
