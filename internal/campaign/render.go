package campaign

import (
	"fmt"
	"html"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// render substitutes {key} placeholders from ctx. If any placeholder has no
// value the template is returned unchanged along with an error, so the
// caller can log the broken context loudly while still sending something.
func render(template string, ctx map[string]string, escape bool) (string, error) {
	var missing []string
	for _, m := range placeholderRe.FindAllStringSubmatch(template, -1) {
		if _, ok := ctx[m[1]]; !ok {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		return template, fmt.Errorf("render: missing context keys %s", strings.Join(missing, ", "))
	}

	out := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		key := m[1 : len(m)-1]
		v := ctx[key]
		if escape {
			return html.EscapeString(v)
		}
		return v
	})
	return out, nil
}

// RenderHTML renders message text, escaping substituted values so user data
// cannot break the HTML parse mode.
func RenderHTML(template string, ctx map[string]string) (string, error) {
	return render(template, ctx, true)
}

// RenderRaw renders without escaping, for URLs and callback payloads.
func RenderRaw(template string, ctx map[string]string) (string, error) {
	return render(template, ctx, false)
}
