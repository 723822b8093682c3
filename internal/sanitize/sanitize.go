// Package sanitize cleans caller-supplied text before it is stored or rendered.
package sanitize

import (
	"net/url"
	"strings"
	"unicode"

	"github.com/ali123/ali123/types"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"
)

// Text strips markup and control whitespace, collapsing runs of spaces.
// Character references are kept as written, so Text(Text(s)) == Text(s).
func Text(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToValidUTF8(s, "")
	if strings.ContainsRune(s, '<') {
		s = stripTags(s)
	}
	s = strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
	return norm.NFC.String(s)
}

// HTML keeps a small set of formatting tags and drops everything executable.
func HTML(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToValidUTF8(s, "")
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if isDropped(tok.DataAtom) {
				if tt == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[tok.DataAtom] {
				continue
			}
			tok.Attr = cleanAttrs(tok.Attr)
			b.WriteString(tok.String())
		case html.EndTagToken:
			if isDropped(tok.DataAtom) {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[tok.DataAtom] {
				continue
			}
			b.WriteString(tok.String())
		case html.TextToken:
			if skipDepth == 0 {
				b.WriteString(html.EscapeString(tok.Data))
			}
		}
	}
	return norm.NFC.String(strings.TrimSpace(b.String()))
}

// URL returns s when it is an absolute http(s) URL and "" otherwise.
func URL(s string) string {
	s = strings.TrimSpace(strings.ToValidUTF8(s, ""))
	if s == "" {
		return ""
	}
	if strings.HasPrefix(s, "//") {
		s = "https:" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// Deep applies Text to every string leaf of maps and slices built by encoding/json.
func Deep(v any) any {
	switch val := v.(type) {
	case string:
		return Text(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Deep(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Deep(item)
		}
		return out
	case []string:
		out := make([]string, len(val))
		for i, item := range val {
			out[i] = Text(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, item := range val {
			out[i], _ = Deep(item).(map[string]any)
		}
		return out
	default:
		return v
	}
}

// Payload sanitizes every string of an import payload.
func Payload(p types.ImportPayload) types.ImportPayload {
	p.ExternalID = Text(p.ExternalID)
	p.Title = Text(p.Title)
	p.Description = Text(p.Description)
	p.Status = Text(p.Status)
	p.Visibility = Text(p.Visibility)
	if p.Images != nil {
		p.Images = Deep(p.Images).([]string)
	}
	if p.Attributes != nil {
		p.Attributes = Deep(p.Attributes).(map[string]any)
	}
	if p.Variations != nil {
		p.Variations = Deep(p.Variations).([]map[string]any)
	}
	if p.Meta != nil {
		p.Meta = Deep(p.Meta).(map[string]any)
	}
	rules := make([]types.PricingRule, len(p.PriceRules))
	for i, r := range p.PriceRules {
		r.Type = types.RuleType(Text(string(r.Type)))
		r.Pretty = Text(r.Pretty)
		rules[i] = r
	}
	if p.PriceRules != nil {
		p.PriceRules = rules
	}
	return p
}

func stripTags(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if name, _ := z.TagName(); isDropped(atom.Lookup(name)) {
				skipDepth++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			if name, _ := z.TagName(); isDropped(atom.Lookup(name)) && skipDepth > 0 {
				skipDepth--
			}
			b.WriteByte(' ')
		case html.TextToken:
			// Raw keeps character references encoded.
			if skipDepth == 0 {
				b.Write(z.Raw())
			}
		}
	}
}

var allowedTags = map[atom.Atom]bool{
	atom.A: true, atom.B: true, atom.Strong: true, atom.I: true, atom.Em: true,
	atom.U: true, atom.P: true, atom.Br: true, atom.Ul: true, atom.Ol: true,
	atom.Li: true, atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true,
	atom.Span: true, atom.Div: true, atom.Img: true, atom.Table: true,
	atom.Thead: true, atom.Tbody: true, atom.Tr: true, atom.Td: true, atom.Th: true,
	atom.Blockquote: true,
}

var allowedAttrs = map[string]bool{
	"href": true, "src": true, "alt": true, "title": true, "width": true, "height": true,
}

func isDropped(a atom.Atom) bool {
	return a == atom.Script || a == atom.Style || a == atom.Iframe || a == atom.Object
}

func cleanAttrs(attrs []html.Attribute) []html.Attribute {
	out := attrs[:0]
	for _, a := range attrs {
		key := strings.ToLower(a.Key)
		if !allowedAttrs[key] {
			continue
		}
		if key == "href" || key == "src" {
			a.Val = URL(a.Val)
			if a.Val == "" {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}
