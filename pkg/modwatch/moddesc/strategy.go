package moddesc

import (
	"strings"

	"github.com/antchfx/xmlquery"
)

// strategy extracts one candidate value from a descriptor document.
// It reports false when the document has nothing for it.
type strategy func(doc *xmlquery.Node) (string, bool)

// field is an ordered list of strategies; the first non-empty value wins.
type field []strategy

func (f field) resolve(doc *xmlquery.Node, fallback string) string {
	for _, try := range f {
		if v, ok := try(doc); ok {
			return v
		}
	}
	return fallback
}

var (
	titleField   = field{textOf("//title/en"), ownTextOf("//title")}
	versionField = field{rootAttr("descVersion")}
	authorField  = field{textOf("//author")}
)

// textOf returns the trimmed inner text of the first node matching expr.
func textOf(expr string) strategy {
	return func(doc *xmlquery.Node) (string, bool) {
		n, err := xmlquery.Query(doc, expr)
		if err != nil || n == nil {
			return "", false
		}
		return nonEmpty(n.InnerText())
	}
}

// ownTextOf returns the trimmed text directly inside the first node matching
// expr, ignoring text held by child elements such as per-language variants.
func ownTextOf(expr string) strategy {
	return func(doc *xmlquery.Node) (string, bool) {
		n, err := xmlquery.Query(doc, expr)
		if err != nil || n == nil {
			return "", false
		}
		var b strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
				b.WriteString(c.Data)
			}
		}
		return nonEmpty(b.String())
	}
}

// rootAttr returns the trimmed value of an attribute on the document element.
func rootAttr(name string) strategy {
	return func(doc *xmlquery.Node) (string, bool) {
		root := rootElement(doc)
		if root == nil {
			return "", false
		}
		for _, attr := range root.Attr {
			if attr.Name.Local == name {
				return nonEmpty(attr.Value)
			}
		}
		return "", false
	}
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}
