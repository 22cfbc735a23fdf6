package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Snapshot is a reduced view of a rendered page: the semantic element tree
// with only the attributes useful for targeting, and the page's metadata.
type Snapshot struct {
	HTML        string
	Title       string
	Description string
	Truncated   bool
}

var (
	skippedElements = setOf("script", "style", "noscript", "iframe", "embed", "object", "svg", "template", "head")

	blockElements = setOf("div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "tr", "td", "th",
		"form", "fieldset", "blockquote", "pre", "dialog", "label")

	voidElements = setOf("area", "base", "br", "col", "embed", "hr", "img", "input", "link",
		"meta", "param", "source", "track", "wbr")

	globalAttributes = setOf("id", "class", "role", "name", "title", "aria-label", "aria-describedby",
		"aria-expanded", "aria-checked")
)

func setOf(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, item := range items {
		m[item] = struct{}{}
	}
	return m
}

func inSet(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// cleanHTML parses rawHTML and renders a Snapshot whose HTML is cut off after
// roughly maxLength bytes of output.
func cleanHTML(rawHTML string, maxLength int) (*Snapshot, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	c := &cleaner{max: maxLength}
	c.walk(doc, 0)

	return &Snapshot{
		HTML:        c.out.String(),
		Title:       findTitle(doc),
		Description: findMetaDescription(doc),
		Truncated:   c.truncated,
	}, nil
}

type cleaner struct {
	out       strings.Builder
	written   int
	max       int
	truncated bool
}

func (c *cleaner) full() bool {
	if c.written >= c.max {
		c.truncated = true
	}
	return c.truncated
}

func (c *cleaner) write(s string) {
	c.out.WriteString(s)
	c.written += len(s)
}

func (c *cleaner) walk(n *html.Node, depth int) {
	if c.full() {
		return
	}

	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		c.text(n.Data)
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if inSet(skippedElements, tag) {
			return
		}
		c.element(n, tag, depth)
		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, depth)
	}
}

func (c *cleaner) text(raw string) {
	text := strings.Join(strings.Fields(raw), " ")
	if text == "" {
		return
	}
	remaining := c.max - c.written
	if remaining <= 0 {
		c.truncated = true
		return
	}
	if len(text) > remaining {
		c.write(text[:remaining] + "...")
		c.truncated = true
		return
	}
	c.write(text)
}

func (c *cleaner) element(n *html.Node, tag string, depth int) {
	block := inSet(blockElements, tag)
	if block && depth > 0 {
		c.write("\n" + strings.Repeat("  ", depth))
	}

	var open strings.Builder
	open.WriteString("<" + tag)
	for _, attr := range n.Attr {
		if keepAttribute(tag, attr.Key) {
			fmt.Fprintf(&open, ` %s="%s"`, strings.ToLower(attr.Key), html.EscapeString(attr.Val))
		}
	}
	open.WriteString(">")
	c.write(open.String())

	if inSet(voidElements, tag) {
		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.walk(child, depth+1)
	}

	if block {
		c.write("\n" + strings.Repeat("  ", depth))
	}
	c.write("</" + tag + ">")
}

// keepAttribute reports whether an attribute helps the model target an element.
func keepAttribute(tag, attr string) bool {
	attr = strings.ToLower(attr)
	if inSet(globalAttributes, attr) || strings.HasPrefix(attr, "data-") {
		return true
	}

	switch tag {
	case "a":
		return attr == "href"
	case "img":
		return attr == "alt"
	case "input", "textarea", "select":
		return attr == "type" || attr == "placeholder" || attr == "value"
	case "button":
		return attr == "type"
	case "form":
		return attr == "action" || attr == "method"
	case "option":
		return attr == "value" || attr == "selected"
	}
	return false
}

// visibleText returns the document title and the whitespace-normalized text
// of the body, skipping non-rendered elements and separating blocks with
// newlines.
func visibleText(rawHTML string) (title, text string, err error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var lines []string
	var line strings.Builder
	flush := func() {
		if s := strings.TrimSpace(line.String()); s != "" {
			lines = append(lines, s)
		}
		line.Reset()
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			tag := strings.ToLower(n.Data)
			if inSet(skippedElements, tag) {
				return
			}
			if inSet(blockElements, tag) || tag == "br" {
				flush()
				defer flush()
			}
		}
		if n.Type == html.TextNode {
			if words := strings.Fields(n.Data); len(words) > 0 {
				if line.Len() > 0 {
					line.WriteString(" ")
				}
				line.WriteString(strings.Join(words, " "))
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	flush()

	return findTitle(doc), strings.Join(lines, "\n"), nil
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, match); found != nil {
			return found
		}
	}
	return nil
}

func findTitle(doc *html.Node) string {
	n := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "title"
	})
	if n == nil || n.FirstChild == nil || n.FirstChild.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(n.FirstChild.Data)
}

func findMetaDescription(doc *html.Node) string {
	var content string
	findFirst(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "meta" {
			return false
		}
		var isDescription bool
		var value string
		for _, attr := range n.Attr {
			switch attr.Key {
			case "name":
				isDescription = strings.EqualFold(attr.Val, "description")
			case "content":
				value = attr.Val
			}
		}
		if isDescription && value != "" {
			content = strings.TrimSpace(value)
			return true
		}
		return false
	})
	return content
}
