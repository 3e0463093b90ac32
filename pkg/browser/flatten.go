package browser

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// DefaultMaxContentLength bounds the flattened page text.
const DefaultMaxContentLength = 25000

// TruncationMarker ends content that was cut short.
const TruncationMarker = "\n[Content truncated]"

// Flatten turns page markup into whitespace-normalized visible text.
// Images, form fields and buttons become bracketed placeholders so the
// planner knows they are there. The result is cut to maxLength characters;
// maxLength <= 0 means no limit.
func Flatten(rawHTML string, maxLength int) (string, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	f := &flattener{}
	f.walk(doc)
	text := f.String()

	if maxLength > 0 {
		if r := []rune(text); len(r) > maxLength {
			text = string(r[:maxLength]) + TruncationMarker
		}
	}
	return text, nil
}

// flattener accumulates lines of text. Inline text is joined with single
// spaces and block boundaries start a new line.
type flattener struct {
	lines []string
	line  strings.Builder
}

func (f *flattener) walk(n *html.Node) {
	switch n.Type {
	case html.CommentNode, html.DoctypeNode:
		return
	case html.TextNode:
		f.text(n.Data)
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if isSkippedElement(tag) || isHidden(n) {
			return
		}
		if placeholder, ok := placeholderFor(tag, n); ok {
			if placeholder != "" {
				f.text(placeholder)
			}
			return
		}
		block := isBlockElement(tag)
		if block {
			f.breakLine()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f.walk(c)
		}
		if block || tag == "br" {
			f.breakLine()
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		f.walk(c)
	}
}

func (f *flattener) text(s string) {
	words := strings.Fields(s)
	if len(words) == 0 {
		return
	}
	if f.line.Len() > 0 {
		f.line.WriteByte(' ')
	}
	f.line.WriteString(strings.Join(words, " "))
}

func (f *flattener) breakLine() {
	if f.line.Len() == 0 {
		return
	}
	f.lines = append(f.lines, f.line.String())
	f.line.Reset()
}

func (f *flattener) String() string {
	f.breakLine()
	return strings.Join(f.lines, "\n")
}

// placeholderFor reports whether tag is rendered as a placeholder instead of
// its children. An empty placeholder drops the element.
func placeholderFor(tag string, n *html.Node) (string, bool) {
	switch tag {
	case "img":
		alt := strings.TrimSpace(attr(n, "alt"))
		if alt == "" {
			alt = "image"
		}
		return "[Image: " + alt + "]", true
	case "input":
		typ := strings.ToLower(attr(n, "type"))
		switch typ {
		case "hidden":
			return "", true
		case "submit", "button", "reset":
			return "[Button: " + firstNonEmpty(attr(n, "value"), attr(n, "aria-label"), typ) + "]", true
		}
		return "[Input: " + firstNonEmpty(attr(n, "placeholder"), attr(n, "aria-label"), attr(n, "name"), typ, "text") + "]", true
	case "textarea":
		return "[Input: " + firstNonEmpty(attr(n, "placeholder"), attr(n, "aria-label"), attr(n, "name"), "textarea") + "]", true
	case "select":
		return "[Select: " + firstNonEmpty(attr(n, "aria-label"), attr(n, "name"), "options") + "]", true
	case "button":
		label := strings.Join(strings.Fields(textOf(n)), " ")
		return "[Button: " + firstNonEmpty(label, attr(n, "aria-label"), attr(n, "title"), "button") + "]", true
	}
	return "", false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		if n.Type == html.ElementNode && isSkippedElement(strings.ToLower(n.Data)) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func isHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "hidden":
			return true
		case "aria-hidden":
			if strings.EqualFold(a.Val, "true") {
				return true
			}
		case "style":
			style := strings.ReplaceAll(strings.ToLower(a.Val), " ", "")
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		}
	}
	return false
}

var skippedElements = map[string]bool{
	"head":     true,
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"iframe":   true,
	"object":   true,
	"embed":    true,
	"svg":      true,
	"canvas":   true,
}

func isSkippedElement(tag string) bool {
	return skippedElements[tag]
}

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "details": true, "dialog": true, "div": true, "dl": true,
	"dt": true, "fieldset": true, "figcaption": true, "figure": true,
	"footer": true, "form": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "summary": true, "table": true,
	"tr": true, "td": true, "th": true, "ul": true, "body": true,
}

func isBlockElement(tag string) bool {
	return blockElements[tag]
}
