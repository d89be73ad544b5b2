// Package fragment turns the server's pre-rendered notification list into
// plain items a terminal can show.
package fragment

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// IDAttr marks an element as one notification.
const IDAttr = "data-notification-id"

// Item is one notification in the list.
type Item struct {
	ID     string
	Text   string
	Link   string
	Unread bool
}

// Fragment is a parsed list. Raw keeps the server's markup untouched.
type Fragment struct {
	Raw   string
	Items []Item

	// Notes holds text found outside any item, such as an empty-list
	// placeholder.
	Notes []string
}

// UnreadCount counts the unread items.
func (f *Fragment) UnreadCount() int {
	n := 0
	for _, it := range f.Items {
		if it.Unread {
			n++
		}
	}
	return n
}

// Parse reads raw as the body of a list container.
func Parse(raw string) (*Fragment, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(raw), ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing notification fragment: %w", err)
	}

	f := &Fragment{Raw: raw}
	for _, n := range nodes {
		f.walk(n)
	}
	return f, nil
}

func (f *Fragment) walk(n *html.Node) {
	switch n.Type {
	case html.ElementNode:
		if skipped(n) {
			return
		}
		if id, ok := attr(n, IDAttr); ok {
			f.Items = append(f.Items, Item{
				ID:     strings.TrimSpace(id),
				Text:   textOf(n),
				Link:   firstLink(n),
				Unread: isUnread(n),
			})
			return
		}
	case html.TextNode:
		if t := collapse(n.Data); t != "" {
			f.Notes = append(f.Notes, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		f.walk(c)
	}
}

func skipped(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Template:
		return true
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func isUnread(n *html.Node) bool {
	if v, ok := attr(n, "data-unread"); ok {
		return v == "true" || v == "1"
	}
	if cls, ok := attr(n, "class"); ok {
		for _, c := range strings.Fields(cls) {
			if c == "unread" {
				return true
			}
		}
	}
	return false
}

func firstLink(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.A {
		if href, ok := attr(n, "href"); ok {
			return href
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := firstLink(c); href != "" {
			return href
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var rec func(*html.Node)
	rec = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped(n) {
			return
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			rec(c)
		}
	}
	rec(n)
	return collapse(b.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
