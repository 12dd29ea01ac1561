package catalog

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SectionTitle is the fixed title for the single section produced by a parse.
const SectionTitle = "Sports"

// minContentLength guards against truncated or empty API responses.
const minContentLength = 100

var (
	citationRe   = regexp.MustCompile(`\[\d+\]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// skippedListClasses marks lists that carry navigation, reference, or
// metadata content rather than catalog entries. Matched by substring on
// the class attribute.
var skippedListClasses = []string{"navbox", "references", "metadata"}

// Parse extracts nested list structures from rendered article markup
// and converts them into sections of catalog nodes. Malformed or
// unexpectedly shaped markup degrades to zero sections, never an error.
func Parse(html string) []Section {
	if len(html) < minContentLength {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	content := doc.Find(".mw-parser-output").First()
	if content.Length() == 0 {
		return nil
	}

	section := Section{Title: SectionTitle}
	seen := make(map[string]struct{})

	content.Find("ul").Each(func(_ int, list *goquery.Selection) {
		if skipList(list) {
			return
		}

		// Only take items from lists that are not themselves nested
		// inside another item; nested lists are captured as children
		// of their parent item instead.
		if list.ParentsFiltered("li").Length() > 0 {
			return
		}

		list.ChildrenFiltered("li").Each(func(_ int, item *goquery.Selection) {
			node := nodeFromItem(item)
			if len(node.Name) <= 1 {
				return
			}

			key := strings.ToLower(node.Name)
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			section.Items = append(section.Items, node)
		})
	})

	if len(section.Items) == 0 {
		return nil
	}
	return []Section{section}
}

// nodeFromItem builds a node from a list item: its own text becomes the
// name, lists directly under the item become its children.
func nodeFromItem(item *goquery.Selection) Node {
	node := Node{Name: itemOwnText(item)}

	item.ChildrenFiltered("ul, ol").ChildrenFiltered("li").Each(func(_ int, child *goquery.Selection) {
		childNode := nodeFromItem(child)
		if childNode.Name == "" {
			return
		}
		node.Children = append(node.Children, childNode)
	})

	return node
}

// itemOwnText returns the item's text with nested list markup excluded
// first, so a parent's label never includes its children's text.
func itemOwnText(item *goquery.Selection) string {
	clone := item.Clone()
	clone.Find("ul, ol").Remove()
	return CleanName(clone.Text())
}

// CleanName strips citation markers like [1] and collapses internal
// whitespace to single spaces. Idempotent.
func CleanName(raw string) string {
	name := citationRe.ReplaceAllString(raw, "")
	name = whitespaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

func skipList(list *goquery.Selection) bool {
	class, _ := list.Attr("class")
	for _, marker := range skippedListClasses {
		if strings.Contains(class, marker) {
			return true
		}
	}
	return false
}
