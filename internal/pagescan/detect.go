package pagescan

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"embyscout/internal/textutil"
)

// Kind identifies which selector contract produced an element.
type Kind string

const (
	KindCode     Kind = "code"
	KindTitle    Kind = "title"
	KindListItem Kind = "list_item"
	KindTagged   Kind = "tagged"
)

// Element is one detected title.
type Element struct {
	Kind Kind `json:"kind"`
	// Key identifies the element across polls of the same page.
	Key   string `json:"key"`
	Raw   string `json:"raw"`
	Title string `json:"title"`
	Score string `json:"score,omitempty"`
	Tags  string `json:"tags,omitempty"`
}

// Detect returns every element matching a selector contract, in document
// order per kind. Elements whose cleaned title is empty are skipped.
func Detect(doc *goquery.Document) []Element {
	if doc == nil {
		return nil
	}
	var out []Element
	seen := map[string]int{}
	add := func(el Element) {
		el.Title = textutil.CleanTitle(el.Raw)
		if el.Title == "" {
			return
		}
		base := string(el.Kind) + "|" + el.Raw
		el.Key = fmt.Sprintf("%s|%d", base, seen[base])
		seen[base]++
		out = append(out, el)
	}

	doc.Find("div.panel-block.first-block").Each(func(_ int, block *goquery.Selection) {
		span := block.Find("span.value").First()
		if span.Length() == 0 {
			return
		}
		add(Element{Kind: KindCode, Raw: text(span)})
	})

	doc.Find("div.main-ui-meta h1").Each(func(_ int, h1 *goquery.Selection) {
		div := h1.Find("div").First()
		if div.Length() == 0 {
			return
		}
		add(Element{Kind: KindTitle, Raw: text(div)})
	})

	doc.Find("div.li-bottom").Each(func(_ int, block *goquery.Selection) {
		title := block.Find("h3 a").First()
		score := block.Find("span").First()
		tag := block.Find(".tag").First()
		if title.Length() == 0 || score.Length() == 0 || tag.Length() == 0 {
			return
		}
		add(Element{Kind: KindListItem, Raw: text(title), Score: text(score), Tags: text(tag)})
	})

	doc.Find(".video-title").Each(func(_ int, block *goquery.Selection) {
		strong := block.Find("strong").First()
		tags := block.Next()
		if strong.Length() == 0 || tags.Length() == 0 {
			return
		}
		add(Element{Kind: KindTagged, Raw: text(strong), Tags: text(tags)})
	})
	return out
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
