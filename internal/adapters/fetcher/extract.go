package fetcher

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mikey/content-safety/internal/core"
)

// MaxParagraphs is the number of non-empty paragraphs kept from a page
const MaxParagraphs = 3

// ExtractPageContent parses HTML and extracts the title, meta description,
// first h1 and up to MaxParagraphs non-empty paragraphs.
func ExtractPageContent(r io.Reader) (*core.PageContent, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	content := &core.PageContent{
		Title:   clean(doc.Find("title").First().Text()),
		Heading: clean(doc.Find("h1").First().Text()),
	}

	doc.Find("meta").EachWithBreak(func(i int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.EqualFold(strings.TrimSpace(name), "description") {
			return true
		}
		desc, _ := s.Attr("content")
		content.MetaDescription = clean(desc)
		return false
	})

	doc.Find("p").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if text := clean(s.Text()); text != "" {
			content.Paragraphs = append(content.Paragraphs, text)
		}
		return len(content.Paragraphs) < MaxParagraphs
	})

	return content, nil
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
