package dashboard

import (
	"fmt"
	"io"

	"golang.org/x/net/html"
)

// chartIDs are the canvas elements every rendered dashboard must contain.
var chartIDs = []string{
	"histYearMonthChart",
	"histLastMonthDayChart",
	"cumulYearChart",
	"cumulMonthChart",
	"cumulWeekChart",
}

// Validate parses rendered dashboard HTML and checks the document carries a
// title and all five chart canvases. It guards against template regressions
// before anything is written to disk or published.
func Validate(r io.Reader) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("parse dashboard HTML: %w", err)
	}

	found := make(map[string]bool)
	hasTitle := false

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if n.FirstChild != nil && n.FirstChild.Data != "" {
					hasTitle = true
				}
			case "canvas":
				for _, attr := range n.Attr {
					if attr.Key == "id" {
						found[attr.Val] = true
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if !hasTitle {
		return fmt.Errorf("dashboard HTML has no title")
	}
	for _, id := range chartIDs {
		if !found[id] {
			return fmt.Errorf("dashboard HTML missing chart canvas %q", id)
		}
	}
	return nil
}
