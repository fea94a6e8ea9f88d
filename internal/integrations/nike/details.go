package nike

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// parseDetails extracts the first paragraph of the description preview and the
// leading number of the rating line.
func parseDetails(body io.Reader, contentType string) (Details, error) {
	r, err := charset.NewReader(body, contentType)
	if err != nil {
		return Details{}, err
	}
	doc, err := html.Parse(r)
	if err != nil {
		return Details{}, err
	}

	var d Details

	if div := findElement(doc, "div", "description-preview"); div != nil {
		if p := findElement(div, "p"); p != nil {
			text := strings.TrimSpace(textContent(p))
			d.Description = &text
		}
	}

	if p := findElement(doc, "p", "d-sm-ib", "pl4-sm"); p != nil {
		if fields := strings.Fields(textContent(p)); len(fields) > 0 {
			if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
				d.Rating = &v
			}
		}
	}

	return d, nil
}

// findElement returns the first element (depth-first, document order) with the
// given tag carrying every listed class.
func findElement(n *html.Node, tag string, classes ...string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag && hasClasses(n, classes) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag, classes...); found != nil {
			return found
		}
	}
	return nil
}

func hasClasses(n *html.Node, want []string) bool {
	if len(want) == 0 {
		return true
	}
	var have []string
	for _, a := range n.Attr {
		if a.Key == "class" {
			have = strings.Fields(a.Val)
			break
		}
	}
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
