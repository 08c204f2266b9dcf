package crawl

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/oystub/barbershop/lib"
)

// ParseLinks returns the http(s) targets of every <a href> in body, resolved
// against base and normalized, in document order without repeats.
func ParseLinks(body []byte, base string) []string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil
	}
	links := []string{}
	seen := make(map[string]struct{})

	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if !hasAttr {
				continue
			}
			tag := string(name)
			if tag != "a" && tag != "base" {
				continue
			}
			href, ok := attr(z, "href")
			if !ok {
				continue
			}
			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				continue
			}
			if tag == "base" {
				baseURL = baseURL.ResolveReference(ref)
				continue
			}
			link, err := lib.NormalizeURL(baseURL.ResolveReference(ref).String())
			if err != nil {
				continue
			}
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			links = append(links, link)
		}
	}
}

func attr(z *html.Tokenizer, name string) (string, bool) {
	for {
		key, val, more := z.TagAttr()
		if string(key) == name {
			return string(val), true
		}
		if !more {
			return "", false
		}
	}
}

// CountKeywords counts case-insensitive occurrences of each keyword in text.
// Keys are the lowercased keywords.
func CountKeywords(text []byte, keywords []string) map[string]int {
	counts := make(map[string]int, len(keywords))
	if len(keywords) == 0 {
		return counts
	}
	lower := strings.ToLower(string(text))
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		counts[kw] = strings.Count(lower, kw)
	}
	return counts
}
