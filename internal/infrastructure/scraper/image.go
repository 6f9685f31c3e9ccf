package scraper

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Candidate priorities, lower wins.
const (
	priorityOpenGraph = iota + 1
	priorityTwitterCard
	priorityKeyword
	priorityContainer
	priorityLarge
	priorityAny
)

// minLargeImageSide is the width or height above which an <img> counts as large.
const minLargeImageSide = 300

var (
	altKeywords = []string{"recipe", "food", "dish", "meal", "cooking", "kitchen", "ingredient"}
	srcKeywords = []string{"recipe", "food"}

	// plain substring match: "ad" also rejects uploads/ and headers/ paths
	deniedSubstrings = []string{"logo", "icon", "avatar", "profile", "banner", "ad", "advertisement"}

	leadingDigits = regexp.MustCompile(`^[+-]?\d+`)

	containerSelector = `[class*="recipe"], [class*="food"], [class*="dish"], [id*="recipe"], [id*="food"]`
)

type imageCandidate struct {
	url      string
	priority int
}

// SelectImage picks the most likely hero image of a recipe page. Relative
// URLs are resolved against base. It returns "" when nothing qualifies.
func SelectImage(doc *goquery.Document, base *url.URL) (selected string) {
	defer func() {
		// selection is best effort; malformed markup never fails a parse
		if recover() != nil {
			selected = ""
		}
	}()

	var candidates []imageCandidate
	seen := make(map[string]struct{})
	add := func(raw string, priority int) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		abs := makeAbsolute(raw, base)
		candidates = append(candidates, imageCandidate{url: abs, priority: priority})
		seen[abs] = struct{}{}
	}

	doc.Find(`meta[property="og:image"]`).Each(func(_ int, meta *goquery.Selection) {
		add(meta.AttrOr("content", ""), priorityOpenGraph)
	})
	doc.Find(`meta[name="twitter:image"]`).Each(func(_ int, meta *goquery.Selection) {
		add(meta.AttrOr("content", ""), priorityTwitterCard)
	})

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("src", "")
		alt := strings.ToLower(img.AttrOr("alt", ""))
		lowerSrc := strings.ToLower(src)
		if containsAny(alt, altKeywords) || containsAny(lowerSrc, srcKeywords) {
			add(src, priorityKeyword)
		}
	})

	doc.Find(containerSelector).Find("img").Each(func(_ int, img *goquery.Selection) {
		add(img.AttrOr("src", ""), priorityContainer)
	})

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		if isLarge(img) {
			add(img.AttrOr("src", ""), priorityLarge)
		}
	})

	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			return
		}
		if _, dup := seen[makeAbsolute(src, base)]; dup {
			return
		}
		add(src, priorityAny)
	})

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].priority < candidates[j].priority
	})

	for _, c := range candidates {
		if !isDenied(c.url) {
			return c.url
		}
	}
	return ""
}

// makeAbsolute resolves src against the page origin. Protocol-relative URLs
// are assumed to be https.
func makeAbsolute(src string, base *url.URL) string {
	lower := strings.ToLower(src)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return src
	case strings.HasPrefix(src, "//"):
		return "https:" + src
	case base == nil:
		return src
	}

	origin := base.Scheme + "://" + base.Host
	if strings.HasPrefix(src, "/") {
		return origin + src
	}
	return origin + "/" + src
}

func isLarge(img *goquery.Selection) bool {
	for _, attr := range []string{"width", "height"} {
		v, ok := img.Attr(attr)
		if !ok {
			continue
		}
		if n, ok := parseLeadingInt(v); ok && n > minLargeImageSide {
			return true
		}
	}
	return false
}

// parseLeadingInt reads the integer prefix of s, so "350.5" and "400px" both
// parse.
func parseLeadingInt(s string) (int, bool) {
	digits := leadingDigits.FindString(strings.TrimSpace(s))
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDenied(u string) bool {
	lower := strings.ToLower(u)
	return containsAny(lower, deniedSubstrings)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
