package provider

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// The embed page buries the post's GraphQL data as a string value under this
// key, escaped one to three times depending on how the page was rendered.
const gqlKey = "gql_data"

// requiredMarker must appear in any candidate payload before we bother
// parsing it; it filters out unrelated matches of the key.
const requiredMarker = "shortcode_media"

const maxEscapeLevels = 3

type gqlPayload struct {
	ShortcodeMedia *gqlMedia `json:"shortcode_media"`
}

type gqlMedia struct {
	Typename   string `json:"__typename"`
	VideoURL   string `json:"video_url"`
	DisplayURL string `json:"display_url"`
	Owner      struct {
		Username string `json:"username"`
	} `json:"owner"`
	EdgeMediaToCaption struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`
}

func (m *gqlMedia) captionText() string {
	if len(m.EdgeMediaToCaption.Edges) == 0 {
		return ""
	}
	return m.EdgeMediaToCaption.Edges[0].Node.Text
}

// extractGQLMedia runs the extraction tiers in order: boundary walk, lazy
// patterns, greedy fallback. Each tier's candidate is validated before any
// parse attempt; the first candidate that parses wins.
func extractGQLMedia(html string) *gqlMedia {
	for _, candidate := range gqlCandidates(html) {
		if !strings.Contains(candidate, requiredMarker) {
			continue
		}
		if media := parseEscapedPayload(candidate); media != nil {
			return media
		}
	}
	return nil
}

func gqlCandidates(html string) []string {
	var out []string
	if c := walkStringValue(html); c != "" {
		out = append(out, c)
	}
	for _, re := range lazyPayloadRes {
		if m := re.FindStringSubmatch(html); m != nil {
			out = append(out, m[1])
		}
	}
	if m := greedyPayloadRe.FindStringSubmatch(html); m != nil {
		out = append(out, m[1])
	}
	return out
}

// walkStringValue locates the key and scans character by character for the
// exact boundaries of its string value. A backslash always consumes the
// following character, so nested escaping cannot end the scan early the way
// it trips up lazy or greedy regexes.
func walkStringValue(html string) string {
	idx := strings.Index(html, gqlKey)
	if idx < 0 {
		return ""
	}
	i := idx + len(gqlKey)

	// Step over the key's closing quote, however deeply it is escaped.
	for i < len(html) && (html[i] == '\\' || html[i] == '"') {
		i++
	}
	if i >= len(html) || html[i] != ':' {
		return ""
	}
	i++

	// Opening quote of the value, again possibly behind backslashes.
	for i < len(html) && (html[i] == ' ' || html[i] == '\\') {
		i++
	}
	if i >= len(html) || html[i] != '"' {
		return ""
	}
	i++

	start := i
	for i < len(html) {
		switch html[i] {
		case '\\':
			i += 2
		case '"':
			return html[start:i]
		default:
			i++
		}
	}
	return ""
}

// Narrow patterns that stop at the first plausible terminator. Tried only
// when the boundary walk found nothing.
var lazyPayloadRes = []*regexp.Regexp{
	regexp.MustCompile(`"gql_data":"(.+?)",\s*"`),
	regexp.MustCompile(`\\+"gql_data\\+":\\+"(.+?)\\+",`),
	regexp.MustCompile(`"gql_data":"(.+?)"\s*}`),
}

// Last resort; over-captures on pathological pages, which is why validation
// and parse failure move on instead of trusting it.
var greedyPayloadRe = regexp.MustCompile(`"gql_data":"(.+)"`)

// parseEscapedPayload strips one level of backslash escaping at a time until
// the candidate parses as the expected structure or the levels run out.
func parseEscapedPayload(candidate string) *gqlMedia {
	for level := 0; level <= maxEscapeLevels; level++ {
		var payload gqlPayload
		if err := json.Unmarshal([]byte(candidate), &payload); err == nil && payload.ShortcodeMedia != nil {
			return payload.ShortcodeMedia
		}

		next, err := strconv.Unquote(`"` + candidate + `"`)
		if err != nil || next == candidate {
			return nil
		}
		candidate = next
	}
	return nil
}

var displayURLRe = regexp.MustCompile(`"display_url"\s*:\s*"((?:[^"\\]|\\.)+)"`)

// extractFromMarkup is the HTML tier, tried only after every JSON tier
// failed: the standard embed meta tags, a bare key-value occurrence anywhere
// in the page, then the embed's class-scoped image tag.
func extractFromMarkup(html string) *MediaInfo {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		if v, ok := doc.Find(`meta[property="og:video"]`).Attr("content"); ok && v != "" {
			return &MediaInfo{VideoURL: normalizeMediaURL(v)}
		}
		if img, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok && img != "" {
			return &MediaInfo{ImageURL: normalizeMediaURL(img)}
		}
	}

	if m := displayURLRe.FindStringSubmatch(html); m != nil {
		return &MediaInfo{ImageURL: normalizeMediaURL(m[1])}
	}

	if doc != nil {
		if src, ok := doc.Find("img.EmbeddedMediaImage").Attr("src"); ok && src != "" {
			return &MediaInfo{ImageURL: normalizeMediaURL(src)}
		}
	}
	return nil
}
