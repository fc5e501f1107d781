package sources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Field names of YouTube's ytInitialData search payload.
// Owned by YouTube, undocumented, and may change without notice.
const (
	ytInitialDataMarker = "ytInitialData"
	ytKeyContents       = "contents"
	ytKeyTwoColumn      = "twoColumnSearchResultsRenderer"
	ytKeyPrimary        = "primaryContents"
	ytKeySectionList    = "sectionListRenderer"
	ytKeyItemSection    = "itemSectionRenderer"
	ytKeyVideoRenderer  = "videoRenderer"
	ytKeyVideoID        = "videoId"
	ytKeyTitle          = "title"
	ytKeyRuns           = "runs"
	ytKeyText           = "text"
)

// ytAssignRE matches the assignment in both observed forms,
// `var ytInitialData = {` and `window["ytInitialData"] = {`, but not a comparison
// such as `ytInitialData == null`. Group 1 is the first character of the value.
var ytAssignRE = regexp.MustCompile(`ytInitialData(?:["']\])?\s*=\s*([^=\s])`)

// VideoCandidate is the winning search result.
type VideoCandidate struct {
	VideoID string `json:"video_id"`
	Title   string `json:"title,omitempty"`
}

// ParseSearchResults runs the extraction pipeline over a results page:
// locate the bootstrap script, extract and decode its JSON, walk to the section
// contents and pick the first videoRenderer in document order.
// It never panics; every failure is a *ResolveError.
func ParseSearchResults(page []byte) (cand VideoCandidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			cand = VideoCandidate{}
			err = newError(KindMalformedPayload, "extraction panicked", fmt.Errorf("%v", r))
		}
	}()

	script, err := locatePayloadScript(page)
	if err != nil {
		return VideoCandidate{}, err
	}
	raw, err := extractPayloadJSON(script)
	if err != nil {
		return VideoCandidate{}, err
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return VideoCandidate{}, newError(KindMalformedPayload, "ytInitialData is not valid JSON", err)
	}

	items, ok := sectionItems(payload)
	if !ok {
		return VideoCandidate{}, newError(KindNoMatch, "no search sections in payload", nil)
	}
	if c, ok := firstVideo(items); ok {
		return c, nil
	}
	return VideoCandidate{}, newError(KindNoMatch, "no video results", nil)
}

// locatePayloadScript returns the text of the first inline <script> that assigns ytInitialData.
func locatePayloadScript(page []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", newError(KindMalformedPayload, "results page is not parseable HTML", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	var script string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if _, external := s.Attr("src"); external {
			return true
		}
		text := s.Text()
		if ytAssignRE.MatchString(text) {
			script = text
			return false
		}
		return true
	})
	if script == "" {
		return "", newError(KindPayloadNotFound, "no inline script assigns "+ytInitialDataMarker, nil)
	}
	return script, nil
}

// extractPayloadJSON cuts the object literal assigned to ytInitialData out of
// a script body. The value ends at its matching closing brace, so trailing
// statements after the assignment are ignored.
func extractPayloadJSON(script string) ([]byte, error) {
	loc := ytAssignRE.FindStringSubmatchIndex(script)
	if loc == nil {
		return nil, newError(KindPayloadNotFound, "assignment to "+ytInitialDataMarker+" not found", nil)
	}
	obj, ok := scanJSONObject(script[loc[2]:])
	if !ok {
		return nil, newError(KindMalformedPayload, "ytInitialData object literal is truncated or missing", nil)
	}
	return []byte(obj), nil
}

// scanJSONObject returns the prefix of s holding one complete JSON object,
// tracking brace depth outside string literals and honouring backslash escapes.
func scanJSONObject(s string) (string, bool) {
	if s == "" || s[0] != '{' {
		return "", false
	}
	depth := 0
	inStr := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i+1], true
			}
		}
	}
	return "", false
}

// node is one optional step in the payload graph. A zero node is "absent".
type node struct {
	v any
}

func (n node) field(key string) (node, bool) {
	m, ok := n.v.(map[string]any)
	if !ok {
		return node{}, false
	}
	v, ok := m[key]
	if !ok || v == nil {
		return node{}, false
	}
	return node{v: v}, true
}

func (n node) list() ([]any, bool) {
	l, ok := n.v.([]any)
	return l, ok
}

func (n node) str() (string, bool) {
	s, ok := n.v.(string)
	return s, ok
}

// path walks successive object fields, stopping at the first absent one.
func (n node) path(keys ...string) (node, bool) {
	cur := n
	for _, k := range keys {
		next, ok := cur.field(k)
		if !ok {
			return node{}, false
		}
		cur = next
	}
	return cur, true
}

// sectionItems walks contents → twoColumnSearchResultsRenderer → primaryContents →
// sectionListRenderer → contents[] → itemSectionRenderer → contents[] and
// flattens every section's items in document order.
func sectionItems(payload map[string]any) ([]any, bool) {
	sectionsNode, ok := node{v: payload}.path(ytKeyContents, ytKeyTwoColumn, ytKeyPrimary, ytKeySectionList, ytKeyContents)
	if !ok {
		return nil, false
	}
	sections, ok := sectionsNode.list()
	if !ok {
		return nil, false
	}

	var items []any
	for _, s := range sections {
		contents, ok := node{v: s}.path(ytKeyItemSection, ytKeyContents)
		if !ok {
			continue // continuation tokens, ads, shelves
		}
		if l, ok := contents.list(); ok {
			items = append(items, l...)
		}
	}
	return items, true
}

// firstVideo returns the first item carrying a videoRenderer with a non-empty videoId.
func firstVideo(items []any) (VideoCandidate, bool) {
	for _, it := range items {
		vr, ok := node{v: it}.field(ytKeyVideoRenderer)
		if !ok {
			continue
		}
		idNode, ok := vr.field(ytKeyVideoID)
		if !ok {
			continue
		}
		id, ok := idNode.str()
		if !ok || id == "" {
			continue
		}
		return VideoCandidate{VideoID: id, Title: videoTitle(vr)}, true
	}
	return VideoCandidate{}, false
}

// videoTitle joins title.runs[].text; absent pieces yield "".
func videoTitle(vr node) string {
	runsNode, ok := vr.path(ytKeyTitle, ytKeyRuns)
	if !ok {
		return ""
	}
	runs, _ := runsNode.list()
	var title string
	for _, r := range runs {
		run := node{v: r}
		if t, ok := run.field(ytKeyText); ok {
			if s, ok := t.str(); ok {
				title += s
			}
		}
	}
	return title
}
