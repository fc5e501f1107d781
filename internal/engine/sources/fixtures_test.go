package sources

import (
	"encoding/json"
	"fmt"
)

// ytItem builders mirror the shapes YouTube returns inside itemSectionRenderer.contents.

func videoItem(id, title string) map[string]any {
	return map[string]any{
		"videoRenderer": map[string]any{
			"videoId": id,
			"title":   map[string]any{"runs": []any{map[string]any{"text": title}}},
		},
	}
}

func channelItem(name string) map[string]any {
	return map[string]any{"channelRenderer": map[string]any{"channelId": "UC" + name, "title": map[string]any{"simpleText": name}}}
}

func playlistItem(id string) map[string]any {
	return map[string]any{"playlistRenderer": map[string]any{"playlistId": id}}
}

func itemSection(items ...map[string]any) map[string]any {
	list := make([]any, len(items))
	for i, it := range items {
		list[i] = it
	}
	return map[string]any{"itemSectionRenderer": map[string]any{"contents": list}}
}

func continuation() map[string]any {
	return map[string]any{"continuationItemRenderer": map[string]any{"trigger": "CONTINUATION_TRIGGER_ON_ITEM_SHOWN"}}
}

func initialData(sections ...map[string]any) map[string]any {
	list := make([]any, len(sections))
	for i, s := range sections {
		list[i] = s
	}
	return map[string]any{
		"responseContext": map[string]any{"visitorData": "Cgt4"},
		"contents": map[string]any{
			"twoColumnSearchResultsRenderer": map[string]any{
				"primaryContents": map[string]any{
					"sectionListRenderer": map[string]any{"contents": list},
				},
			},
		},
	}
}

// resultsPage renders a results page with the payload assigned the way youtube.com does,
// surrounded by unrelated scripts.
func resultsPage(payload map[string]any) string {
	return pageWithScript(fmt.Sprintf("var ytInitialData = %s;", mustJSON(payload)))
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func pageWithScript(script string) string {
	return `<!DOCTYPE html><html><head><title>heat full movie - YouTube</title>
<script src="https://www.youtube.com/s/desktop/base.js"></script>
<script nonce="x">var ytcfg = {"INNERTUBE_API_KEY":"AIza"}; if (window.ytcsi) {ytcsi.tick("lpcs");}</script>
</head><body><div id="content"></div>
<script nonce="y">` + script + `</script>
<script nonce="z">if (window.ytInitialData) { document.body.dataset.ready = "1"; }</script>
</body></html>`
}
