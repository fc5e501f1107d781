package engine

// --- youtube_best_match ---

type BestMatchInput struct {
	Title string `json:"title" jsonschema:"Movie title, e.g. The Matrix"`
	Year  string `json:"year,omitempty" jsonschema:"4-digit release year, e.g. 1999 (optional)"`
}

// BestMatchOutput reports either a found video or a typed failure.
// Found=false with ErrorCode NoMatch means nothing was found; Retryable marks
// transient failures (NetworkError, UpstreamRejected).
type BestMatchOutput struct {
	Found     bool   `json:"found"`
	VideoID   string `json:"video_id,omitempty"`
	Title     string `json:"title,omitempty"`
	WatchURL  string `json:"watch_url,omitempty"`
	EmbedURL  string `json:"embed_url,omitempty"`
	Phrase    string `json:"phrase"`
	Source    string `json:"source,omitempty"` // scrape | delegated | cache
	ErrorCode string `json:"error_code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Message   string `json:"message,omitempty"`
}

// --- /api/search/scrape-youtube (delegated variant wire format) ---

type ScrapeRequest struct {
	Query string `json:"query"`
}

type ScrapeResponse struct {
	VideoID string `json:"videoId,omitempty"`
	Message string `json:"message,omitempty"`
}
