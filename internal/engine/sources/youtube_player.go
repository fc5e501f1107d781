package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_moviematch/internal/engine"
)

// YouTube Innertube /player endpoint, ANDROID client. Used to confirm that a
// resolved video can actually be played before handing it to a player.

const (
	ytPlayerPath      = "/youtubei/v1/player"
	ytAndroidVersion  = "20.10.38"
	ytAndroidUA       = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"
	ytMaxPlayerBytes  = 2 * 1024 * 1024
	playabilityStatOK = "OK"
)

type innertubeReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type innertubePlayerResp struct {
	PlayabilityStatus *struct {
		Status          string `json:"status"`
		Reason          string `json:"reason"`
		PlayableInEmbed bool   `json:"playableInEmbed"`
	} `json:"playabilityStatus"`
	VideoDetails *struct {
		VideoID       string `json:"videoId"`
		Title         string `json:"title"`
		LengthSeconds string `json:"lengthSeconds"`
		IsLiveContent bool   `json:"isLiveContent"`
	} `json:"videoDetails"`
}

// Playability is YouTube's verdict on one video.
type Playability struct {
	Status     string        // "OK", "UNPLAYABLE", "LOGIN_REQUIRED", "ERROR", ...
	Reason     string        // human-readable, empty when OK
	Embeddable bool          // playable inside an embedded player
	Length     time.Duration // zero when unknown
	Title      string
}

// OK reports whether the video plays without sign-in.
func (p Playability) OK() bool { return p.Status == playabilityStatOK }

// PlayerClient queries the Innertube /player endpoint.
type PlayerClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Retry      engine.RetryConfig
	Timeout    time.Duration
}

// NewPlayerClient builds a PlayerClient from the engine configuration.
func NewPlayerClient() *PlayerClient {
	return &PlayerClient{
		BaseURL:    engine.Cfg.YouTubeBaseURL,
		HTTPClient: engine.Cfg.HTTPClient,
		Retry:      engine.DefaultRetryConfig,
		Timeout:    engine.Cfg.ResolveTimeout,
	}
}

// Check asks YouTube whether videoID is playable.
func (c *PlayerClient) Check(ctx context.Context, videoID string) (Playability, error) {
	if videoID == "" {
		return Playability{}, errors.New("player: video id is required")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	reqBody, err := json.Marshal(innertubeReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return Playability{}, err
	}

	base := strings.TrimRight(c.BaseURL, "/")
	if base == "" {
		base = "https://www.youtube.com"
	}
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := engine.RetryHTTP(ctx, c.Retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+ytPlayerPath+"?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return client.Do(req)
	})
	if err != nil {
		return Playability{}, fmt.Errorf("android innertube: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Playability{}, fmt.Errorf("android innertube: HTTP %d: %s", resp.StatusCode, snippet)
	}

	var playerResp innertubePlayerResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, ytMaxPlayerBytes)).Decode(&playerResp); err != nil {
		return Playability{}, fmt.Errorf("decode player: %w", err)
	}
	if playerResp.PlayabilityStatus == nil {
		return Playability{}, errors.New("player response has no playabilityStatus")
	}

	p := Playability{
		Status:     playerResp.PlayabilityStatus.Status,
		Reason:     playerResp.PlayabilityStatus.Reason,
		Embeddable: playerResp.PlayabilityStatus.PlayableInEmbed,
	}
	if vd := playerResp.VideoDetails; vd != nil {
		p.Title = vd.Title
		if secs, err := strconv.Atoi(vd.LengthSeconds); err == nil {
			p.Length = time.Duration(secs) * time.Second
		}
	}
	return p, nil
}
