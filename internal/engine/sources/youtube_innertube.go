package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/anatolykoptev/go_tracks/internal/engine"
	"github.com/anatolykoptev/go_tracks/internal/engine/tree"
)

// YouTube Innertube API: client context and the low-level POST primitive
// used for search continuation pages.

const (
	ytSearchPath = "/youtubei/v1/search"
	ytWebVersion = "2.20250222.10.00"
)

type ytWebClientCtx struct {
	ClientName    string `json:"clientName"`
	ClientVersion string `json:"clientVersion"`
	VisitorData   string `json:"visitorData,omitempty"`
	Hl            string `json:"hl,omitempty"`
	Gl            string `json:"gl,omitempty"`
}

type ytWebUser struct {
	EnableSafetyMode bool `json:"enableSafetyMode"`
}

type ytWebReqCtx struct {
	UseSsl bool `json:"useSsl"`
}

// generateVisitorData creates a random 11-char visitor ID for Innertube requests.
func generateVisitorData() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	b := make([]byte, 11)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))] //nolint:gosec // non-cryptographic use
	}
	return string(b)
}

// ytWebContext builds the standard WEB client context for Innertube payloads.
func ytWebContext(visitorData string) map[string]any {
	return map[string]any{
		"client": ytWebClientCtx{
			ClientName:    "WEB",
			ClientVersion: ytWebVersion,
			VisitorData:   visitorData,
			Hl:            "en",
			Gl:            "US",
		},
		"user":    ytWebUser{EnableSafetyMode: false},
		"request": ytWebReqCtx{UseSsl: true},
	}
}

// postInnertube POSTs a WEB-client payload to an Innertube endpoint and
// parses the JSON response.
func (y *YouTubeClient) postInnertube(ctx context.Context, path string, payload map[string]any) (tree.Node, error) {
	visitorData := generateVisitorData()
	payload["context"] = ytWebContext(visitorData)
	body, err := json.Marshal(payload)
	if err != nil {
		return tree.Null(), err
	}

	headers := map[string]string{
		"content-type":             "application/json",
		"accept":                   "*/*",
		"x-youtube-client-name":    "1",
		"x-youtube-client-version": ytWebVersion,
		"x-goog-visitor-id":        visitorData,
		"origin":                   y.baseURL,
		"referer":                  y.baseURL + "/",
	}
	engine.IncrYouTube()
	status, data, err := y.transport.Post(ctx, y.baseURL+path+"?prettyPrint=false", headers, body)
	if err != nil {
		return tree.Null(), fmt.Errorf("innertube %s: %w", path, err)
	}
	if status != http.StatusOK {
		return tree.Null(), statusErr("innertube "+path, status)
	}
	root, err := tree.ParseJSON(data)
	if err != nil {
		return tree.Null(), parseErr("innertube "+path, err)
	}
	return root, nil
}
