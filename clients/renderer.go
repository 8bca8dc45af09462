package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Lucas-MARIE/audio-viz/visual"
)

// --- Rendering client (/timeline) ---
type TimelineReq struct {
	Source   string                 `json:"source"`
	Duration float64                `json:"duration"`
	Tempo    float64                `json:"tempo"`
	Drops    []float64              `json:"drops"`
	Timeline []visual.TimelineEntry `json:"visualization_timeline"`
}

type TimelineResp struct {
	Status string `json:"status"`
}

// PublishTimeline pushes a finished timeline to a running renderer.
func (h *HTTP) PublishTimeline(ctx context.Context, url string, req TimelineReq) (*TimelineResp, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	r, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/timeline", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	r.Header.Set("Content-Type", "application/json")
	resp, err := h.c.Do(r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("renderer", resp)
	}

	var out TimelineResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("renderer decode: %w", err)
	}
	return &out, nil
}
