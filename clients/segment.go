package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"gonum.org/v1/gonum/mat"
)

// --- Segmentation (/segment) ---
type SegmentReq struct {
	Features [][]float64 `json:"features"` // [coefficient][frame]
	K        int         `json:"k"`
	Width    int         `json:"width"`
}

type SegmentResp struct {
	Boundaries []int `json:"boundaries"` // segment start frames
}

// Segmenter delegates boundary clustering to a remote service. It satisfies
// structure.Clusterer.
type Segmenter struct {
	HTTP *HTTP
	URL  string
}

func (s *Segmenter) Boundaries(ctx context.Context, mfcc *mat.Dense, k, width int) ([]int, error) {
	if mfcc == nil {
		return nil, fmt.Errorf("segment: empty feature matrix")
	}
	rows, frames := mfcc.Dims()
	feats := make([][]float64, rows)
	for i := range feats {
		feats[i] = mat.Row(nil, i, mfcc)
	}
	out, err := s.HTTP.Segment(ctx, s.URL, SegmentReq{Features: feats, K: k, Width: width})
	if err != nil {
		return nil, err
	}
	if err := checkBoundaries(out.Boundaries, frames); err != nil {
		return nil, err
	}
	return out.Boundaries, nil
}

// checkBoundaries enforces the Clusterer contract on a remote answer.
func checkBoundaries(b []int, frames int) error {
	if len(b) == 0 || b[0] != 0 {
		return fmt.Errorf("segment: boundaries must start at frame 0, got %v", b)
	}
	for i := 1; i < len(b); i++ {
		if b[i] <= b[i-1] || b[i] >= frames {
			return fmt.Errorf("segment: boundary %d (%d) out of order or past frame %d", i, b[i], frames)
		}
	}
	return nil
}

func (h *HTTP) Segment(ctx context.Context, url string, body SegmentReq) (*SegmentResp, error) {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+"/segment", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError("segment", resp)
	}

	var out SegmentResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("segment decode: %w", err)
	}
	return &out, nil
}
