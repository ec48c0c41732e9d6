package scorer

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"

	"github.com/rotisserie/eris"
)

// HTTPScorer calls a remote model server.
//
// Request:  POST {"features": [...names], "values": [...row]}
// Response: {"probability": p}
type HTTPScorer struct {
	endpoint string
	features []string
	client   *http.Client
}

type scoreRequest struct {
	Features []string  `json:"features"`
	Values   []float64 `json:"values"`
}

type scoreResponse struct {
	Probability *float64 `json:"probability"`
}

// Score implements Scorer.
func (s *HTTPScorer) Score(ctx context.Context, row []float64) (float64, error) {
	body, err := json.Marshal(scoreRequest{Features: s.features, Values: row})
	if err != nil {
		return 0, eris.Wrap(err, "scorer: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, eris.Wrap(err, "scorer: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "scorer: call model server")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, eris.Errorf("scorer: model server returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, eris.Wrap(err, "scorer: decode response")
	}
	if out.Probability == nil {
		return 0, eris.New("scorer: response has no probability")
	}
	p := *out.Probability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, eris.Errorf("scorer: model server returned probability %v outside [0,1]", p)
	}
	return p, nil
}
