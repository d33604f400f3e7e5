package hedra

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedStatus is returned when a status body is not a JSON object or array.
var ErrMalformedStatus = errors.New("hedra: malformed status response")

// State is the normalized state of a remote generation.
type State string

const (
	// StatePending means the generation is still running.
	StatePending State = "pending"
	// StateComplete means the generation finished.
	StateComplete State = "complete"
	// StateFailed means the generation failed remotely.
	StateFailed State = "failed"
)

// StatusResult is the normalized view of one status response.
type StatusResult struct {
	State State
	// URL is the output location, empty when the response did not carry one.
	URL string
	// Reason explains a failure.
	Reason string
	// Progress is the reported completion fraction in [0, 1], if any.
	Progress float64
}

// urlFields are checked, in order, after asset.url and url.
var urlFields = []string{"video_url", "output_url", "media_url", "download_url"}

// ParseStatusResponse normalizes a status body. Completed responses are
// searched for an output URL in this order: first array element asset.url,
// asset.url, url, the urlFields, output.url, then output.<urlFields>.
// It performs no I/O.
func ParseStatusResponse(raw []byte) (StatusResult, error) {
	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return StatusResult{}, fmt.Errorf("%w: %v", ErrMalformedStatus, err)
	}

	var obj map[string]any
	switch v := root.(type) {
	case map[string]any:
		obj = v
	case []any:
		if len(v) > 0 {
			obj, _ = v[0].(map[string]any)
		}
		if obj == nil {
			return StatusResult{State: StatePending}, nil
		}
	default:
		return StatusResult{}, fmt.Errorf("%w: unexpected %T", ErrMalformedStatus, root)
	}

	res := StatusResult{State: StatePending}
	if p, ok := obj["progress"].(float64); ok {
		res.Progress = p
	}

	switch strings.ToLower(stringField(obj, "status")) {
	case "complete", "completed":
		res.State = StateComplete
		res.URL = findURL(obj)
	case "error", "failed":
		res.State = StateFailed
		res.Reason = stringField(obj, "error_message")
		if res.Reason == "" {
			res.Reason = "unknown reason"
		}
	}
	return res, nil
}

// findURL walks the known output locations of a completed response.
func findURL(obj map[string]any) string {
	if asset, ok := obj["asset"].(map[string]any); ok {
		if u := stringField(asset, "url"); u != "" {
			return u
		}
	}
	if u := stringField(obj, "url"); u != "" {
		return u
	}
	for _, f := range urlFields {
		if u := stringField(obj, f); u != "" {
			return u
		}
	}
	if out, ok := obj["output"].(map[string]any); ok {
		if u := stringField(out, "url"); u != "" {
			return u
		}
		for _, f := range urlFields {
			if u := stringField(out, f); u != "" {
				return u
			}
		}
	}
	return ""
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}
