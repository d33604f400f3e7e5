package hedra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatusResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want StatusResult
	}{
		{
			name: "processing with progress",
			body: `{"status":"processing","progress":0.4}`,
			want: StatusResult{State: StatePending, Progress: 0.4},
		},
		{
			name: "queued without status field",
			body: `{"id":"gen-1"}`,
			want: StatusResult{State: StatePending},
		},
		{
			name: "complete with top level url",
			body: `{"status":"complete","url":"https://cdn.example.com/v.mp4"}`,
			want: StatusResult{State: StateComplete, URL: "https://cdn.example.com/v.mp4"},
		},
		{
			name: "completed spelling with asset url",
			body: `{"status":"completed","asset":{"url":"https://cdn.example.com/a.mp4"},"url":"https://other"}`,
			want: StatusResult{State: StateComplete, URL: "https://cdn.example.com/a.mp4"},
		},
		{
			name: "array response uses first element asset url",
			body: `[{"status":"complete","asset":{"url":"https://cdn.example.com/first.mp4"}},{"status":"complete","url":"https://second"}]`,
			want: StatusResult{State: StateComplete, URL: "https://cdn.example.com/first.mp4"},
		},
		{
			name: "empty array is pending",
			body: `[]`,
			want: StatusResult{State: StatePending},
		},
		{
			name: "alternate field names in order",
			body: `{"status":"complete","media_url":"https://m","download_url":"https://d"}`,
			want: StatusResult{State: StateComplete, URL: "https://m"},
		},
		{
			name: "nested output url",
			body: `{"status":"complete","output":{"url":"https://o"}}`,
			want: StatusResult{State: StateComplete, URL: "https://o"},
		},
		{
			name: "nested output alternate field",
			body: `{"status":"complete","output":{"video_url":"https://ov"}}`,
			want: StatusResult{State: StateComplete, URL: "https://ov"},
		},
		{
			name: "complete without url",
			body: `{"status":"complete","output":{}}`,
			want: StatusResult{State: StateComplete},
		},
		{
			name: "error with message",
			body: `{"status":"error","error_message":"face not detected"}`,
			want: StatusResult{State: StateFailed, Reason: "face not detected"},
		},
		{
			name: "error without message",
			body: `{"status":"error"}`,
			want: StatusResult{State: StateFailed, Reason: "unknown reason"},
		},
		{
			name: "non string url ignored",
			body: `{"status":"complete","url":42,"output_url":"https://ou"}`,
			want: StatusResult{State: StateComplete, URL: "https://ou"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatusResponse([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStatusResponse_Malformed(t *testing.T) {
	for _, body := range []string{``, `not json`, `"complete"`, `42`} {
		_, err := ParseStatusResponse([]byte(body))
		assert.ErrorIs(t, err, ErrMalformedStatus, "body %q", body)
	}
}
