package artifact_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"image/png"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/you-humble/tasksim/core/sim/artifact"
	"github.com/you-humble/tasksim/core/sim/clock"
	"github.com/you-humble/tasksim/core/sim/domain"
)

const taskID = "0f8fad5b-d9cb-469f-a165-70867728950e"

var genTime = time.Date(2024, 5, 17, 13, 45, 10, 0, time.UTC)

func newGenerator() *artifact.Generator {
	return artifact.NewGenerator(clock.NewFake(genTime))
}

func TestGenerate(t *testing.T) {
	tests := map[string]struct {
		cfg            domain.TaskConfig
		expFilename    string
		expContentType string
		expPreview     string
	}{
		"Text processing should produce a markdown report.": {
			cfg:            domain.TaskConfig{TaskType: domain.TaskTextProcessing, DurationSeconds: 10},
			expFilename:    "text_result_0f8fad5b.md",
			expContentType: "text/markdown",
		},
		"Image generation should produce a png.": {
			cfg:            domain.TaskConfig{TaskType: domain.TaskImageGeneration, DurationSeconds: 15},
			expFilename:    "generated_image_0f8fad5b.png",
			expContentType: "image/png",
			expPreview:     "Generated 1024x1024 image with prompt from task 0f8fad5b",
		},
		"Data analysis should produce a csv.": {
			cfg:            domain.TaskConfig{TaskType: domain.TaskDataAnalysis, DurationSeconds: 8},
			expFilename:    "analysis_results_0f8fad5b.csv",
			expContentType: "text/csv",
			expPreview:     "Analysis complete. CSV contains 6 metrics including performance and resource usage.",
		},
		"Unknown task type should produce the fallback text.": {
			cfg:            domain.TaskConfig{TaskType: "bogus", DurationSeconds: 8},
			expFilename:    "result_0f8fad5b.txt",
			expContentType: "text/plain",
			expPreview:     "Basic task completion result",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			a, err := newGenerator().Generate(test.cfg, taskID, domain.TotalSteps)
			require.NoError(err)

			assert.Equal(test.expFilename, a.Filename)
			assert.Equal(test.expContentType, a.ContentType)
			assert.Equal(len(a.Content), a.SizeBytes)
			assert.NotEmpty(a.SizeHuman)
			assert.Equal("2024-05-17 13:45:10", a.CreatedAt)

			sum := sha256.Sum256(a.Content)
			assert.Equal(hex.EncodeToString(sum[:]), a.ChecksumSHA256)

			if test.expPreview != "" {
				assert.Equal(test.expPreview, a.Preview)
			}
		})
	}
}

func TestGenerateTextReport(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cfg := domain.TaskConfig{TaskType: domain.TaskTextProcessing, DurationSeconds: 10, UserInput: "x"}
	a, err := newGenerator().Generate(cfg, taskID, domain.TotalSteps)
	require.NoError(err)

	content := string(a.Content)
	assert.Regexp(regexp.MustCompile(`^text_result_[0-9a-f]{8}\.md$`), a.Filename)
	assert.True(strings.HasPrefix(content, "# Text Processing Results - Task "+taskID))
	assert.Contains(content, "- Duration: 10 seconds")
	assert.Contains(content, "- Processing Steps: 11")
	assert.Contains(content, "- Processing time: 10.00s")
	assert.Contains(content, "Generated on: 2024-05-17 13:45:10")
	assert.True(strings.HasSuffix(content, "Task ID: "+taskID))

	// The report is longer than the preview limit.
	assert.Equal(content[:artifact.PreviewLimit]+artifact.PreviewMarker, a.Preview)
}

func TestGenerateImageIsValidPNG(t *testing.T) {
	a, err := newGenerator().Generate(domain.TaskConfig{TaskType: domain.TaskImageGeneration}, taskID, domain.TotalSteps)
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(a.Content))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Width)
	assert.Equal(t, 1, cfg.Height)
	assert.Equal(t, 67, a.SizeBytes)
}

func TestGenerateCSVHasSixRowsAndHeader(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	cfg := domain.TaskConfig{TaskType: domain.TaskDataAnalysis, DurationSeconds: 12.5}
	a, err := newGenerator().Generate(cfg, taskID, domain.TotalSteps)
	require.NoError(err)

	rows, err := csv.NewReader(bytes.NewReader(a.Content)).ReadAll()
	require.NoError(err)
	require.Len(rows, 7)

	assert.Equal([]string{"timestamp", "metric", "value", "category"}, rows[0])

	var metrics []string
	for _, r := range rows[1:] {
		assert.Equal("2024-05-17 13:45:10", r[0])
		metrics = append(metrics, r[1])
	}
	assert.Equal([]string{"accuracy", "precision", "recall", "f1_score", "processing_time", "memory_usage"}, metrics)
	assert.Equal("12.50", rows[5][2])
}

func TestArtifactBase64RoundTrip(t *testing.T) {
	for _, tt := range domain.TaskTypes {
		a, err := newGenerator().Generate(domain.TaskConfig{TaskType: tt, DurationSeconds: 20}, taskID, domain.TotalSteps)
		require.NoError(t, err)

		raw, err := json.Marshal(a)
		require.NoError(t, err)

		var wire struct {
			SizeBytes     int    `json:"size_bytes"`
			ContentBase64 string `json:"content_base64"`
		}
		require.NoError(t, json.Unmarshal(raw, &wire))

		decoded, err := base64.StdEncoding.DecodeString(wire.ContentBase64)
		require.NoError(t, err)
		assert.Len(t, decoded, wire.SizeBytes, string(tt))
	}
}

func TestGenerateEmptyTaskIDFails(t *testing.T) {
	_, err := newGenerator().Generate(domain.TaskConfig{TaskType: domain.TaskTextProcessing}, "", 11)
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	short := strings.Repeat("a", artifact.PreviewLimit)
	assert.Equal(t, short, artifact.Preview(short))

	long := strings.Repeat("é", artifact.PreviewLimit+1)
	assert.Equal(t, strings.Repeat("é", artifact.PreviewLimit)+"...", artifact.Preview(long))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]struct {
		in  string
		exp string
	}{
		"Safe names should be untouched.":         {in: "text_result_1234abcd.md", exp: "text_result_1234abcd.md"},
		"Unsafe characters should be replaced.":   {in: `a<b>c:d"e/f\g|h?i*.txt`, exp: "a_b_c_d_e_f_g_h_i_.txt"},
		"Long names should keep their extension.": {in: strings.Repeat("n", 300) + ".csv", exp: strings.Repeat("n", 251) + ".csv"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := artifact.SanitizeFilename(test.in)
			assert.Equal(t, test.exp, got)
			assert.LessOrEqual(t, len(got), 255)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "12.3s", artifact.FormatDuration(12300*time.Millisecond))
	assert.Equal(t, "2m 5.0s", artifact.FormatDuration(125*time.Second))
	assert.Equal(t, "1h 2m", artifact.FormatDuration(time.Hour+2*time.Minute+30*time.Second))
}
