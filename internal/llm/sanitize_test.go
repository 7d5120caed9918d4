package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatxtion/hstay-ai/internal/docext"
)

func decodeSpans(t *testing.T, b []byte) []docext.ExtractionSpan {
	t.Helper()
	var out struct {
		Extractions []docext.ExtractionSpan `json:"extractions"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	return out.Extractions
}

func TestSanitizeWrapsBareArray(t *testing.T) {
	raw := []byte(`[{"extraction_class":"pan_number","extraction_text":"ABCDE1234F","start_pos":10,"end_pos":20}]`)

	cleaned, dropped, err := NormalizeAndSanitizeSpans(raw, nil)
	require.NoError(t, err)
	assert.Empty(t, dropped)

	spans := decodeSpans(t, cleaned)
	require.Len(t, spans, 1)
	assert.Equal(t, "pan_number", spans[0].ExtractionClass)
	require.NotNil(t, spans[0].StartPos)
	assert.Equal(t, 10, *spans[0].StartPos)
}

func TestSanitizeRenamesSynonyms(t *testing.T) {
	raw := []byte(`{"extractions":[{"class":"full_name","text":"RAVI KUMAR","start":5,"end":15}]}`)

	cleaned, _, err := NormalizeAndSanitizeSpans(raw, nil)
	require.NoError(t, err)

	spans := decodeSpans(t, cleaned)
	require.Len(t, spans, 1)
	assert.Equal(t, "full_name", spans[0].ExtractionClass)
	assert.Equal(t, "RAVI KUMAR", spans[0].ExtractionText)
	require.NotNil(t, spans[0].EndPos)
	assert.Equal(t, 15, *spans[0].EndPos)
}

func TestSanitizeDropsEntryWithoutClass(t *testing.T) {
	raw := []byte(`{"extractions":[
		{"extraction_text":"orphan"},
		{"extraction_class":"gender","extraction_text":"Female"}
	]}`)

	cleaned, dropped, err := NormalizeAndSanitizeSpans(raw, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, dropped)

	spans := decodeSpans(t, cleaned)
	require.Len(t, spans, 1)
	assert.Equal(t, "gender", spans[0].ExtractionClass)
}

func TestSanitizeCoercesAndDropsOffsets(t *testing.T) {
	raw := []byte(`{"extractions":[
		{"extraction_class":"a","extraction_text":"x","start_pos":3.0,"end_pos":7.5},
		{"extraction_class":"b","extraction_text":"y","start_pos":"nope"}
	]}`)

	cleaned, dropped, err := NormalizeAndSanitizeSpans(raw, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, dropped)

	spans := decodeSpans(t, cleaned)
	require.Len(t, spans, 2)
	require.NotNil(t, spans[0].StartPos)
	assert.Equal(t, 3, *spans[0].StartPos)
	assert.Nil(t, spans[0].EndPos) // 7.5 is not an offset
	assert.Nil(t, spans[1].StartPos)
}

func TestSanitizeRemovesUnknownKeys(t *testing.T) {
	raw := []byte(`{"extractions":[{"extraction_class":"a","extraction_text":"x","confidence":0.9}]}`)

	cleaned, dropped, err := NormalizeAndSanitizeSpans(raw, nil)
	require.NoError(t, err)
	assert.Contains(t, dropped, "extractions[0].confidence(unknown)")
	assert.NotContains(t, string(cleaned), "confidence")
}

func TestSanitizeRejectsGarbage(t *testing.T) {
	_, _, err := NormalizeAndSanitizeSpans([]byte(`"just a string"`), nil)
	require.Error(t, err)

	_, _, err = NormalizeAndSanitizeSpans([]byte(`{"foo":1}`), nil)
	require.Error(t, err)
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"padded", "  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripCodeFences(tc.in))
		})
	}
}
