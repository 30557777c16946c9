package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenText(t *testing.T) {
	result := &OCRResult{
		Language: "en",
		Regions: []Region{
			{
				Lines: []Line{
					{Words: []Word{{Text: "Hello"}, {Text: "World"}}},
					{Words: []Word{{Text: "Foo"}}},
				},
			},
		},
	}

	text, err := result.FlattenText()
	require.NoError(t, err)
	assert.Equal(t, "Hello World Foo ", text)
}

func TestFlattenTextFirstRegionOnly(t *testing.T) {
	result := &OCRResult{
		Regions: []Region{
			{Lines: []Line{{Words: []Word{{Text: "first"}}}}},
			{Lines: []Line{{Words: []Word{{Text: "ignored"}}}}},
		},
	}

	text, err := result.FlattenText()
	require.NoError(t, err)
	assert.Equal(t, "first ", text)
}

func TestFlattenTextNoRegions(t *testing.T) {
	result := &OCRResult{Language: "en", Regions: []Region{}}

	_, err := result.FlattenText()
	assert.ErrorIs(t, err, ErrNoRegions)
}

func TestFlattenTextEmptyLines(t *testing.T) {
	result := &OCRResult{Regions: []Region{{}}}

	text, err := result.FlattenText()
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestDecodeOCRResult(t *testing.T) {
	body := `{
		"language": "en",
		"textAngle": 0.5,
		"orientation": "Up",
		"regions": [
			{"boundingBox": "1,2,3,4", "lines": [
				{"boundingBox": "1,2,3,4", "words": [
					{"boundingBox": "1,2,3,4", "text": "Hi"}
				]}
			]}
		]
	}`

	result, err := DecodeOCRResult([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "en", result.Language)
	assert.InDelta(t, 0.5, result.TextAngle, 0.0001)
	require.Len(t, result.Regions, 1)
	require.Len(t, result.Regions[0].Lines, 1)
	assert.Equal(t, "Hi", result.Regions[0].Lines[0].Words[0].Text)
}

func TestDecodeOCRResultInvalidJSON(t *testing.T) {
	_, err := DecodeOCRResult([]byte("<html>not json</html>"))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestDecodeOCRResultMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no language", `{"regions": []}`},
		{"no regions", `{"language": "en"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeOCRResult([]byte(tt.body))
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestDecodeOCRResultEmptyRegionsIsValid(t *testing.T) {
	// An empty region list is a legitimate service answer (blank page);
	// the failure belongs to flattening, not decoding.
	result, err := DecodeOCRResult([]byte(`{"language": "unk", "regions": []}`))
	require.NoError(t, err)

	_, err = result.FlattenText()
	assert.ErrorIs(t, err, ErrNoRegions)
}
