package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OCRResult is the recognition output for one file. The hierarchy
// mirrors the service's JSON: regions contain lines contain words.
type OCRResult struct {
	// Language is the detected BCP-47 language code.
	Language string `json:"language"`

	// TextAngle is the detected rotation of the text, in degrees.
	TextAngle float64 `json:"textAngle"`

	// Orientation is the detected page orientation.
	Orientation string `json:"orientation"`

	// Regions are the recognized page areas, in service order.
	Regions []Region `json:"regions"`
}

// Region is a recognized page area.
type Region struct {
	BoundingBox string `json:"boundingBox"`
	Lines       []Line `json:"lines"`
}

// Line is a text line within a region.
type Line struct {
	BoundingBox string `json:"boundingBox"`
	Words       []Word `json:"words"`
}

// Word is a recognized token within a line.
type Word struct {
	BoundingBox string `json:"boundingBox"`
	Text        string `json:"text"`
}

// DecodeOCRResult parses a service response body into an OCRResult,
// validating required fields at the boundary so a bad payload fails
// here rather than as an index fault during flattening.
func DecodeOCRResult(data []byte) (*OCRResult, error) {
	var result OCRResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.Language == "" {
		return nil, fmt.Errorf("%w: missing language", ErrMalformedResponse)
	}
	if result.Regions == nil {
		return nil, fmt.Errorf("%w: missing regions", ErrMalformedResponse)
	}
	return &result, nil
}

// FlattenText concatenates every word of the first region, in line
// order then word order, each followed by a single space. The trailing
// space is part of the contract.
func (r *OCRResult) FlattenText() (string, error) {
	if len(r.Regions) == 0 {
		return "", ErrNoRegions
	}

	var sb strings.Builder
	for _, line := range r.Regions[0].Lines {
		for _, word := range line.Words {
			sb.WriteString(word.Text)
			sb.WriteString(" ")
		}
	}
	return sb.String(), nil
}
