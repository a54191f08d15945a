package classifier

import (
	"bytes"
	"encoding/json"

	"github.com/samber/lo"
)

type Severity string

const (
	SeveritySafe   Severity = "safe"
	SeverityMedium Severity = "medium"
	SeverityToxic  Severity = "toxic"
)

// SeverityFor maps the number of flagged categories to a tier and the is_toxic flag.
func SeverityFor(flagged int) (Severity, bool) {
	switch {
	case flagged <= 0:
		return SeveritySafe, false
	case flagged <= 2:
		return SeverityMedium, true
	default:
		return SeverityToxic, true
	}
}

type CategoryScore struct {
	Category string
	Score    float64
}

// Scores keeps category order. It encodes as a JSON object whose keys follow that order.
type Scores []CategoryScore

func (s Scores) CountAtLeast(threshold float64) int {
	return lo.CountBy(s, func(cs CategoryScore) bool { return cs.Score >= threshold })
}

func (s Scores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cs := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cs.Category)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(cs.Score)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type ClassificationResult struct {
	Text              string   `json:"text"`
	Scores            Scores   `json:"scores"`
	IsToxic           bool     `json:"is_toxic"`
	Severity          Severity `json:"severity"`
	FlaggedCategories int      `json:"flagged_categories"`
}
