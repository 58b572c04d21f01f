package domain

type Entity struct {
	Label string  `json:"label"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Start int     `json:"start"`
	End   int     `json:"end"`
}

// ExtractedInfo keeps matches in order of first appearance and never
// deduplicates; empty results are empty slices, not nil.
type ExtractedInfo struct {
	Phones []string `json:"phone_numbers"`
	Emails []string `json:"emails"`
	Names  []string `json:"names"`
}

// Answer with Found false means the models produced nothing usable.
type Answer struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
	Found bool    `json:"found"`
}

type Analysis struct {
	Transcript string        `json:"transcript"`
	Language   string        `json:"language,omitempty"`
	Info       ExtractedInfo `json:"info"`
	NameGroups [][]string    `json:"name_groups,omitempty"`
}
