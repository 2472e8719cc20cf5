package model

import "time"

// WorkExperience is one entry of a profile's work history.
type WorkExperience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Description string `json:"description,omitempty"`
}

// Profile is the user's canonical professional identity.
type Profile struct {
	UserID            string           `json:"userId"`
	Headline          string           `json:"headline,omitempty"`
	Summary           string           `json:"summary,omitempty"`
	Skills            []string         `json:"skills,omitempty"`
	WorkHistory       []WorkExperience `json:"workHistory,omitempty"`
	BioEmbedding      []float32        `json:"-"`
	EmbeddingTextHash string           `json:"-"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// HasEmbedding reports whether the profile can be scored against.
func (p *Profile) HasEmbedding() bool {
	return p != nil && len(p.BioEmbedding) > 0
}
