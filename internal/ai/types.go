package ai

// NarrativeInput факты плана, которые модель пересказывает своими словами.
type NarrativeInput struct {
	Currency  string   `json:"currency"`
	Narrative string   `json:"narrative"`
	Facts     []string `json:"facts,omitempty"`
}

type NarrativeResponse struct {
	Narrative string `json:"narrative"`
}

// Exchange то, что нужно сохранить в журнал запросов.
type Exchange struct {
	Provider string
	Model    string
	Prompt   string
	Raw      []byte
}
