package core

// Snippet is one grounding result returned by a search provider.
type Snippet struct {
	Title  string `json:"title,omitempty"`
	Text   string `json:"text"`
	Source string `json:"source,omitempty"`
}
