package models

// SourceDocument is one parsed interview or source document loaded into a
// session. Parsing happens at the caller boundary; the core only reads
// these fields.
type SourceDocument struct {
	Filename     string   `json:"filename"`
	Content      string   `json:"content"`
	WordCount    int      `json:"word_count"`
	SpeakerCount int      `json:"speaker_count"`
	Chunks       []string `json:"chunks,omitempty"`
}
