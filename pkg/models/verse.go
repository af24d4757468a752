package models

// Verse is one corpus record: a verse of Greek text addressed by book,
// chapter and verse number.
type Verse struct {
	Book    string `json:"book"`
	Chapter int    `json:"chapter"`
	Verse   int    `json:"verse"`
	Text    string `json:"text_grc"`
}
