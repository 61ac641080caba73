package domain

import "unicode/utf8"

// Document is the extracted text of one uploaded contract. It lives only for
// the duration of a single analysis run.
type Document struct {
	ID       string
	Filename string
	RawText  string
	Length   int
}

func NewDocument(id, filename, text string) Document {
	return Document{
		ID:       id,
		Filename: filename,
		RawText:  text,
		Length:   utf8.RuneCountInString(text),
	}
}

// Chunk is a bounded window of a Document. Offsets are rune positions in the
// document text, CharEnd exclusive.
type Chunk struct {
	Index     int
	Text      string
	CharStart int
	CharEnd   int
}

func (c Chunk) Len() int {
	return c.CharEnd - c.CharStart
}

// ModelRequest is a single completion request sent to the model backend.
type ModelRequest struct {
	System     string
	User       string
	ChunkIndex int
}
