package models

// Origin identifies where an example clause came from.
type Origin string

const (
	OriginReference Origin = "reference"
	OriginURL       Origin = "url"
	OriginCustom    Origin = "custom"
	OriginFiling    Origin = "filing"
	OriginLibrary   Origin = "library"
)

// Upload is a user supplied base document. It is consumed once by the
// extractor and never stored.
type Upload struct {
	Name      string
	Extension string
	Data      []byte
}

// Example is a clause used as a stylistic reference in the prompt.
type Example struct {
	Origin  Origin
	Source  string
	Text    string
	Include bool
}

// Document is a scraped page kept in the clause library.
type Document struct {
	ID       string
	URL      string
	Title    string
	Content  string
	Metadata map[string]interface{}
}

type ProcessedDocument struct {
	Document
	Chunks []string
}
