package github

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// FileEntry is a single named file inside a gist. Language and Content are
// optional in the API payload; a JSON null leaves them empty.
type FileEntry struct {
	Filename string `json:"filename"`
	Language string `json:"language"`
	Content  string `json:"content"`
}

// FileList preserves the provider's file ordering. The GitHub API returns
// files as a JSON object keyed by filename, and the first entry in document
// order is what a gist is titled after, so decoding through a map would
// lose exactly the property we need.
type FileList []FileEntry

func (fl *FileList) UnmarshalJSON(data []byte) error {
	*fl = nil

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("files: expected a JSON object, got %v", tok)
	}

	for dec.More() {
		// the key repeats the entry's filename field
		if _, err := dec.Token(); err != nil {
			return err
		}
		var entry FileEntry
		if err := dec.Decode(&entry); err != nil {
			return err
		}
		*fl = append(*fl, entry)
	}

	_, err = dec.Token()
	return err
}

// GistSummary is one element of a user's gist listing. File contents are
// not populated at this level.
type GistSummary struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Files       FileList  `json:"files"`
}

// GistDetail is a single gist fetched by id, with file contents populated.
type GistDetail struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Files       FileList  `json:"files"`
}
