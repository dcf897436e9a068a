// Package manifest parses the blog manifest, a JSON object mapping content
// identifiers to display metadata, and synthesises the index listing from it.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/buger/jsonparser"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// IndexID is the synthetic identifier of the index listing.
const IndexID = "index"

var (
	// ErrNotFound is returned for identifiers absent from the manifest.
	ErrNotFound = errors.New("content not found")
	// ErrMalformed is returned when the manifest is not a valid JSON object.
	ErrMalformed = errors.New("malformed manifest")
)

// Metadata describes one content document.
type Metadata struct {
	Title       string `json:"title"`
	ModifyDate  string `json:"modifydate"`
	Keywords    string `json:"keywords"`
	Href        string `json:"href,omitempty"`
	Description string `json:"description,omitempty"`
}

// KeywordList splits the comma-separated keywords, dropping blanks.
func (m Metadata) KeywordList() []string {
	var out []string
	for _, kw := range strings.Split(m.Keywords, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// Entry pairs an identifier with its metadata.
type Entry struct {
	ID string
	Metadata
}

// Manifest is an immutable, ordered identifier → metadata mapping.
type Manifest struct {
	entries *orderedmap.OrderedMap[string, Metadata]
}

// Parse decodes a manifest, keeping the key order of the source document.
// An identifier that appears twice makes the manifest malformed.
func Parse(data []byte) (*Manifest, error) {
	om := orderedmap.New[string, Metadata]()
	if err := json.Unmarshal(data, om); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := checkUnique(data); err != nil {
		return nil, err
	}
	return &Manifest{entries: om}, nil
}

func checkUnique(data []byte) error {
	seen := map[string]bool{}
	return jsonparser.ObjectEach(data, func(key, _ []byte, _ jsonparser.ValueType, _ int) error {
		id, err := jsonparser.ParseString(key)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate identifier %q", ErrMalformed, id)
		}
		seen[id] = true
		return nil
	})
}

// Len returns the number of entries.
func (m *Manifest) Len() int { return m.entries.Len() }

// Lookup returns the metadata for id.
func (m *Manifest) Lookup(id string) (Metadata, error) {
	meta, ok := m.entries.Get(id)
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return meta, nil
}

// Entries returns all entries in manifest order.
func (m *Manifest) Entries() []Entry {
	out := make([]Entry, 0, m.entries.Len())
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Entry{ID: pair.Key, Metadata: pair.Value})
	}
	return out
}

// Keywords returns every distinct keyword in first-seen order.
func (m *Manifest) Keywords() []string {
	seen := make(map[string]bool)
	var out []string
	for pair := m.entries.Oldest(); pair != nil; pair = pair.Next() {
		for _, kw := range pair.Value.KeywordList() {
			if !seen[kw] {
				seen[kw] = true
				out = append(out, kw)
			}
		}
	}
	return out
}

// Identity derives the page identity from a raw query string: the p
// parameter, then the legacy pageid parameter, else IndexID.
func Identity(rawQuery string) string {
	values, _ := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	for _, key := range []string{"p", "pageid"} {
		if v := strings.TrimSpace(values.Get(key)); v != "" {
			return v
		}
	}
	return IndexID
}
