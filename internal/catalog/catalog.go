// Package catalog holds the static book list the bot recommends from. It is
// loaded once at startup and read concurrently afterwards without locking.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Book mirrors one entry of the summaries file.
type Book struct {
	ID       FlexString `json:"id"`
	Title    string     `json:"Title"`
	Summary  string     `json:"Summary"`
	Author   string     `json:"Author"`
	Year     FlexInt    `json:"Year"`
	Genre    []string   `json:"Genre"`
	Rating   float64    `json:"Rating"`
	Audience string     `json:"Audience"`
	Tone     []string   `json:"Tone"`
}

// Document is the text that gets embedded for the book.
func (b Book) Document() string {
	return fmt.Sprintf("%s. %s Genre: %s. Tone: %s. Audience: %s.",
		b.Title, b.Summary,
		strings.Join(b.Genre, ", "),
		strings.Join(b.Tone, ", "),
		b.Audience,
	)
}

// Metadata returns the per-book fields stored next to the vector.
func (b Book) Metadata() map[string]any {
	return map[string]any{
		"id":       string(b.ID),
		"Title":    b.Title,
		"Summary":  b.Summary,
		"Author":   b.Author,
		"Year":     int(b.Year),
		"Genre":    strings.Join(b.Genre, ", "),
		"Rating":   b.Rating,
		"Audience": b.Audience,
		"Tone":     strings.Join(b.Tone, ", "),
	}
}

// Catalog is an immutable title index over the loaded books. Titles keep the
// order of the source file.
type Catalog struct {
	books     []Book
	summaries map[string]string
}

func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var books []Book
	if err := json.Unmarshal(raw, &books); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(books), nil
}

func New(books []Book) *Catalog {
	c := &Catalog{
		books:     make([]Book, 0, len(books)),
		summaries: make(map[string]string, len(books)),
	}
	for _, b := range books {
		if b.Title == "" {
			continue
		}
		if _, dup := c.summaries[b.Title]; dup {
			// later entries win, position stays at first sighting
			c.summaries[b.Title] = b.Summary
			continue
		}
		c.summaries[b.Title] = b.Summary
		c.books = append(c.books, b)
	}
	return c
}

func (c *Catalog) Len() int { return len(c.books) }

// Books returns a copy of the loaded books.
func (c *Catalog) Books() []Book {
	out := make([]Book, len(c.books))
	copy(out, c.books)
	return out
}

func (c *Catalog) Titles() []string {
	out := make([]string, len(c.books))
	for i, b := range c.books {
		out[i] = b.Title
	}
	return out
}

// Summary is an exact-key lookup.
func (c *Catalog) Summary(title string) (string, bool) {
	s, ok := c.summaries[title]
	return s, ok
}

// MatchTitle returns the first title, in load order, that occurs in text
// ignoring case.
func (c *Catalog) MatchTitle(text string) (string, bool) {
	lower := strings.ToLower(text)
	if lower == "" {
		return "", false
	}
	for _, b := range c.books {
		if strings.Contains(lower, strings.ToLower(b.Title)) {
			return b.Title, true
		}
	}
	return "", false
}

// FlexString accepts a JSON string or number.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// FlexInt accepts a JSON number or a numeric string.
type FlexInt int

func (i *FlexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("year %q: %w", v, err)
		}
		*i = FlexInt(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*i = FlexInt(int(f))
	return nil
}
