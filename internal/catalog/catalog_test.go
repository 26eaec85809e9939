package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleJSON = `[
  {"id": 1, "Title": "To Kill a Mockingbird", "Summary": "A lawyer defends a black man in the Deep South.",
   "Author": "Harper Lee", "Year": "1960", "Genre": ["Classic", "Drama"], "Rating": 4.8,
   "Audience": "Adult", "Tone": ["Serious", "Hopeful"]},
  {"id": "2", "Title": "Dune", "Summary": "A desert planet and a prophecy.",
   "Author": "Frank Herbert", "Year": 1965, "Genre": ["Science Fiction"], "Rating": 4.6,
   "Audience": "Adult", "Tone": ["Epic"]},
  {"id": 3, "Title": "Dune Messiah", "Summary": "Paul's reign as emperor.",
   "Author": "Frank Herbert", "Year": 1969, "Genre": ["Science Fiction"], "Rating": 4.1,
   "Audience": "Adult", "Tone": ["Dark"]}
]`

func loadSample(t *testing.T) *Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book_sum.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o600); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return c
}

func TestLoadKeepsFileOrderAndCoercesFields(t *testing.T) {
	c := loadSample(t)
	if c.Len() != 3 {
		t.Fatalf("len = %d", c.Len())
	}
	titles := c.Titles()
	want := []string{"To Kill a Mockingbird", "Dune", "Dune Messiah"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("titles[%d] = %q, want %q", i, titles[i], want[i])
		}
	}
	books := c.Books()
	if books[0].ID != "1" || books[1].ID != "2" {
		t.Fatalf("unexpected ids %q %q", books[0].ID, books[1].ID)
	}
	if books[0].Year != 1960 || books[1].Year != 1965 {
		t.Fatalf("unexpected years %d %d", books[0].Year, books[1].Year)
	}
}

func TestSummaryExactKey(t *testing.T) {
	c := loadSample(t)
	if s, ok := c.Summary("Dune"); !ok || s != "A desert planet and a prophecy." {
		t.Fatalf("Summary(Dune) = %q, %v", s, ok)
	}
	if _, ok := c.Summary("dune"); ok {
		t.Fatalf("lookup must be case sensitive")
	}
	if _, ok := c.Summary("Unknown Book"); ok {
		t.Fatalf("unknown title should miss")
	}
}

func TestMatchTitle(t *testing.T) {
	c := loadSample(t)
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"case insensitive", "You will love TO KILL A MOCKINGBIRD.", "To Kill a Mockingbird", true},
		{"first in load order wins", "Try Dune Messiah after Dune.", "Dune", true},
		{"no match", "I couldn't find a good match.", "", false},
		{"empty", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := c.MatchTitle(tc.text)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("MatchTitle(%q) = %q, %v", tc.text, got, ok)
			}
		})
	}
}

func TestDocumentText(t *testing.T) {
	c := loadSample(t)
	got := c.Books()[0].Document()
	want := "To Kill a Mockingbird. A lawyer defends a black man in the Deep South. Genre: Classic, Drama. Tone: Serious, Hopeful. Audience: Adult."
	if got != want {
		t.Fatalf("Document() =\n%q\nwant\n%q", got, want)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte(`{"not": "an array"}`)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected read error")
	}
}
