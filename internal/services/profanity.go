package services

import (
	"strings"

	goaway "github.com/TwiN/go-away"
)

// Author names, places and titles that contain a listed word.
var bookFalsePositives = []string{
	"dickens",
	"dickinson",
	"dickey",
	"cockney",
	"hitchcock",
	"hancock",
	"peacock",
	"woodcock",
	"babcock",
	"cockroach",
	"cockatoo",
	"cockpit",
	"essex",
	"wessex",
	"middlesex",
	"sexton",
	"sextet",
	"sextant",
	"scunthorpe",
	"cumberbatch",
	"canal",
	"glass",
	"brass",
	"compass",
	"embassy",
	"cassandra",
	"asset",
}

// Titles and names that are only clean as a phrase.
var bookPhrases = []string{
	"moby dick",
	"philip k. dick",
	"philip k dick",
	"philip dick",
}

var bookDetector = goaway.NewProfanityDetector().WithCustomDictionary(
	goaway.DefaultProfanities,
	append(append([]string(nil), goaway.DefaultFalsePositives...), bookFalsePositives...),
	goaway.DefaultFalseNegatives,
)

// IsProfane reports whether any whitespace-separated word of text is profane.
// Words are checked one at a time; "this extra" is two clean words.
func IsProfane(text string) bool {
	text = strings.Join(strings.Fields(strings.ToLower(text)), " ")
	for _, p := range bookPhrases {
		text = strings.ReplaceAll(text, p, " ")
	}
	for _, w := range strings.Fields(text) {
		if bookDetector.IsProfane(w) {
			return true
		}
	}
	return false
}
