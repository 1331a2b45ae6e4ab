// Package listings owns the classified ads: creation behind the posting
// quota, content moderation, search, and the proximity snapshot persisted
// with property listings.
package listings

import (
	"fmt"
	"strings"
	"unicode"

	a "github.com/petar-dambovaliev/aho-corasick"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/publimicro/marketplace-api/internal/app/models"
)

// Moderation matches against diacritic-stripped lowercase text, so the term
// list stays in plain ASCII. "munição", "Munição" and "municao" all hit the
// same pattern.
var (
	prohibitedTerms = []string{
		// Weapons
		"arma de fogo", "pistola", "revolver", "espingarda", "municao",
		"fuzil", "granada",
		// Drugs
		"maconha", "cocaina", "entorpecente", "anabolizante",
		// Fraud and restricted trade
		"dinheiro falso", "documento falso", "cnh quente", "carteira assinada falsa",
		"animal silvestre", "orgao humano",
	}

	moderationBuilder = a.NewAhoCorasickBuilder(a.Opts{
		AsciiCaseInsensitive: true,
		MatchOnlyWholeWords:  true,
	})
	moderationMatcher = moderationBuilder.Build(prohibitedTerms)
)

// normalizeText lowercases s and strips combining marks, folding Portuguese
// diacritics to plain ASCII.
func normalizeText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// CheckContent scans title and description for prohibited terms and returns
// a models.ErrModeration-wrapped error naming the first match.
func CheckContent(title, description string) error {
	text := normalizeText(title + " " + description)

	matches := moderationMatcher.FindAll(text)
	if len(matches) == 0 {
		return nil
	}

	first := matches[0]
	return fmt.Errorf("prohibited term %q: %w", text[first.Start():first.End()], models.ErrModeration)
}

// Slugify derives a URL slug from a listing title: diacritics stripped,
// lowercased, runs of non-alphanumerics collapsed to single hyphens.
func Slugify(title string) string {
	text := normalizeText(title)

	var b strings.Builder
	b.Grow(len(text))
	lastHyphen := true
	for _, r := range text {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
