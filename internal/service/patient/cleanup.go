package patient

import (
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/jwalitptl/patient-directory/internal/model"
)

var honorificPrefix = regexp.MustCompile(`(?i)^(Ms\.|Mr\.|Mrs\.|Dr\.)\s*`)

// createdAtLayouts are tried in order when comparing record ages. Layouts
// without a zone are read as UTC, not server local time. Anything else,
// including RFC 1123 dates, is treated as unparseable.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// NormalizeName trims the name, drops a leading honorific and capitalizes
// every space-separated word. Runs of interior spaces are kept as-is.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	name = honorificPrefix.ReplaceAllString(name, "")
	if name == "" {
		return ""
	}

	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)

	words := strings.Split(name, " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		_, size := utf8.DecodeRuneInString(word)
		words[i] = upper.String(word[:size]) + lower.String(word[size:])
	}
	return strings.Join(words, " ")
}

// Deduplicate collapses records sharing name and description into the one
// with the latest CreatedAt. Records are expected to be normalized already.
func Deduplicate(records []model.PatientRecord) []model.PatientRecord {
	out := make([]model.PatientRecord, 0, len(records))
	index := make(map[dedupKey]int, len(records))

	for _, current := range records {
		key := keyOf(current)
		i, ok := index[key]
		if !ok {
			index[key] = len(out)
			out = append(out, current)
			continue
		}
		if !isStrictlyNewer(out[i].CreatedAt, current.CreatedAt) {
			out[i] = current
		}
	}
	return out
}

// CleanUpData returns a normalized, deduplicated copy of records sorted by
// name with locale-aware collation. The input slice is not modified.
func CleanUpData(records []model.PatientRecord) []model.PatientRecord {
	normalized := make([]model.PatientRecord, len(records))
	for i, record := range records {
		record.Name = NormalizeName(record.Name)
		normalized[i] = record
	}

	unique := Deduplicate(normalized)

	col := collate.New(language.Und)
	lowered := make([]string, len(unique))
	for i := range unique {
		lowered[i] = strings.ToLower(unique[i].Name)
	}
	sort.Stable(byCollation{records: unique, keys: lowered, col: col})
	return unique
}

// Initials returns up to two upper-cased leading letters of the name's words.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Split(name, " ") {
		if r, _ := utf8.DecodeRuneInString(word); r != utf8.RuneError {
			b.WriteRune(r)
		}
	}
	initials := []rune(strings.ToUpper(b.String()))
	if len(initials) > 2 {
		initials = initials[:2]
	}
	return string(initials)
}

// FormatWebsiteURL prefixes https:// unless the website already has a scheme.
func FormatWebsiteURL(website string) string {
	if strings.HasPrefix(website, "http") {
		return website
	}
	return "https://" + website
}

type dedupKey struct {
	name           string
	description    string
	hasDescription bool
}

func keyOf(r model.PatientRecord) dedupKey {
	k := dedupKey{name: r.Name}
	if r.Description != nil {
		k.description = *r.Description
		k.hasDescription = true
	}
	return k
}

// isStrictlyNewer reports whether held is later than candidate. Any
// unparseable timestamp makes the comparison false so the candidate wins.
func isStrictlyNewer(held, candidate string) bool {
	h, ok := parseCreatedAt(held)
	if !ok {
		return false
	}
	c, ok := parseCreatedAt(candidate)
	if !ok {
		return false
	}
	return h.After(c)
}

func parseCreatedAt(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type byCollation struct {
	records []model.PatientRecord
	keys    []string
	col     *collate.Collator
}

func (b byCollation) Len() int { return len(b.records) }

func (b byCollation) Less(i, j int) bool {
	return b.col.CompareString(b.keys[i], b.keys[j]) < 0
}

func (b byCollation) Swap(i, j int) {
	b.records[i], b.records[j] = b.records[j], b.records[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}
