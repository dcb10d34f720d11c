// Package naming derives stable, filesystem-safe base filenames for summary artifacts.
package naming

import (
	"strconv"
	"strings"
)

// placeholderAuthors are values a model emits when it could not find author names
var placeholderAuthors = map[string]bool{
	"unknown":       true,
	"not specified": true,
	"n/a":           true,
	"na":            true,
	"none":          true,
	"anonymous":     true,
}

// untitled is returned when neither authors nor a source stem are available
const untitled = "untitled"

// BaseFilename builds the artifact base name from the authors and year.
//
//	no usable authors  -> sourceStem
//	one author         -> Surname[-YEAR]
//	two or more        -> FirstSurname-SecondSurname[-YEAR]
//
// It never fails; missing data degrades to the rules above.
func BaseFilename(authors []string, year *int, sourceStem string) string {
	var surnames []string
	for _, author := range authors {
		if len(surnames) == 2 {
			break
		}
		if s := Surname(author); s != "" {
			surnames = append(surnames, s)
		}
	}

	if len(surnames) == 0 {
		if strings.TrimSpace(sourceStem) == "" {
			return untitled
		}
		return sourceStem
	}

	name := strings.Join(surnames, "-")
	if year != nil && *year > 0 {
		name += "-" + strconv.Itoa(*year)
	}
	return name
}

// Surname returns the sanitized last token of a full name. Tokens that
// sanitize to nothing are skipped in favour of the preceding one.
func Surname(fullName string) string {
	name := strings.TrimSpace(fullName)
	if name == "" || placeholderAuthors[strings.ToLower(name)] {
		return ""
	}

	tokens := strings.Fields(name)
	for i := len(tokens) - 1; i >= 0; i-- {
		if s := Sanitize(tokens[i]); s != "" {
			return s
		}
	}
	return ""
}

// Sanitize keeps ASCII letters, digits and hyphens. Everything else is dropped.
func Sanitize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			sb.WriteRune(r)
		}
	}
	return strings.Trim(sb.String(), "-")
}
