package summarize

import (
	"fmt"
	"strings"

	"github.com/ppiankov/papersift/internal/model"
	"github.com/ppiankov/papersift/internal/naming"
)

// BibTeX synthesizes a citation entry from the summary fields
func BibTeX(s *model.StructuredSummary) string {
	key := "unknown"
	if len(s.Authors) > 0 {
		if surname := naming.Sanitize(naming.Surname(s.Authors[0])); surname != "" {
			key = surname
		}
	}
	if s.Year != nil {
		key += fmt.Sprint(*s.Year)
	}

	entry := "misc"
	if known(s.Journal) {
		entry = "article"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "@%s{%s,\n", entry, key)
	fields := [][2]string{
		{"title", s.Title},
		{"author", strings.Join(s.Authors, " and ")},
		{"journal", s.Journal},
	}
	if s.Year != nil {
		fields = append(fields, [2]string{"year", fmt.Sprint(*s.Year)})
	}
	var lines []string
	for _, f := range fields {
		if known(f[1]) {
			lines = append(lines, fmt.Sprintf("  %s = {%s}", f[0], bibEscape(f[1])))
		}
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n}")
	return b.String()
}

func known(s string) bool {
	s = strings.TrimSpace(s)
	return s != "" && !strings.EqualFold(s, model.Unknown) && !strings.EqualFold(s, "not specified")
}

func bibEscape(s string) string {
	return strings.NewReplacer("{", "", "}", "").Replace(strings.TrimSpace(s))
}
