package store

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/ppiankov/papersift/internal/model"
)

// dialect carries the SQL differences between the supported drivers
type dialect struct {
	name        string // Config name
	driver      string // database/sql driver name
	placeholder sq.PlaceholderFormat
	schema      []string
	like        func(column, pattern string) sq.Sqlizer
	textSearch  func(query string) sq.Sqlizer
}

func dialectFor(name string) (dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "":
		return postgresDialect, nil
	case "sqlite", "sqlite3":
		return sqliteDialect, nil
	default:
		return dialect{}, &model.ConfigurationError{
			Option: "database.driver",
			Reason: fmt.Sprintf("unsupported driver %q (use postgres or sqlite)", name),
		}
	}
}

// documentColumns is shared between dialects; only the id column differs
const documentColumns = `
	source_file TEXT NOT NULL UNIQUE,
	processed_at TEXT NOT NULL,
	base_filename TEXT NOT NULL DEFAULT '',
	pdf_title TEXT NOT NULL DEFAULT '',
	pdf_author TEXT NOT NULL DEFAULT '',
	pdf_pages INTEGER NOT NULL DEFAULT 0,
	title TEXT NOT NULL DEFAULT '',
	authors TEXT NOT NULL DEFAULT '',
	year_published INTEGER,
	journal TEXT NOT NULL DEFAULT '',
	bibtex_citation TEXT NOT NULL DEFAULT '',
	document_type TEXT NOT NULL DEFAULT '',
	sample_size TEXT NOT NULL DEFAULT '',
	method TEXT NOT NULL DEFAULT '',
	prediction_model BOOLEAN NOT NULL DEFAULT FALSE,
	key_takeaways TEXT NOT NULL DEFAULT '',
	word_count INTEGER NOT NULL DEFAULT 0,
	primary_category TEXT NOT NULL DEFAULT '',
	categories_json TEXT NOT NULL DEFAULT '{}',
	key_findings_json TEXT NOT NULL DEFAULT '{}',
	parse_degraded BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL`

var commonIndexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_documents_primary_category ON documents(primary_category)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_year ON documents(year_published)`,
	`CREATE INDEX IF NOT EXISTS idx_keywords_document ON keywords(document_id)`,
	`CREATE INDEX IF NOT EXISTS idx_keywords_keyword ON keywords(keyword)`,
	`CREATE INDEX IF NOT EXISTS idx_key_findings_document ON key_findings(document_id)`,
	`CREATE INDEX IF NOT EXISTS idx_category_scores_document ON category_scores(document_id)`,
	`CREATE INDEX IF NOT EXISTS idx_category_scores_category ON category_scores(category, score)`,
}

var postgresDialect = dialect{
	name:        "postgres",
	driver:      "postgres",
	placeholder: sq.Dollar,
	schema: append([]string{
		`CREATE TABLE IF NOT EXISTS documents (
			id SERIAL PRIMARY KEY,` + documentColumns + `
		)`,
		`CREATE TABLE IF NOT EXISTS keywords (
			id SERIAL PRIMARY KEY,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			keyword TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS key_findings (
			id SERIAL PRIMARY KEY,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			finding_name TEXT NOT NULL,
			finding_description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS category_scores (
			id SERIAL PRIMARY KEY,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			category TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL CHECK (score >= 0 AND score <= 1)
		)`,
		`CREATE OR REPLACE VIEW document_overview AS
		SELECT d.id, d.source_file, d.title, d.authors, d.year_published, d.journal, d.primary_category,
			COALESCE((SELECT string_agg(k.keyword, ', ' ORDER BY k.id) FROM keywords k WHERE k.document_id = d.id), '') AS keywords,
			COALESCE((SELECT string_agg(c.category || ':' || to_char(c.score, 'FM0.000'), ', ' ORDER BY c.score DESC, c.category)
				FROM category_scores c WHERE c.document_id = d.id AND c.score > 0), '') AS category_scores
		FROM documents d`,
	}, commonIndexes...),
	like: func(column, pattern string) sq.Sqlizer {
		return sq.ILike{column: pattern}
	},
	textSearch: func(query string) sq.Sqlizer {
		return sq.Expr(`to_tsvector('english', title || ' ' || key_takeaways || ' ' || method) @@ plainto_tsquery('english', ?)`, query)
	},
}

var sqliteDialect = dialect{
	name:        "sqlite",
	driver:      "sqlite",
	placeholder: sq.Question,
	schema: append([]string{
		`CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,` + documentColumns + `
		)`,
		`CREATE TABLE IF NOT EXISTS keywords (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			keyword TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS key_findings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			finding_name TEXT NOT NULL,
			finding_description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS category_scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			category TEXT NOT NULL,
			score REAL NOT NULL CHECK (score >= 0 AND score <= 1)
		)`,
		`CREATE VIEW IF NOT EXISTS document_overview AS
		SELECT d.id, d.source_file, d.title, d.authors, d.year_published, d.journal, d.primary_category,
			COALESCE((SELECT group_concat(k.keyword, ', ' ORDER BY k.id) FROM keywords k WHERE k.document_id = d.id), '') AS keywords,
			COALESCE((SELECT group_concat(c.category || ':' || printf('%.3f', c.score), ', ' ORDER BY c.score DESC, c.category)
				FROM category_scores c WHERE c.document_id = d.id AND c.score > 0), '') AS category_scores
		FROM documents d`,
	}, commonIndexes...),
	like: func(column, pattern string) sq.Sqlizer {
		// LIKE is case-insensitive for ASCII in SQLite
		return sq.Like{column: pattern}
	},
	textSearch: func(query string) sq.Sqlizer {
		pattern := "%" + query + "%"
		return sq.Or{
			sq.Like{"title": pattern},
			sq.Like{"key_takeaways": pattern},
			sq.Like{"method": pattern},
		}
	},
}
