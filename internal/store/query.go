package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/ppiankov/papersift/internal/model"
)

const defaultSearchLimit = 20

var rowColumns = []string{
	"id", "source_file", "title", "authors", "year_published", "journal",
	"primary_category", "key_takeaways", "word_count", "processed_at",
}

// Search returns documents matching every non-zero filter of q, newest first
func (s *Store) Search(ctx context.Context, q model.SearchQuery) ([]model.DocumentRow, error) {
	sel := s.sb.Select(rowColumns...).From("documents")

	if text := strings.TrimSpace(q.Text); text != "" {
		sel = sel.Where(sq.Or{
			s.d.textSearch(text),
			sq.Expr("EXISTS (SELECT 1 FROM keywords k WHERE k.document_id = documents.id AND k.keyword = ?)", strings.ToLower(text)),
		})
	}
	if q.Category != "" {
		sel = sel.Where(sq.Eq{"primary_category": q.Category})
	}
	if q.YearFrom > 0 {
		sel = sel.Where(sq.GtOrEq{"year_published": q.YearFrom})
	}
	if q.YearTo > 0 {
		sel = sel.Where(sq.LtOrEq{"year_published": q.YearTo})
	}
	if q.Author != "" {
		sel = sel.Where(s.d.like("authors", "%"+q.Author+"%"))
	}
	if q.Journal != "" {
		sel = sel.Where(s.d.like("journal", "%"+q.Journal+"%"))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	sel = sel.OrderBy("processed_at DESC", "id DESC").Limit(uint64(limit))

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var result []model.DocumentRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	rows.Close()

	if err := s.attachKeywords(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns one document by id with all dependent rows
func (s *Store) Get(ctx context.Context, id int64) (*model.StoredDocument, error) {
	return s.get(ctx, sq.Eq{"id": id})
}

// GetBySource returns one document by source file with all dependent rows
func (s *Store) GetBySource(ctx context.Context, sourceFile string) (*model.StoredDocument, error) {
	return s.get(ctx, sq.Eq{"source_file": sourceFile})
}

func (s *Store) get(ctx context.Context, where sq.Sqlizer) (*model.StoredDocument, error) {
	cols := append(append([]string{}, rowColumns...),
		"base_filename", "pdf_title", "pdf_author", "pdf_pages", "bibtex_citation",
		"document_type", "sample_size", "method", "prediction_model", "parse_degraded",
		"created_at", "updated_at")

	query, args, err := s.sb.Select(cols...).From("documents").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get: %w", err)
	}

	var doc model.StoredDocument
	var year sql.NullInt64
	var processedAt string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&doc.ID, &doc.SourceFile, &doc.Title, &doc.Authors, &year, &doc.Journal,
		&doc.PrimaryCategory, &doc.KeyTakeaways, &doc.WordCount, &processedAt,
		&doc.BaseFilename, &doc.PDFTitle, &doc.PDFAuthor, &doc.PDFPages, &doc.BibTeX,
		&doc.DocumentType, &doc.SampleSize, &doc.Method, &doc.PredictionModel, &doc.ParseDegraded,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	doc.Year = nullInt(year)
	doc.ProcessedAt = parseTime(processedAt)

	rows := []model.DocumentRow{doc.DocumentRow}
	if err := s.attachKeywords(ctx, rows); err != nil {
		return nil, err
	}
	doc.Keywords = rows[0].Keywords

	if doc.KeyFindings, err = s.findings(ctx, doc.ID); err != nil {
		return nil, err
	}
	if doc.CategoryScores, err = s.scores(ctx, doc.ID); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Stats summarizes the store contents
func (s *Store) Stats(ctx context.Context) (*model.Stats, error) {
	var st model.Stats

	for _, c := range []struct {
		table string
		where sq.Sqlizer
		dst   *int
	}{
		{"documents", nil, &st.TotalDocuments},
		{"keywords", nil, &st.TotalKeywords},
		{"documents", sq.Eq{"parse_degraded": true}, &st.Degraded},
	} {
		sel := s.sb.Select("COUNT(*)").From(c.table)
		if c.where != nil {
			sel = sel.Where(c.where)
		}
		query, args, err := sel.ToSql()
		if err != nil {
			return nil, err
		}
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.table, err)
		}
	}

	var err error
	st.ByCategory, err = s.counts(ctx, s.sb.Select("primary_category", "COUNT(*)").From("documents").
		GroupBy("primary_category").OrderBy("COUNT(*) DESC", "primary_category"))
	if err != nil {
		return nil, err
	}
	st.ByYear, err = s.counts(ctx, s.sb.Select("CAST(year_published AS TEXT)", "COUNT(*)").From("documents").
		Where(sq.NotEq{"year_published": nil}).GroupBy("year_published").OrderBy("year_published DESC"))
	if err != nil {
		return nil, err
	}
	st.TopJournals, err = s.counts(ctx, s.sb.Select("journal", "COUNT(*)").From("documents").
		Where(sq.And{sq.NotEq{"journal": model.Unknown}, sq.NotEq{"journal": ""}}).
		GroupBy("journal").OrderBy("COUNT(*) DESC", "journal").Limit(10))
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// OverviewRow is one row of the document_overview view
type OverviewRow struct {
	ID              int64
	SourceFile      string
	Title           string
	Authors         string
	Year            *int
	Journal         string
	PrimaryCategory string
	Keywords        string
	CategoryScores  string
}

// Overview reads the aggregated per-document view, newest id first
func (s *Store) Overview(ctx context.Context, limit int) ([]OverviewRow, error) {
	sel := s.sb.Select("id", "source_file", "title", "authors", "year_published", "journal",
		"primary_category", "keywords", "category_scores").
		From("document_overview").OrderBy("id DESC")
	if limit > 0 {
		sel = sel.Limit(uint64(limit))
	}
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query overview: %w", err)
	}
	defer rows.Close()

	var result []OverviewRow
	for rows.Next() {
		var r OverviewRow
		var year sql.NullInt64
		if err := rows.Scan(&r.ID, &r.SourceFile, &r.Title, &r.Authors, &year, &r.Journal,
			&r.PrimaryCategory, &r.Keywords, &r.CategoryScores); err != nil {
			return nil, fmt.Errorf("scan overview: %w", err)
		}
		r.Year = nullInt(year)
		result = append(result, r)
	}
	return result, rows.Err()
}

// Counts returns the number of rows in each table, used to check for leftovers
func (s *Store) Counts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, 4)
	for _, table := range []string{"documents", "keywords", "key_findings", "category_scores"} {
		query, args, err := s.sb.Select("COUNT(*)").From(table).ToSql()
		if err != nil {
			return nil, err
		}
		var n int
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

func (s *Store) counts(ctx context.Context, sel sq.SelectBuilder) ([]model.Count, error) {
	query, args, err := sel.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	var result []model.Count
	for rows.Next() {
		var c model.Count
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// attachKeywords loads keywords for rows with one query, keeping stored order
func (s *Store) attachKeywords(ctx context.Context, rows []model.DocumentRow) error {
	if len(rows) == 0 {
		return nil
	}
	ids := make([]int64, len(rows))
	index := make(map[int64]int, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
		index[r.ID] = i
		rows[i].Keywords = []string{}
	}

	query, args, err := s.sb.Select("document_id", "keyword").From("keywords").
		Where(sq.Eq{"document_id": ids}).OrderBy("document_id", "id").ToSql()
	if err != nil {
		return err
	}
	result, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query keywords: %w", err)
	}
	defer result.Close()

	for result.Next() {
		var id int64
		var kw string
		if err := result.Scan(&id, &kw); err != nil {
			return fmt.Errorf("scan keyword: %w", err)
		}
		if i, ok := index[id]; ok {
			rows[i].Keywords = append(rows[i].Keywords, kw)
		}
	}
	return result.Err()
}

func (s *Store) findings(ctx context.Context, id int64) (model.KeyFindings, error) {
	query, args, err := s.sb.Select("finding_name", "finding_description").From("key_findings").
		Where(sq.Eq{"document_id": id}).OrderBy("id").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query key findings: %w", err)
	}
	defer rows.Close()

	findings := model.KeyFindings{}
	for rows.Next() {
		var f model.Finding
		if err := rows.Scan(&f.Name, &f.Description); err != nil {
			return nil, fmt.Errorf("scan key finding: %w", err)
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

func (s *Store) scores(ctx context.Context, id int64) ([]model.CategoryScore, error) {
	query, args, err := s.sb.Select("category", "score").From("category_scores").
		Where(sq.Eq{"document_id": id}).OrderBy("score DESC", "category").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query category scores: %w", err)
	}
	defer rows.Close()

	var scores []model.CategoryScore
	for rows.Next() {
		var c model.CategoryScore
		if err := rows.Scan(&c.Category, &c.Score); err != nil {
			return nil, fmt.Errorf("scan category score: %w", err)
		}
		scores = append(scores, c)
	}
	return scores, rows.Err()
}

func scanRow(rows *sql.Rows) (model.DocumentRow, error) {
	var r model.DocumentRow
	var year sql.NullInt64
	var processedAt string
	if err := rows.Scan(&r.ID, &r.SourceFile, &r.Title, &r.Authors, &year, &r.Journal,
		&r.PrimaryCategory, &r.KeyTakeaways, &r.WordCount, &processedAt); err != nil {
		return r, fmt.Errorf("scan document: %w", err)
	}
	r.Year = nullInt(year)
	r.ProcessedAt = parseTime(processedAt)
	return r, nil
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
