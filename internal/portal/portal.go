package portal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// DefaultBaseURL is the portal's image download endpoint. A specimen ID
// appended to it yields that specimen's whole-slide image URL.
const DefaultBaseURL = "https://brd.nci.nih.gov/brd/imagedownload/"

var (
	ErrNoTissueColumn = errors.New("portal: no tissue column found")
	ErrNoSexColumn    = errors.New("portal: no sex column found")
	ErrNoIDColumn     = errors.New("portal: no specimen ID column found")
	ErrNoRows         = errors.New("portal: no rows left after filtering")
)

// Options controls how a portal CSV export is filtered.
type Options struct {
	// BaseURL is prepended to each specimen ID. Default: DefaultBaseURL.
	BaseURL string

	// Tissue is a case-insensitive pattern matched against the tissue
	// column. Default: "Mammary|Breast".
	Tissue string

	// Sex filters by donor sex when set ("female" or "male"). Empty
	// keeps every row.
	Sex string

	// Max caps the number of specimen IDs. Zero means all.
	Max int
}

// Prepared holds the filtered rows and the URL list derived from them.
type Prepared struct {
	Header []string
	Rows   [][]string
	IDs    []string
	URLs   []string
}

// PrepareFile reads a portal CSV export from disk and filters it.
func PrepareFile(path string, opts Options) (*Prepared, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Prepare(f, opts)
}

// Prepare filters a portal CSV export down to the requested tissue and
// sex, extracts the specimen IDs, and derives download URLs. Column
// names vary across portal exports, so columns are detected rather
// than fixed.
func Prepare(r io.Reader, opts Options) (*Prepared, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Tissue == "" {
		opts.Tissue = "Mammary|Breast"
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("portal: read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, ErrNoRows
	}
	header, rows := records[0], records[1:]

	tissueIdx := findColumn(header, []string{"Tissue Type", "Tissue"}, tissueColRe)
	if tissueIdx < 0 {
		return nil, ErrNoTissueColumn
	}

	tissueRe, err := regexp.Compile("(?i)" + opts.Tissue)
	if err != nil {
		return nil, fmt.Errorf("portal: tissue pattern: %w", err)
	}
	rows = filterRows(rows, tissueIdx, tissueRe.MatchString)
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	if opts.Sex != "" {
		sexIdx := findColumn(header, []string{"Sex", "Gender"}, sexColRe)
		if sexIdx < 0 {
			return nil, ErrNoSexColumn
		}
		match, err := sexMatcher(opts.Sex)
		if err != nil {
			return nil, err
		}
		rows = filterRows(rows, sexIdx, match)
		if len(rows) == 0 {
			return nil, ErrNoRows
		}
	}

	idIdx := findColumn(header, []string{"Specimen ID", "Tissue Sample ID", "Sample ID", "Sample"}, nil)
	if idIdx < 0 {
		idIdx = sniffIDColumn(rows)
	}
	if idIdx < 0 {
		return nil, ErrNoIDColumn
	}

	ids := extractIDs(rows, idIdx, opts.Max)
	if len(ids) == 0 {
		return nil, ErrNoRows
	}

	urls := make([]string, 0, len(ids))
	for _, id := range ids {
		urls = append(urls, opts.BaseURL+id)
	}

	return &Prepared{Header: header, Rows: rows, IDs: ids, URLs: urls}, nil
}

// WriteURLList writes the derived URLs one per line.
func (p *Prepared) WriteURLList(w io.Writer) error {
	for _, u := range p.URLs {
		if _, err := fmt.Fprintln(w, u); err != nil {
			return err
		}
	}
	return nil
}

// WriteMetadata writes the filtered rows back out as CSV, header first.
func (p *Prepared) WriteMetadata(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(p.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(p.Rows); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

var (
	tissueColRe = regexp.MustCompile(`(?i)^tissue[\s_-]?(type)?$`)
	sexColRe    = regexp.MustCompile(`(?i)^(sex|gender)$`)
	specimenRe  = regexp.MustCompile(`GTEX-[A-Z0-9-]+`)
	idColumnRe  = regexp.MustCompile(`(?i)^GTEX-[A-Z0-9]{4,}-[A-Z0-9]{2,}$`)
	femaleValRe = regexp.MustCompile(`(?i)^(f|female|fem)$`)
	maleValRe   = regexp.MustCompile(`(?i)^(m|male)$`)
)

// findColumn returns the index of the first exact candidate match,
// falling back to the pattern when none of the names are present.
func findColumn(header []string, candidates []string, fallback *regexp.Regexp) int {
	for _, want := range candidates {
		for i, name := range header {
			if name == want {
				return i
			}
		}
	}
	if fallback != nil {
		for i, name := range header {
			if fallback.MatchString(name) {
				return i
			}
		}
	}
	return -1
}

// sniffIDColumn looks for a column whose early values look like
// specimen IDs.
func sniffIDColumn(rows [][]string) int {
	limit := len(rows)
	if limit > 50 {
		limit = 50
	}
	if limit == 0 {
		return -1
	}
	for col := range rows[0] {
		for _, row := range rows[:limit] {
			if col < len(row) && idColumnRe.MatchString(row[col]) {
				return col
			}
		}
	}
	return -1
}

func filterRows(rows [][]string, col int, keep func(string) bool) [][]string {
	var out [][]string
	for _, row := range rows {
		if col < len(row) && keep(strings.TrimSpace(row[col])) {
			out = append(out, row)
		}
	}
	return out
}

func sexMatcher(sex string) (func(string) bool, error) {
	switch strings.ToLower(sex) {
	case "female", "f":
		return femaleValRe.MatchString, nil
	case "male", "m":
		return maleValRe.MatchString, nil
	default:
		return nil, fmt.Errorf("portal: unknown sex filter %q", sex)
	}
}

// extractIDs pulls the specimen ID out of each row's ID cell, dropping
// duplicates while keeping first-seen order.
func extractIDs(rows [][]string, col, max int) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, row := range rows {
		if col >= len(row) {
			continue
		}
		id := specimenRe.FindString(strings.ToUpper(row[col]))
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
		if max > 0 && len(ids) >= max {
			break
		}
	}
	return ids
}
