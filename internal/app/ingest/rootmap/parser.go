// Package rootmap parses word-to-root CSV maps into lexeme records
// carrying the root field, with a lightweight type classification so
// downstream code can ignore clitics and function words by default.
package rootmap

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/heartmarshall/lexicore/internal/domain"
)

// cliticForms are bare Arabic clitic spellings (prepositions, article,
// conjunctions) that show up as standalone rows in root maps.
var cliticForms = map[string]bool{
	"ب": true, "ل": true, "ك": true, "و": true, "ف": true,
	"س": true, "ال": true,
}

// Options controls parsing of one root map file.
type Options struct {
	Language string
	Stage    string
	Script   string
	// Source tag and source_ref prefix. Defaults to the file base name.
	Source string
	// KeepEmptyRoot keeps rows whose root column is blank. They are
	// still classified, just not dropped.
	KeepEmptyRoot bool
}

// Stats holds parser counters for logging.
type Stats struct {
	TotalRows int
	EmptyRoot int
	Emitted   int
}

// ParseResult holds the parsed root map data.
type ParseResult struct {
	Records []*domain.Record
	Stats   Stats
}

// Parse reads a CSV with a header row and word/root columns. The word
// column may be named "word" or "word_form". Rows with an empty root
// are dropped unless opts.KeepEmptyRoot is set.
func Parse(filePath string, opts Options) (ParseResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return ParseResult{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	opts = withDefaults(opts, filePath)

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return ParseResult{}, fmt.Errorf("read header: %w", err)
	}
	wordCol, rootCol := resolveColumns(header)
	if wordCol == -1 {
		return ParseResult{}, fmt.Errorf("no word/word_form column in %v", header)
	}

	var result ParseResult
	for rowNum := 2; ; rowNum++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ParseResult{}, fmt.Errorf("read row %d: %w", rowNum, err)
		}
		result.Stats.TotalRows++

		word := field(row, wordCol)
		root := strings.TrimSpace(field(row, rootCol))
		if root == "" {
			result.Stats.EmptyRoot++
			if !opts.KeepEmptyRoot {
				continue
			}
		}

		rec := &domain.Record{
			Lemma:       word,
			Root:        root,
			Language:    opts.Language,
			Source:      opts.Source,
			SourceRef:   fmt.Sprintf("%s:row:%d:%s:%s", opts.Source, rowNum, word, root),
			LemmaStatus: domain.StatusAutoBrut,
			POS:         []string{},
		}
		rec.SetExtra("stage", opts.Stage)
		rec.SetExtra("script", opts.Script)
		rec.SetExtra("type", classify(word, root))

		result.Records = append(result.Records, rec)
		result.Stats.Emitted++
	}

	return result, nil
}

func withDefaults(opts Options, filePath string) Options {
	if opts.Language == "" {
		opts.Language = "ara"
	}
	if opts.Stage == "" {
		opts.Stage = "Classical"
	}
	if opts.Script == "" {
		opts.Script = "Arabic"
	}
	if opts.Source == "" {
		base := filePath
		if i := strings.LastIndexByte(base, '/'); i >= 0 {
			base = base[i+1:]
		}
		opts.Source = base
	}
	return opts
}

// resolveColumns finds the word and root column indexes. rootCol may be
// -1; field() then yields "" for every row.
func resolveColumns(header []string) (wordCol, rootCol int) {
	wordCol, rootCol = -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "word", "word_form":
			if wordCol == -1 {
				wordCol = i
			}
		case "root":
			rootCol = i
		}
	}
	return wordCol, rootCol
}

func field(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// classify tags a row: rooted forms are content words, bare clitic
// spellings are clitics, everything else is a function word.
func classify(lemma, root string) string {
	if root != "" {
		return "content_word"
	}
	if cliticForms[stripArabicDiacritics(lemma)] {
		return "clitic"
	}
	return "function_word"
}

// stripArabicDiacritics removes tashkil marks (U+064B..U+065F), the
// superscript alef (U+0670), and tatweel (U+0640).
func stripArabicDiacritics(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 0x064B && r <= 0x065F) || r == 0x0670 || r == 0x0640 {
			return -1
		}
		return r
	}, s)
}
