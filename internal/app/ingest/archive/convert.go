// Package archive converts extracted StarDict dictionary packages into
// lexeme records. Pure transformation: package directory in, domain
// structs out. No database dependencies.
package archive

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/heartmarshall/lexicore/internal/domain"
	"github.com/heartmarshall/lexicore/internal/schema"
	"github.com/heartmarshall/lexicore/internal/stardict"
)

const defaultSource = "wiktionary-stardict"

// symbolOnlyRE matches lemmas made entirely of characters outside the
// Latin, Greek, Cyrillic, Hebrew, and Arabic blocks. Such entries are
// punctuation or symbol cruft in the upstream dumps and are dropped.
var symbolOnlyRE = regexp.MustCompile(`^[^A-Za-z\x{0370}-\x{03ff}\x{0400}-\x{04ff}\x{0590}-\x{05ff}\x{0600}-\x{06ff}]+$`)

// posTagRE extracts the part-of-speech label many packages carry as a
// leading italic tag in the gloss.
var posTagRE = regexp.MustCompile(`(?i)<i>([^<]+)</i>`)

// posMap standardizes the free-form POS labels found in glosses.
// Unknown labels pass through lowercased.
var posMap = map[string]string{
	"noun":         "N",
	"n":            "N",
	"proper noun":  "name",
	"name":         "name",
	"verb":         "V",
	"v":            "V",
	"adjective":    "ADJ",
	"adj":          "ADJ",
	"adverb":       "ADV",
	"adv":          "ADV",
	"pronoun":      "PRON",
	"determiner":   "DET",
	"conjunction":  "CONJ",
	"particle":     "PART",
	"interjection": "INTJ",
	"preposition":  "PREP",
	"number":       "NUM",
	"abbreviation": "abbreviation",
	"initialism":   "abbreviation",
}

// langMeta maps package labels (folder name with the stardict suffix
// stripped) to language code, stage, and script.
var langMeta = map[string][3]string{
	"Arabic-English":                 {"ara", "Modern", "Arabic"},
	"Egyptian_Arabic-English":        {"arz", "Modern", "Arabic"},
	"Gulf_Arabic-English":            {"afb", "Modern", "Arabic"},
	"Hijazi_Arabic-English":          {"acw", "Modern", "Arabic"},
	"South_Levantine_Arabic-English": {"apc", "Modern", "Arabic"},
	"Classical_Syriac-English":       {"syc", "Classical", "Syriac"},
	"Aramaic-English":                {"arc", "Classical", "Aramaic"},
	"Assyrian_Neo-Aramaic-English":   {"aii", "Modern", "Syriac"},
	"Ugaritic-English":               {"uga", "Ancient", "Ugaritic"},
	"Akkadian-English":               {"akk", "Ancient", "Cuneiform"},
	"Ge'ez-English":                  {"gez", "Classical", "Ethiopic"},
	"Hebrew-English":                 {"heb", "Modern", "Hebrew"},
	"Latin-English":                  {"lat", "Classical", "Latin"},
	"Ancient_Greek-English":          {"grc", "Classical", "Greek"},
	"Greek-English":                  {"ell", "Modern", "Greek"},
	"Old_English-English":            {"ang", "Old", "Latin"},
	"Middle_English-English":         {"enm", "Middle", "Latin"},
}

const slugSuffix = "_Wiktionary_dictionary_stardict"

// Options controls a single package conversion.
type Options struct {
	// Language overrides the code inferred from the package name.
	Language string
	// Source tag recorded on every record. Defaults to
	// "wiktionary-stardict".
	Source string
	// Limit caps the number of emitted records. 0 means no limit.
	Limit int
}

// Stats holds conversion counters for logging.
type Stats struct {
	TotalEntries     int
	SymbolLemmas     int
	SkippedTruncated int
	Emitted          int
}

// Result holds the converted package data.
type Result struct {
	Records []*domain.Record
	Slug    string
	Stats   Stats
}

// Discover walks root recursively and returns every directory that
// contains a .ifo file, i.e. every StarDict package.
func Discover(root string) ([]string, error) {
	var pkgs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".ifo") {
			pkgs = append(pkgs, filepath.Dir(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover packages under %s: %w", root, err)
	}
	return pkgs, nil
}

// Convert decodes one StarDict package directory into lexeme records.
// Symbol-only lemmas are dropped and counted; entries whose payload
// range is out of bounds are skipped by the decoder and counted.
func Convert(pkgDir string, opts Options) (Result, error) {
	dec, err := stardict.Open(pkgDir)
	if err != nil {
		return Result{}, fmt.Errorf("open package %s: %w", pkgDir, err)
	}

	slug := strings.ReplaceAll(filepath.Base(pkgDir), " ", "_")
	lang, stage, script := inferLangStageScript(slug, opts.Language)

	source := opts.Source
	if source == "" {
		source = defaultSource
	}

	res := Result{Slug: slug}
	for dec.Scan() {
		res.Stats.TotalEntries++

		entry := dec.Entry()
		lemma := strings.TrimSpace(entry.Word)
		if lemma == "" || symbolOnlyRE.MatchString(lemma) {
			res.Stats.SymbolLemmas++
			continue
		}

		gloss := entry.Text()
		rec := &domain.Record{
			Lemma:       lemma,
			Language:    lang,
			Source:      source,
			SourceRef:   slug + ":" + lemma,
			LemmaStatus: domain.StatusAutoBrut,
			GlossHTML:   gloss,
			GlossPlain:  schema.StripHTML(gloss),
			POS:         glossPOS(gloss),
		}
		rec.SetExtra("stage", stage)
		rec.SetExtra("script", script)

		res.Records = append(res.Records, rec)
		res.Stats.Emitted++
		if opts.Limit > 0 && res.Stats.Emitted >= opts.Limit {
			break
		}
	}
	res.Stats.SkippedTruncated = dec.Stats().SkippedTruncated

	return res, nil
}

// glossPOS extracts and standardizes the POS label from the gloss HTML.
// Returns an empty list when no label is found.
func glossPOS(gloss string) []string {
	m := posTagRE.FindStringSubmatch(gloss)
	if m == nil {
		return []string{}
	}
	raw := strings.ToLower(strings.TrimSpace(m[1]))
	if raw == "" {
		return []string{}
	}
	if norm, ok := posMap[raw]; ok {
		return []string{norm}
	}
	return []string{raw}
}

// inferLangStageScript resolves language metadata for a package slug.
// An explicit language override still gets the table's stage and script
// when the label is known; unknown labels fall back to attested/unknown
// so required fields stay filled.
func inferLangStageScript(slug, langOverride string) (string, string, string) {
	label := strings.TrimSuffix(slug, slugSuffix)
	if meta, ok := langMeta[label]; ok {
		lang := meta[0]
		if langOverride != "" {
			lang = langOverride
		}
		return lang, meta[1], meta[2]
	}

	lang := langOverride
	if lang == "" {
		before, _, _ := strings.Cut(slug, "_")
		lang = strings.ToLower(before)
	}
	return lang, "Attested", "Unknown"
}
