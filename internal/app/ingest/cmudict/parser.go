// Package cmudict parses CMU Pronouncing Dictionary files into English
// lexeme records with IPA transcriptions. Pure function: file path in,
// domain structs out.
package cmudict

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/heartmarshall/lexicore/internal/domain"
	"github.com/heartmarshall/lexicore/internal/schema"
)

const sourceSlug = "cmudict"

// arpabetMap maps ARPAbet phonemes (without stress markers) to IPA.
var arpabetMap = map[string]string{
	"AA": "ɑ", "AE": "æ", "AH": "ʌ", "AO": "ɔ", "AW": "aʊ", "AY": "aɪ",
	"B": "b", "CH": "tʃ", "D": "d", "DH": "ð", "EH": "ɛ", "ER": "ɝ",
	"EY": "eɪ", "F": "f", "G": "ɡ", "HH": "h", "IH": "ɪ", "IY": "i",
	"JH": "dʒ", "K": "k", "L": "l", "M": "m", "N": "n", "NG": "ŋ",
	"OW": "oʊ", "OY": "ɔɪ", "P": "p", "R": "ɹ", "S": "s", "SH": "ʃ",
	"T": "t", "TH": "θ", "UH": "ʊ", "UW": "u", "V": "v", "W": "w",
	"Y": "j", "Z": "z", "ZH": "ʒ",
}

// Stats holds parser counters for logging.
type Stats struct {
	TotalLines   int
	CommentLines int
	ParsedLines  int
}

// ParseResult holds the parsed dictionary data.
type ParseResult struct {
	Records []*domain.Record
	Stats   Stats
}

// Parse reads a CMU dict file and returns one record per entry line.
// Comment lines (leading ';') and lines without phonemes are skipped.
func Parse(filePath string) (ParseResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return ParseResult{}, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	var result ParseResult
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		result.Stats.TotalLines++
		line := scanner.Text()

		if strings.HasPrefix(line, ";") {
			result.Stats.CommentLines++
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		word := parts[0]
		ipa := phonemesToIPA(parts[1:])

		rec := &domain.Record{
			Lemma:       strings.ToLower(word),
			Language:    "eng",
			Source:      sourceSlug,
			SourceRef:   fmt.Sprintf("%s:line:%d:%s", sourceSlug, result.Stats.TotalLines, word),
			LemmaStatus: domain.StatusAutoBrut,
			IPARaw:      ipa,
			IPA:         schema.NormalizeIPA(ipa),
			POS:         []string{},
		}
		rec.SetExtra("orthography", word)
		rec.SetExtra("stage", "Modern")
		rec.SetExtra("script", "Latin")

		result.Records = append(result.Records, rec)
		result.Stats.ParsedLines++
	}
	if err := scanner.Err(); err != nil {
		return ParseResult{}, fmt.Errorf("scanner error: %w", err)
	}

	return result, nil
}

// phonemesToIPA converts a phoneme sequence to a single IPA string.
// Unknown phonemes pass through lowercased rather than being dropped,
// so odd dialect markers stay visible downstream.
func phonemesToIPA(phonemes []string) string {
	var b strings.Builder
	for _, p := range phonemes {
		base := stripStress(p)
		if ipa, ok := arpabetMap[base]; ok {
			b.WriteString(ipa)
		} else {
			b.WriteString(strings.ToLower(base))
		}
	}
	return b.String()
}

// stripStress removes trailing stress digits from an ARPAbet phoneme.
func stripStress(phoneme string) string {
	return strings.TrimRight(phoneme, "012345")
}
