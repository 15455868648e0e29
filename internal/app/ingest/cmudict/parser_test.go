package cmudict

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDict(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cmudict.dict")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStripStress(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"AH0", "AH"},
		{"AW1", "AW"},
		{"IY2", "IY"},
		{"HH", "HH"},
		{"S", "S"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := stripStress(tt.input); got != tt.want {
				t.Errorf("stripStress(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPhonemesToIPA(t *testing.T) {
	tests := []struct {
		name     string
		phonemes []string
		want     string
	}{
		{"HOUSE", []string{"HH", "AW1", "S"}, "haʊs"},
		{"WORLD", []string{"W", "ER1", "L", "D"}, "wɝld"},
		{"THE", []string{"DH", "AH0"}, "ðʌ"},
		{"unknown passes through lowercased", []string{"HH", "QX1"}, "hqx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := phonemesToIPA(tt.phonemes); got != tt.want {
				t.Errorf("phonemesToIPA(%v) = %q, want %q", tt.phonemes, got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	path := writeDict(t, ";;; header comment\n"+
		"HELLO  HH AH0 L OW1\n"+
		"\n"+
		"CAT  K AE1 T\n")

	result, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if result.Stats.TotalLines != 4 {
		t.Errorf("TotalLines = %d, want 4", result.Stats.TotalLines)
	}
	if result.Stats.CommentLines != 1 {
		t.Errorf("CommentLines = %d, want 1", result.Stats.CommentLines)
	}
	if result.Stats.ParsedLines != 2 {
		t.Errorf("ParsedLines = %d, want 2", result.Stats.ParsedLines)
	}
	if len(result.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(result.Records))
	}

	hello := result.Records[0]
	if hello.Lemma != "hello" {
		t.Errorf("Lemma = %q, want hello (lowercased)", hello.Lemma)
	}
	if hello.ExtraString("orthography") != "HELLO" {
		t.Errorf("orthography = %q, want original casing", hello.ExtraString("orthography"))
	}
	if hello.IPARaw != "hʌloʊ" {
		t.Errorf("IPARaw = %q, want hʌloʊ", hello.IPARaw)
	}
	if hello.IPA != "hʌloʊ" {
		t.Errorf("IPA = %q, want hʌloʊ", hello.IPA)
	}
	if hello.Language != "eng" || hello.Source != "cmudict" {
		t.Errorf("language/source = %q/%q", hello.Language, hello.Source)
	}
	if hello.SourceRef != "cmudict:line:2:HELLO" {
		t.Errorf("SourceRef = %q", hello.SourceRef)
	}
	if len(hello.POS) != 0 {
		t.Errorf("POS = %v, want empty (no POS data in source)", hello.POS)
	}
	if hello.ExtraString("stage") != "Modern" || hello.ExtraString("script") != "Latin" {
		t.Errorf("stage/script = %q/%q", hello.ExtraString("stage"), hello.ExtraString("script"))
	}
}

func TestParseFileNotFound(t *testing.T) {
	if _, err := Parse("/nonexistent/file.dict"); err == nil {
		t.Error("Parse should return error for missing file")
	}
}

func TestParseOnlyComments(t *testing.T) {
	path := writeDict(t, ";;; one\n;;; two\n")

	result, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Records) != 0 {
		t.Errorf("got %d records, want 0", len(result.Records))
	}
	if result.Stats.CommentLines != 2 {
		t.Errorf("CommentLines = %d, want 2", result.Stats.CommentLines)
	}
}
