package merge

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/heartmarshall/lexicore/internal/domain"
)

func jsonl(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func mergeAll(t *testing.T, opts Options, sources []Source) ([]*domain.Canonical, Stats) {
	t.Helper()
	got, stats, err := New(opts).Merge(sources)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	return got, stats
}

func TestMergeTwoSources(t *testing.T) {
	a := jsonl(`{"lemma":"rex","root":"reg","lemma_status":"auto_brut","source":"A"}`)
	b := jsonl(`{"lemma":"rex","root":"reg","translit":"rex","lemma_status":"gold","source":"B"}`)

	got, stats := mergeAll(t, Options{}, []Source{
		{Tag: "A", R: strings.NewReader(a)},
		{Tag: "B", R: strings.NewReader(b)},
	})

	if len(got) != 1 {
		t.Fatalf("merged %d records, want 1", len(got))
	}
	c := got[0]

	if c.LemmaStatus != domain.StatusGold {
		t.Errorf("LemmaStatus = %q, want gold", c.LemmaStatus)
	}
	if c.Translit != "rex" {
		t.Errorf("Translit = %q, want rex", c.Translit)
	}
	if !reflect.DeepEqual(c.Sources, []string{"A", "B"}) {
		t.Errorf("Sources = %v, want [A B]", c.Sources)
	}
	if c.NSources != 2 {
		t.Errorf("NSources = %d, want 2", c.NSources)
	}
	if c.ID == "" {
		t.Error("canonical record has no ID")
	}
	if stats.RowsIn != 2 || stats.RowsOut != 1 {
		t.Errorf("stats = %+v, want RowsIn=2 RowsOut=1", stats)
	}
}

func TestMergeStatusRankingCommutative(t *testing.T) {
	aText := jsonl(`{"lemma":"rex","root":"reg","lemma_status":"silver","definition":"from A"}`)
	bText := jsonl(`{"lemma":"rex","root":"reg","lemma_status":"gold"}`)

	srcA := func() Source { return Source{Tag: "A", R: strings.NewReader(aText)} }
	srcB := func() Source { return Source{Tag: "B", R: strings.NewReader(bText)} }

	ab, _ := mergeAll(t, Options{}, []Source{srcA(), srcB()})
	ba, _ := mergeAll(t, Options{}, []Source{srcB(), srcA()})

	if len(ab) != 1 || len(ba) != 1 {
		t.Fatalf("expected single canonical record in both orders")
	}
	if ab[0].LemmaStatus != domain.StatusGold || ba[0].LemmaStatus != domain.StatusGold {
		t.Errorf("status not order-independent: AB=%q BA=%q", ab[0].LemmaStatus, ba[0].LemmaStatus)
	}
	if !reflect.DeepEqual(ab[0].Sources, ba[0].Sources) {
		t.Errorf("sources differ across orders: %v vs %v", ab[0].Sources, ba[0].Sources)
	}
}

func TestMergeDeterministicOutput(t *testing.T) {
	lines := []string{
		`{"lemma":"beta","root":"b","lemma_status":"auto","pos":["noun"]}`,
		`{"lemma":"alpha","root":"a","lemma_status":"gold"}`,
		`{"lemma":"alpha","root":"a","translit":"alpha"}`,
	}

	run := func(order []string) string {
		got, _ := mergeAll(t, Options{}, []Source{
			{Tag: "src", R: strings.NewReader(jsonl(order...))},
		})
		var b strings.Builder
		for _, c := range got {
			data, err := json.Marshal(c)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			b.Write(data)
			b.WriteByte('\n')
		}
		return b.String()
	}

	first := run(lines)
	second := run(lines)
	if first != second {
		t.Errorf("two identical runs produced different output:\n%s\nvs\n%s", first, second)
	}

	// Output is sorted by key regardless of input order.
	if !strings.Contains(strings.Split(first, "\n")[0], `"alpha"`) {
		t.Errorf("output not sorted by key:\n%s", first)
	}
}

func TestMergeEmptyLemmaDropped(t *testing.T) {
	src := jsonl(
		`{"lemma":"  ","root":"x"}`,
		`{"lemma":"","root":"y"}`,
		`{"lemma":"ok","root":"z"}`,
	)

	got, stats := mergeAll(t, Options{}, []Source{{Tag: "A", R: strings.NewReader(src)}})

	if len(got) != 1 || got[0].Lemma != "ok" {
		t.Fatalf("merged %v, want only the ok record", got)
	}
	if stats.EmptyLemma != 2 {
		t.Errorf("EmptyLemma = %d, want 2", stats.EmptyLemma)
	}
}

func TestMergeMalformedLines(t *testing.T) {
	src := jsonl(
		`{"lemma":"good","root":"g"}`,
		`{not json`,
		`{"lemma":"fine","root":"f"}`,
	)

	t.Run("default mode counts and skips", func(t *testing.T) {
		got, stats := mergeAll(t, Options{}, []Source{{Tag: "A", R: strings.NewReader(src)}})
		if len(got) != 2 {
			t.Errorf("merged %d records, want 2", len(got))
		}
		if stats.Malformed != 1 {
			t.Errorf("Malformed = %d, want 1", stats.Malformed)
		}
	})

	t.Run("strict mode fails the run", func(t *testing.T) {
		_, _, err := New(Options{Strict: true}).Merge([]Source{{Tag: "A", R: strings.NewReader(src)}})
		if err == nil {
			t.Fatal("expected error in strict mode")
		}
		var mre *MalformedRecordError
		if !errors.As(err, &mre) {
			t.Fatalf("error = %v, want MalformedRecordError", err)
		}
		if mre.Source != "A" || mre.Line != 2 {
			t.Errorf("error location = %s:%d, want A:2", mre.Source, mre.Line)
		}
	})
}

func TestMergePOSUnionOrder(t *testing.T) {
	src := jsonl(
		`{"lemma":"run","root":"","pos":["verb"]}`,
		`{"lemma":"run","root":"","pos":["noun","verb"]}`,
		`{"lemma":"run","root":"","pos":"adjective"}`,
	)

	got, _ := mergeAll(t, Options{}, []Source{{Tag: "A", R: strings.NewReader(src)}})

	if len(got) != 1 {
		t.Fatalf("merged %d records, want 1", len(got))
	}
	want := []string{"verb", "noun", "adjective"}
	if !reflect.DeepEqual(got[0].POS, want) {
		t.Errorf("POS = %v, want first-seen order %v", got[0].POS, want)
	}
}

func TestMergeSourceTagOncePerStream(t *testing.T) {
	src := jsonl(
		`{"lemma":"rex","root":"reg"}`,
		`{"lemma":"rex","root":"reg"}`,
		`{"lemma":"rex","root":"reg"}`,
	)

	got, _ := mergeAll(t, Options{}, []Source{{Tag: "A", R: strings.NewReader(src)}})

	if len(got) != 1 {
		t.Fatalf("merged %d records, want 1", len(got))
	}
	if !reflect.DeepEqual(got[0].Sources, []string{"A"}) {
		t.Errorf("Sources = %v, want single A despite repeated rows", got[0].Sources)
	}
	if got[0].NSources != 1 {
		t.Errorf("NSources = %d, want 1", got[0].NSources)
	}
}

func TestMergeScalarFirstWinsUnlessEmpty(t *testing.T) {
	src := jsonl(
		`{"lemma":"rex","root":"reg","translit":"rex-1","variant":"classical"}`,
		`{"lemma":"rex","root":"reg","translit":"rex-2","variant":"late","region":"gaul"}`,
	)

	got, _ := mergeAll(t, Options{}, []Source{{Tag: "A", R: strings.NewReader(src)}})

	c := got[0]
	if c.Translit != "rex-1" {
		t.Errorf("Translit = %q, want first-seen rex-1", c.Translit)
	}
	if v := c.ExtraString("variant"); v != "classical" {
		t.Errorf("variant = %q, want first-seen classical", v)
	}
	// Absent on the first record: filled from the second.
	if v := c.ExtraString("region"); v != "gaul" {
		t.Errorf("region = %q, want gaul", v)
	}
}

func TestMergeDeclaredListFields(t *testing.T) {
	src := jsonl(
		`{"lemma":"rex","root":"reg","forms":["rex","regis"]}`,
		`{"lemma":"rex","root":"reg","forms":["regis","regi"]}`,
	)

	got, _ := mergeAll(t, Options{ListFields: []string{"forms"}}, []Source{
		{Tag: "A", R: strings.NewReader(src)},
	})

	forms, ok := got[0].Extra["forms"].([]any)
	if !ok {
		t.Fatalf("forms = %T, want []any", got[0].Extra["forms"])
	}
	want := []any{"rex", "regis", "regi"}
	if !reflect.DeepEqual(forms, want) {
		t.Errorf("forms = %v, want union %v", forms, want)
	}
}

func TestMergeDeclaredListFieldSingleSighting(t *testing.T) {
	src := jsonl(`{"lemma":"rex","root":"reg","variant":"us"}`)

	got, _ := mergeAll(t, Options{ListFields: []string{"variant"}}, []Source{
		{Tag: "A", R: strings.NewReader(src)},
	})

	// A declared list field is a list even when seen on exactly one record.
	variant, ok := got[0].Extra["variant"].([]any)
	if !ok {
		t.Fatalf("variant = %T (%v), want []any", got[0].Extra["variant"], got[0].Extra["variant"])
	}
	if !reflect.DeepEqual(variant, []any{"us"}) {
		t.Errorf("variant = %v, want [us]", variant)
	}
}

func TestMergeDeclaredListFieldSeedDuplicates(t *testing.T) {
	src := jsonl(`{"lemma":"rex","root":"reg","variant":["us","us","regis"]}`)

	got, _ := mergeAll(t, Options{ListFields: []string{"variant"}}, []Source{
		{Tag: "A", R: strings.NewReader(src)},
	})

	variant, ok := got[0].Extra["variant"].([]any)
	if !ok {
		t.Fatalf("variant = %T, want []any", got[0].Extra["variant"])
	}
	if !reflect.DeepEqual(variant, []any{"us", "regis"}) {
		t.Errorf("variant = %v, want seed duplicates collapsed to [us regis]", variant)
	}
}

func TestMergeCollectSourceRefs(t *testing.T) {
	a := jsonl(`{"lemma":"rex","root":"reg","source_ref":"pkgA:rex"}`)
	b := jsonl(`{"lemma":"rex","root":"reg","source_ref":"pkgB:rex"}`)

	got, _ := mergeAll(t, Options{CollectSourceRefs: true}, []Source{
		{Tag: "A", R: strings.NewReader(a)},
		{Tag: "B", R: strings.NewReader(b)},
	})

	refs, ok := got[0].Extra["source_refs"].([]any)
	if !ok {
		t.Fatalf("source_refs = %T, want []any", got[0].Extra["source_refs"])
	}
	if !reflect.DeepEqual(refs, []any{"pkgA:rex", "pkgB:rex"}) {
		t.Errorf("source_refs = %v", refs)
	}
}

func TestMergeDistinctKeysStaySeparate(t *testing.T) {
	src := jsonl(
		`{"lemma":"rex","root":"reg"}`,
		`{"lemma":"rex","root":""}`,
	)

	got, _ := mergeAll(t, Options{}, []Source{{Tag: "A", R: strings.NewReader(src)}})
	if len(got) != 2 {
		t.Errorf("merged %d records, want 2 (different roots, different keys)", len(got))
	}
}

func TestMergeRootKeyCaseInsensitive(t *testing.T) {
	src := jsonl(
		`{"lemma":"rex","root":"Reg","translit":"rex"}`,
		`{"lemma":"rex","root":" reg "}`,
	)

	got, _ := mergeAll(t, Options{}, []Source{{Tag: "A", R: strings.NewReader(src)}})

	if len(got) != 1 {
		t.Fatalf("merged %d records, want 1 (roots differ only in case/whitespace)", len(got))
	}
	// The stored root keeps its first-seen form.
	if got[0].Root != "Reg" {
		t.Errorf("Root = %q, want first-seen Reg", got[0].Root)
	}
}
