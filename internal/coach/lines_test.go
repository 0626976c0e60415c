package coach

import "testing"

func TestPoolLine_AllCategoriesBothLanguages(t *testing.T) {
	t.Parallel()

	for _, lang := range []string{"zh", "en"} {
		for _, cat := range Categories {
			if line := PoolLine(cat, lang); line == "" {
				t.Errorf("PoolLine(%q, %q) = empty", cat, lang)
			}
		}
	}
}

func TestPoolLine_UnknownLanguageFallsBack(t *testing.T) {
	t.Parallel()

	if line := PoolLine(CategoryDeath, "fr"); line == "" {
		t.Error("PoolLine with unknown language returned empty, want English fallback")
	}
}

func TestPoolLine_UnknownCategory(t *testing.T) {
	t.Parallel()

	if line := PoolLine(Category("NOPE"), "en"); line != "" {
		t.Errorf("PoolLine with unknown category = %q, want empty", line)
	}
}

func TestPoolLines_CoversEveryCategory(t *testing.T) {
	t.Parallel()

	lines := PoolLines("zh")
	if len(lines) == 0 {
		t.Fatal("PoolLines(zh) returned no lines")
	}
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l == "" {
			t.Error("PoolLines contains an empty line")
		}
		seen[l] = struct{}{}
	}
	if len(seen) != len(lines) {
		t.Errorf("PoolLines contains duplicates: %d unique of %d", len(seen), len(lines))
	}
}

func TestCategory_IsValid(t *testing.T) {
	t.Parallel()

	for _, cat := range Categories {
		if !cat.IsValid() {
			t.Errorf("%q.IsValid() = false", cat)
		}
	}
	if Category("BOGUS").IsValid() {
		t.Error(`Category("BOGUS").IsValid() = true`)
	}
}
