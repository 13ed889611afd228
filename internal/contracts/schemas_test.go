package contracts

import (
	"sort"
	"testing"
)

func TestAllContractsCompile(t *testing.T) {
	keys, err := Registered()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sort.Strings(keys)
	want := []string{
		"filter-schema/1.0.0",
		"filters-changed/1.0.0",
		"filters-saved/1.0.0",
		"listing-published/1.0.0",
		"saved-filters/1.0.0",
	}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}

func TestSavedFiltersContract(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"all kinds", `{"make":["Audi","BMW"],"price":{"min":1000,"max":null},"location":"Cluj","fuel":null}`, false},
		{"empty", `{}`, false},
		{"duplicate options", `{"make":["BMW","BMW"]}`, true},
		{"unknown range field", `{"price":{"from":1}}`, true},
		{"bad key", `{"Make":["BMW"]}`, true},
		{"number value", `{"location":5}`, true},
	}
	for _, tt := range tests {
		err := Validate(SavedFilters, "1.0.0", []byte(tt.body))
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestFiltersChangedReferencesSavedFilters(t *testing.T) {
	ok := `{"page_id":"7f1c1a52-0a4e-4a43-9a3b-2b1b5b0f2f10","category":"automotive","active":{"make":["BMW"]},"matched":1,"total":3,"occurred_at":"2026-01-02T15:04:05Z"}`
	if err := Validate(FiltersChanged, "1.0.0", []byte(ok)); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}
	bad := `{"page_id":"not-a-uuid","category":"automotive","active":{"make":"x"},"matched":1,"total":3,"occurred_at":"2026-01-02T15:04:05Z"}`
	if err := Validate(FiltersChanged, "1.0.0", []byte(bad)); err == nil {
		t.Fatalf("invalid page_id accepted")
	}
}

func TestUnknownContract(t *testing.T) {
	if err := Validate("nope", "1.0.0", []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown contract")
	}
	if err := Validate(SavedFilters, "1.0.0", []byte(`{`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
