package airports

import "testing"

func TestSearch(t *testing.T) {
	if got := Search("KTEB"); len(got) != 1 || got[0].ICAO != "KTEB" {
		t.Fatalf("icao prefix search failed: %v", got)
	}
	if got := Search("teb"); len(got) == 0 {
		t.Fatalf("iata prefix search failed")
	}
	got := Search("miami")
	if len(got) != 2 {
		t.Fatalf("expected both Miami airports, got %v", got)
	}
	if got := Search(""); got != nil {
		t.Fatalf("empty query returns nothing, got %v", got)
	}
	if got := Search("zzzz"); got != nil {
		t.Fatalf("no match returns nil, got %v", got)
	}
}

func TestLookup(t *testing.T) {
	a, ok := Lookup("lfpb")
	if !ok || a.City != "Paris" {
		t.Fatalf("case-insensitive lookup failed: %v %v", a, ok)
	}
	if _, ok := Lookup("XXXX"); ok {
		t.Fatalf("unknown code must miss")
	}
}

func TestIsICAOCode(t *testing.T) {
	cases := map[string]bool{
		"KTEB":  true,
		"lfpb":  true,
		"KT3B":  false,
		"TEB":   false,
		"KTEBX": false,
		"":      false,
	}
	for in, want := range cases {
		if got := IsICAOCode(in); got != want {
			t.Fatalf("IsICAOCode(%q) = %v, want %v", in, got, want)
		}
	}
}
