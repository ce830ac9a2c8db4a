package logic

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "Hack The Valley", "hack-the-valley"},
		{"punctuation collapsed", "AI/ML: Workshop!! 2026", "ai-ml-workshop-2026"},
		{"leading and trailing junk", "  --Design Sprint--  ", "design-sprint"},
		{"already clean", "codefest", "codefest"},
		{"unicode dropped", "Café Début Night", "caf-d-but-night"},
		{"empty", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slugify(tt.title); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestSlugifyCapsLength(t *testing.T) {
	long := strings.Repeat("a", 200) + " tail"
	got := Slugify(long)
	if len(got) > 110 {
		t.Errorf("slug length = %d, want <= 110", len(got))
	}
	if strings.HasSuffix(got, "-") {
		t.Errorf("capped slug %q ends with a dash", got)
	}
}

func TestSlugCandidate(t *testing.T) {
	if got := SlugCandidate("hackathon", 1); got != "hackathon" {
		t.Errorf("candidate 1 = %q, want base", got)
	}
	if got := SlugCandidate("hackathon", 2); got != "hackathon-2" {
		t.Errorf("candidate 2 = %q, want hackathon-2", got)
	}
	if got := SlugCandidate("hackathon", 7); got != "hackathon-7" {
		t.Errorf("candidate 7 = %q, want hackathon-7", got)
	}
}

func TestEventCode(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{1, "EVT001"},
		{101, "EVT101"},
		{999, "EVT999"},
		{1000, "EVT1000"},
	}
	for _, tt := range tests {
		if got := EventCode(tt.n); got != tt.want {
			t.Errorf("EventCode(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestMintCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := MintCode()
		if err != nil {
			t.Fatalf("MintCode: %v", err)
		}
		if len(code) != 5 {
			t.Fatalf("code %q has length %d, want 5", code, len(code))
		}
		for _, c := range code {
			if !strings.ContainsRune(codeAlphabet, c) {
				t.Fatalf("code %q contains %q outside the alphabet", code, c)
			}
		}
		seen[code] = true
	}
	// 50 draws from 36^5 colliding entirely would mean a broken RNG.
	if len(seen) < 2 {
		t.Error("expected some variety across minted codes")
	}
}

func TestProfileNameSeed(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Arjun Kumar", "arjun_kumar"},
		{"symbols stripped", "J.R. D'Souza!", "jr_dsouza"},
		{"underscores squashed", "a__b___c", "a_b_c"},
		{"too short", "Xu", "user"},
		{"empty", "", "user"},
		{"digits kept", "Neo 42", "neo_42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProfileNameSeed(tt.in); got != tt.want {
				t.Errorf("ProfileNameSeed(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestProfileNameCandidate(t *testing.T) {
	got, err := ProfileNameCandidate("arjun_kumar")
	if err != nil {
		t.Fatalf("ProfileNameCandidate: %v", err)
	}
	if !strings.HasPrefix(got, "arjun_kumar") {
		t.Errorf("candidate %q does not keep the seed prefix", got)
	}
	suffix := strings.TrimPrefix(got, "arjun_kumar")
	if len(suffix) != 5 {
		t.Errorf("suffix %q has length %d, want 5", suffix, len(suffix))
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			t.Errorf("suffix %q contains non-digit %q", suffix, c)
		}
	}
}
