package rules

import "testing"

func TestIsNonZero(t *testing.T) {
	ptr := func(n int) *int { return &n }

	tests := []struct {
		name string
		in   *int
		want bool
	}{
		{"nil", nil, false},
		{"zero", ptr(0), false},
		{"positive", ptr(100), true},
		{"negative", ptr(-5), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNonZero(tt.in); got != tt.want {
				t.Errorf("IsNonZero(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestListPredicates(t *testing.T) {
	tests := []struct {
		name         string
		in           []string
		wantPresent  bool
		wantNonEmpty bool
	}{
		{"nil", nil, false, false},
		{"empty", []string{}, true, false},
		{"one", []string{"ns1"}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsListPresent(tt.in); got != tt.wantPresent {
				t.Errorf("IsListPresent = %v, want %v", got, tt.wantPresent)
			}
			if got := IsNonEmpty(tt.in); got != tt.wantNonEmpty {
				t.Errorf("IsNonEmpty = %v, want %v", got, tt.wantNonEmpty)
			}
		})
	}
}

func TestIsSubset(t *testing.T) {
	tests := []struct {
		name       string
		sub, super []string
		want       bool
	}{
		{"both empty", nil, nil, true},
		{"same order", []string{"a", "b"}, []string{"a", "b"}, true},
		{"reordered", []string{"a", "b"}, []string{"b", "a"}, true},
		{"missing", []string{"a", "c"}, []string{"a", "b"}, false},
		{"duplicates in sub", []string{"a", "a"}, []string{"a", "b"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSubset(tt.sub, tt.super); got != tt.want {
				t.Errorf("IsSubset(%v, %v) = %v, want %v", tt.sub, tt.super, got, tt.want)
			}
		})
	}
}

func TestScalarPredicates(t *testing.T) {
	if IsSet("") || !IsSet("x") {
		t.Error("IsSet mismatch")
	}
	if !IsNotSet("") || IsNotSet("x") {
		t.Error("IsNotSet mismatch")
	}
	if !Is(true) || Is(false) || !IsNot(false) || IsNot(true) {
		t.Error("Is/IsNot mismatch")
	}

	type zone struct{}
	var missing *zone
	if IsPresent(missing) || !IsPresent(&zone{}) {
		t.Error("IsPresent mismatch")
	}
}
