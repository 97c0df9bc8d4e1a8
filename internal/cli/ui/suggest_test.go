package ui

import (
	"reflect"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"book", "", 4},
		{"", "tag", 3},
		{"book", "book", 0},
		{"bok", "book", 1},
		{"kitten", "sitting", 3},
		{"categorie", "category", 2},
		{"café", "cafe", 1},
	}

	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSuggest(t *testing.T) {
	candidates := []string{"Author", "Book", "BookTags", "Category", "Tag"}

	tests := []struct {
		name   string
		target string
		max    int
		want   []string
	}{
		{"closest first", "Boo", 3, []string{"Book", "Tag"}},
		{"case insensitive", "author", 3, []string{"Author"}},
		{"limited", "Tg", 1, []string{"Tag"}},
		{"nothing close", "Publisher", 3, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suggest(tt.target, candidates, tt.max)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Suggest(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}
