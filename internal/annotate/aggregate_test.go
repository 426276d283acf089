package annotate

import (
	"reflect"
	"testing"
)

func TestIsItemValid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		item map[string]any
		want bool
	}{
		{
			name: "valid item",
			key:  "Acme Corp",
			item: map[string]any{"detail": "supplier agreement", "reference": "page 2"},
			want: true,
		},
		{name: "empty item", key: "Acme Corp", item: map[string]any{}, want: false},
		{name: "empty key", key: "", item: map[string]any{"detail": "x"}, want: false},
		{
			name: "empty value",
			key:  "Acme Corp",
			item: map[string]any{"detail": ""},
			want: false,
		},
		{
			name: "placeholder in key",
			key:  "Does Not Exist",
			item: map[string]any{"detail": "x"},
			want: false,
		},
		{
			name: "placeholder in value",
			key:  "Acme Corp",
			item: map[string]any{"detail": "None mentioned"},
			want: false,
		},
		{
			name: "nil value",
			key:  "Acme Corp",
			item: map[string]any{"detail": nil},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsItemValid(tt.key, tt.item); got != tt.want {
				t.Errorf("IsItemValid(%q, %v) = %v, want %v", tt.key, tt.item, got, tt.want)
			}
		})
	}
}

func TestAggregateBusiness(t *testing.T) {
	fragments := []Fragment{
		{
			"Acme Corp":      map[string]any{"detail": "supplier", "reference": "page 1"},
			"does not exist": map[string]any{"detail": "x"},
		},
		{
			"Acme Corp": map[string]any{"detail": "defendant", "reference": "page 4"},
			"Globex":    map[string]any{"detail": "none found"},
		},
	}

	merged := AggregateBusiness(fragments)
	if len(merged) != 1 {
		t.Fatalf("merged keys = %d, want 1 (got %v)", len(merged), merged)
	}
	if len(merged["Acme Corp"]) != 2 {
		t.Errorf("Acme Corp items = %d, want 2", len(merged["Acme Corp"]))
	}
	if merged["Acme Corp"][1]["detail"] != "defendant" {
		t.Errorf("second item = %v", merged["Acme Corp"][1])
	}
}

func TestAggregateList(t *testing.T) {
	fragments := []Fragment{
		{
			"1": map[string]any{"topic": "revenue"},
			"2": map[string]any{"topic": "growth"},
		},
		{
			"1": map[string]any{"topic": "risk"},
		},
	}

	items := AggregateList(fragments)
	want := []any{
		map[string]any{"topic": "revenue"},
		map[string]any{"topic": "growth"},
		map[string]any{"topic": "risk"},
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("AggregateList = %v, want %v", items, want)
	}
}
