package pipeline

import (
	"reflect"
	"testing"
)

func TestChunks(t *testing.T) {
	tests := []struct {
		name       string
		start, end int
		size       int
		want       [][]int
	}{
		{"exact multiple", 1, 11, 5, [][]int{{1, 2, 3, 4, 5}, {6, 7, 8, 9, 10}}},
		{"short last chunk", 1, 12, 5, [][]int{{1, 2, 3, 4, 5}, {6, 7, 8, 9, 10}, {11}}},
		{"single chunk", 3, 5, 10, [][]int{{3, 4}}},
		{"size one", 1, 4, 1, [][]int{{1}, {2}, {3}}},
		{"empty range", 5, 5, 3, nil},
		{"reversed range", 10, 1, 3, nil},
		{"invalid size", 1, 10, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Chunks(tt.start, tt.end, tt.size); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Chunks(%d, %d, %d) = %v, want %v", tt.start, tt.end, tt.size, got, tt.want)
			}
		})
	}
}

func TestChunks_DefaultRange(t *testing.T) {
	chunks := Chunks(1, 100, 5)

	if len(chunks) != 20 {
		t.Fatalf("len = %d, want 20", len(chunks))
	}

	next := 1
	for i, c := range chunks {
		want := 5
		if i == len(chunks)-1 {
			want = 4
		}
		if len(c) != want {
			t.Errorf("chunk %d has %d ids, want %d", i, len(c), want)
		}
		for _, id := range c {
			if id != next {
				t.Fatalf("chunk %d: id %d, want %d", i, id, next)
			}
			next++
		}
	}
	if next != 100 {
		t.Errorf("covered up to %d, want 99", next-1)
	}
}
