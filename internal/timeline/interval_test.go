package timeline

import "testing"

func TestFindContaining_FirstWins(t *testing.T) {
	intervals := []Interval{
		{Name: "first", Start: 0, End: 100},
		{Name: "second", Start: 50, End: 150},
	}

	got, ok := FindContaining(75, intervals)
	if !ok {
		t.Fatal("expected a match at 75")
	}
	if got.Name != "first" {
		t.Fatalf("FindContaining(75) = %q, want first-listed interval", got.Name)
	}
}

func TestFindContaining_InclusiveBounds(t *testing.T) {
	intervals := []Interval{{Name: "only", Start: 10, End: 20}}

	for _, point := range []int{10, 20} {
		if _, ok := FindContaining(point, intervals); !ok {
			t.Fatalf("point %d on boundary should match", point)
		}
	}
	for _, point := range []int{9, 21} {
		if _, ok := FindContaining(point, intervals); ok {
			t.Fatalf("point %d outside bounds should not match", point)
		}
	}
}

func TestMergeRanges(t *testing.T) {
	tests := []struct {
		name string
		in   []Range
		want []Range
	}{
		{name: "empty", in: nil, want: nil},
		{
			name: "touching merge",
			in:   []Range{{0, 100}, {100, 250}, {400, 500}},
			want: []Range{{0, 250}, {400, 500}},
		},
		{
			name: "overlap merge",
			in:   []Range{{0, 60}, {40, 80}},
			want: []Range{{0, 80}},
		},
		{
			name: "unsorted input",
			in:   []Range{{400, 500}, {0, 100}, {100, 250}},
			want: []Range{{0, 250}, {400, 500}},
		},
		{
			name: "contained range",
			in:   []Range{{0, 100}, {20, 40}},
			want: []Range{{0, 100}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := MergeRanges(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("MergeRanges(%v) = %v, want %v", tc.in, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("MergeRanges(%v)[%d] = %v, want %v", tc.in, i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestSnapshot_FiltersAndSort(t *testing.T) {
	track := Track{
		Kind:  "audio",
		Index: 2,
		Items: []Item{
			{Name: "Clip B", Start: 200, End: 300, Duration: 100, HasMedia: true},
			{Name: "Sample_01", Start: 0, End: 50, Duration: 50, HasMedia: true},
			{Name: "Clip A", Start: 100, End: 200, Duration: 100, HasMedia: true},
			{Name: "   ", Start: 300, End: 310, Duration: 10, HasMedia: true},
			{Name: "Transition", Start: 400, End: 410, Duration: 10, HasMedia: true},
			{Name: "Top Adjustment Layer", Start: 500, End: 600, Duration: 100, HasMedia: true},
			{Name: "Generator", Start: 700, End: 800, Duration: 100, HasMedia: false},
		},
	}

	got := Snapshot(track,
		PrefixFilter([]string{"Sample"}),
		BlankNameFilter(),
		TransitionFilter(),
		AdjustmentFilter(),
	)

	if len(got) != 2 {
		t.Fatalf("got %d intervals, want 2: %+v", len(got), got)
	}
	if got[0].Name != "Clip A" || got[1].Name != "Clip B" {
		t.Fatalf("snapshot not sorted by start: %+v", got)
	}
	if got[0].Track != "A2" {
		t.Fatalf("track label = %q, want A2", got[0].Track)
	}
}

func TestPrefixFilter_CaseSensitive(t *testing.T) {
	f := PrefixFilter([]string{"Sample"})
	if f(Item{Name: "sample_01"}) {
		t.Fatal("prefix match must be case sensitive")
	}
	if !f(Item{Name: "Sample_01"}) {
		t.Fatal("exact prefix should match")
	}
	if f(Item{Name: "MySample"}) {
		t.Fatal("prefix must anchor at name start")
	}
}
