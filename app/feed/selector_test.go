package feed

import (
	"fmt"
	"testing"
)

func makeItems(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{
			GUID:     fmt.Sprintf("guid-%d", i),
			Title:    fmt.Sprintf("Item %d", i),
			ImageURL: fmt.Sprintf("https://example.com/%d.jpg", i),
		}
	}
	return items
}

func TestSelectorTakesHeadWhenFeedIsLongEnough(t *testing.T) {
	selector := NewSelector()

	for _, tc := range []struct{ count, maxItems int }{{15, 10}, {10, 10}, {50, 1}} {
		for _, allowRepetition := range []bool{true, false} {
			items := makeItems(tc.count)
			selected := selector.Run(items, tc.maxItems, allowRepetition)

			if len(selected) != tc.maxItems {
				t.Fatalf("count=%d max=%d: expected %d items, got %d", tc.count, tc.maxItems, tc.maxItems, len(selected))
			}

			seen := make(map[string]bool)
			for i, item := range selected {
				if item != items[i] {
					t.Errorf("count=%d max=%d: position %d expected %s, got %s", tc.count, tc.maxItems, i, items[i].GUID, item.GUID)
				}
				if seen[item.GUID] {
					t.Errorf("count=%d max=%d: item %s repeated", tc.count, tc.maxItems, item.GUID)
				}
				seen[item.GUID] = true
			}
		}
	}
}

func TestSelectorCyclesWhenRepetitionAllowed(t *testing.T) {
	selector := NewSelector()

	for _, tc := range []struct{ count, maxItems int }{{3, 10}, {1, 5}, {7, 50}} {
		items := makeItems(tc.count)
		selected := selector.Run(items, tc.maxItems, true)

		if len(selected) != tc.maxItems {
			t.Fatalf("count=%d max=%d: expected %d items, got %d", tc.count, tc.maxItems, tc.maxItems, len(selected))
		}

		for i, item := range selected {
			if item != items[i%tc.count] {
				t.Errorf("count=%d max=%d: position %d expected %s, got %s", tc.count, tc.maxItems, i, items[i%tc.count].GUID, item.GUID)
			}
		}
	}
}

func TestSelectorNeverPadsWithoutRepetition(t *testing.T) {
	selector := NewSelector()

	for _, tc := range []struct{ count, maxItems int }{{3, 10}, {1, 50}, {49, 50}} {
		items := makeItems(tc.count)
		selected := selector.Run(items, tc.maxItems, false)

		if len(selected) != tc.count {
			t.Errorf("count=%d max=%d: expected %d items, got %d", tc.count, tc.maxItems, tc.count, len(selected))
		}
	}
}

func TestSelectorEmptyInput(t *testing.T) {
	selected := NewSelector().Run(nil, 10, true)
	if len(selected) != 0 {
		t.Errorf("Expected empty selection, got %d items", len(selected))
	}
}

func TestSelectorDoesNotAliasInput(t *testing.T) {
	items := makeItems(5)
	selected := NewSelector().Run(items, 3, false)

	selected[0].Title = "changed"
	if items[0].Title == "changed" {
		t.Error("Expected selection to be a copy of the input")
	}
}
