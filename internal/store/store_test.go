package store

import "testing"

func TestListDefaults(t *testing.T) {
	cases := []struct {
		in, limit, top int
	}{
		{0, DefaultSalesLimit, DefaultTopProducts},
		{-4, DefaultSalesLimit, DefaultTopProducts},
		{25, 25, 25},
	}
	for _, tc := range cases {
		if got := SalesLimit(tc.in); got != tc.limit {
			t.Fatalf("SalesLimit(%d) = %d, want %d", tc.in, got, tc.limit)
		}
		if got := TopProducts(tc.in); got != tc.top {
			t.Fatalf("TopProducts(%d) = %d, want %d", tc.in, got, tc.top)
		}
	}
}
