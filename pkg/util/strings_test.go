package util

import "testing"

func TestContainsAny(t *testing.T) {
	cases := []struct {
		s    string
		subs []string
		want bool
	}{
		{"ICE BofA US High Yield Index", []string{"ICE BofA"}, true},
		{"CBOE Volatility Index: VIX", []string{"CBOE", "VIX"}, true},
		{"ice bofa lower case", []string{"ICE BofA"}, false},
		{"anything", nil, false},
		{"anything", []string{""}, false},
	}
	for _, c := range cases {
		if got := ContainsAny(c.s, c.subs); got != c.want {
			t.Fatalf("ContainsAny(%q, %v) = %v, want %v", c.s, c.subs, got, c.want)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	got := SplitCSV(" a, ,b ,c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected split %v", got)
	}
}
