package ddl

import "testing"

func TestIdent(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"events", "events"},
		{"Events.2024-01", "events_2024_01"},
		{"  Příjmení  ", "prijmeni"},
		{"a -- b", "a_b"},
		{"__x__", "x"},
		{"2024 sales", "t_2024_sales"},
		{"!!!", "t"},
		{"", "t"},
	}
	for _, c := range cases {
		if got := Ident(c.in); got != c.want {
			t.Errorf("Ident(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
