package textutil

import "testing"

func TestCleanLabel(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Rain\n", "Rain"},
		{"Rain", "Rain"},
		{"Wet\nSurface", "Wet Surface"},
		{"Dark -\r\nLights On", "Dark - Lights On"},
		{"  Daylight  ", "Daylight"},
		{"", ""},
	}
	for _, c := range cases {
		if got := CleanLabel(c.in); got != c.want {
			t.Errorf("CleanLabel(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCleanLabel_Idempotent(t *testing.T) {
	in := "Wet\r\nSurface \n"
	once := CleanLabel(in)
	if twice := CleanLabel(once); twice != once {
		t.Errorf("CleanLabel not idempotent: %q -> %q", once, twice)
	}
}
