package comic

import (
	"reflect"
	"testing"
)

func TestDirectionFirstSide(t *testing.T) {
	if got := LeftToRight.FirstSide(); got != SideLeft {
		t.Errorf("LeftToRight.FirstSide() = %v, want %v", got, SideLeft)
	}
	if got := RightToLeft.FirstSide(); got != SideRight {
		t.Errorf("RightToLeft.FirstSide() = %v, want %v", got, SideRight)
	}
}

func TestSideOpposite(t *testing.T) {
	tests := []struct {
		side Side
		want Side
	}{
		{SideLeft, SideRight},
		{SideRight, SideLeft},
		{SideCenter, SideCenter},
	}
	for _, tt := range tests {
		if got := tt.side.Opposite(); got != tt.want {
			t.Errorf("%v.Opposite() = %v, want %v", tt.side, got, tt.want)
		}
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{"", LeftToRight, false},
		{"ltr", LeftToRight, false},
		{"RTL", RightToLeft, false},
		{"right-to-left", RightToLeft, false},
		{"up", LeftToRight, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDirection(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDirection(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"cbz", FormatCBZ, false},
		{"EPUB", FormatEPUB, false},
		{".kepub", FormatKEPUB, false},
		{"mobi", FormatMOBI, false},
		{"pdf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatExtension(t *testing.T) {
	tests := map[Format]string{
		FormatCBZ:   ".cbz",
		FormatEPUB:  ".epub",
		FormatKEPUB: ".kepub.epub",
		FormatMOBI:  ".mobi",
	}
	for f, want := range tests {
		if got := f.Extension(); got != want {
			t.Errorf("%s.Extension() = %q, want %q", f, got, want)
		}
	}
	if FormatCBZ.Paginated() {
		t.Error("FormatCBZ.Paginated() = true, want false")
	}
	if !FormatKEPUB.Paginated() {
		t.Error("FormatKEPUB.Paginated() = false, want true")
	}
}

func TestTitleFromOutput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/out/My Book.epub", "My Book"},
		{"/out/My Book.kepub.epub", "My Book"},
		{"Series.cbz", "Series"},
		{"noext", "noext"},
		{"/a/b/c.mobi", "c"},
	}
	for _, tt := range tests {
		if got := TitleFromOutput(tt.in); got != tt.want {
			t.Errorf("TitleFromOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSortNatural(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "numeric runs",
			in:   []string{"page10.png", "page2.png", "page1.png"},
			want: []string{"page1.png", "page2.png", "page10.png"},
		},
		{
			name: "zero padded mixed with plain",
			in:   []string{"010", "9", "0001"},
			want: []string{"0001", "9", "010"},
		},
		{
			name: "case insensitive",
			in:   []string{"b.jpg", "A.jpg", "a.jpg"},
			want: []string{"A.jpg", "a.jpg", "b.jpg"},
		},
		{
			name: "split suffixes",
			in:   []string{"0002-B.jpg", "0002-A.jpg", "0001.jpg"},
			want: []string{"0001.jpg", "0002-A.jpg", "0002-B.jpg"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := append([]string(nil), tt.in...)
			SortNatural(got)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SortNatural(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSortPaths(t *testing.T) {
	got := []string{"/x/12.png", "/y/3.png", "/a/20.png"}
	SortPaths(got)
	want := []string{"/y/3.png", "/x/12.png", "/a/20.png"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortPaths() = %v, want %v", got, want)
	}
}

func TestTitleWidth(t *testing.T) {
	tests := []struct {
		names []string
		want  int
	}{
		{nil, 0},
		{[]string{"Extra"}, 0},
		{[]string{"001"}, 3},
		{[]string{"7", "10"}, 2},
		{[]string{"Vol 2 Ch 10", "Vol 2 Ch 9"}, 2},
		{[]string{"1", "12345"}, 5},
	}
	for _, tt := range tests {
		if got := TitleWidth(tt.names); got != tt.want {
			t.Errorf("TitleWidth(%q) = %d, want %d", tt.names, got, tt.want)
		}
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"001", 3, "001"},
		{"1", 3, "001"},
		{"7", 2, "07"},
		{"10", 2, "10"},
		{"Chapter 7", 2, "Chapter 07"},
		{"12345", 2, "12345"},
		{"  Extra  ", 3, "Extra"},
		{"Vol 2 Ch 10", 2, "Vol 02 Ch 10"},
		{"é", 0, "é"},
	}
	for _, tt := range tests {
		if got := NormalizeTitle(tt.in, tt.width); got != tt.want {
			t.Errorf("NormalizeTitle(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestNormalizeTitleSortsLexically(t *testing.T) {
	names := []string{"10", "9", "100", "1"}
	SortNatural(names)
	width := TitleWidth(names)
	titles := make([]string, len(names))
	for i := range titles {
		titles[i] = NormalizeTitle(names[i], width)
	}
	for i := 1; i < len(titles); i++ {
		if titles[i-1] >= titles[i] {
			t.Errorf("titles not lexically ordered: %q >= %q", titles[i-1], titles[i])
		}
	}
}
