package header

import (
	"errors"
	"testing"
)

func sampleGrid() [][]interface{} {
	return [][]interface{}{
		{"", "", "Alice", "", "", "", "Bob", "", "", ""},
		{"Date", "", "Duration (hh:mm)", "Activity", "R", "Score", "Duration (hh:mm)", "Activity", "R", "Score"},
		{"2024-03-01", "", "1:00", "Run", "", 5},
	}
}

func TestParse(t *testing.T) {
	info, err := Parse(sampleGrid())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if info.PlayerHeaderRow != 1 {
		t.Errorf("PlayerHeaderRow = %d, want 1", info.PlayerHeaderRow)
	}
	if info.SubheaderRow != 2 {
		t.Errorf("SubheaderRow = %d, want 2", info.SubheaderRow)
	}
	if info.FirstDataRow != 3 {
		t.Errorf("FirstDataRow = %d, want 3", info.FirstDataRow)
	}

	if len(info.Players) != 2 {
		t.Fatalf("got %d players, want 2", len(info.Players))
	}

	alice := info.Players[0]
	if alice.Name != "Alice" {
		t.Errorf("first player = %q, want Alice (sorted)", alice.Name)
	}
	wantAlice := Columns{Duration: 2, Activity: 3, Correctness: 4, Score: 5}
	if alice.Columns != wantAlice {
		t.Errorf("Alice columns = %+v, want %+v", alice.Columns, wantAlice)
	}

	bob := info.Players[1]
	wantBob := Columns{Duration: 6, Activity: 7, Correctness: 8, Score: 9}
	if bob.Columns != wantBob {
		t.Errorf("Bob columns = %+v, want %+v", bob.Columns, wantBob)
	}
}

func TestParseSortsPlayersAlphabetically(t *testing.T) {
	grid := [][]interface{}{
		{"", "", "Zoe", "", "Ann", ""},
		{"Date", "", "Duration (hh:mm)", "Activity", "Duration (hh:mm)", "Activity"},
	}

	info, err := Parse(grid)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(info.Players) != 2 || info.Players[0].Name != "Ann" || info.Players[1].Name != "Zoe" {
		t.Errorf("players not sorted: %+v", info.Players)
	}
}

func TestParseSubheaderNormalization(t *testing.T) {
	grid := [][]interface{}{
		{"", "", "Alice", "", "", ""},
		{"Date", "", "  DURATION   (HH:MM) ", " Activity ", "r", "SCORE"},
	}

	info, err := Parse(grid)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(info.Players) != 1 {
		t.Fatalf("got %d players, want 1", len(info.Players))
	}
	if !info.Players[0].Columns.HasScore() || !info.Players[0].Columns.HasCorrectness() {
		t.Errorf("optional columns not recognized: %+v", info.Players[0].Columns)
	}
}

func TestParseBelowThreshold(t *testing.T) {
	// Only one player with duration+activity: 2 recognized hits, below
	// the acceptance threshold of 4.
	grid := [][]interface{}{
		{"", "Alice", ""},
		{"Date", "Duration (hh:mm)", "Activity"},
	}

	_, err := Parse(grid)
	if !errors.Is(err, ErrHeaderNotFound) {
		t.Errorf("err = %v, want ErrHeaderNotFound", err)
	}
}

func TestParseNoCompletePlayers(t *testing.T) {
	// Enough recognized hits to accept the header, but no single player
	// owns both a duration and an activity column.
	grid := [][]interface{}{
		{"Alice", "", "", "Bob"},
		{"Duration (hh:mm)", "R", "Score", "Activity"},
	}

	_, err := Parse(grid)
	if !errors.Is(err, ErrNoPlayersFound) {
		t.Errorf("err = %v, want ErrNoPlayersFound", err)
	}
}

func TestParseEmptyGrid(t *testing.T) {
	for _, grid := range [][][]interface{}{nil, {}, {{}, {}}} {
		if _, err := Parse(grid); !errors.Is(err, ErrHeaderNotFound) {
			t.Errorf("Parse(%v) err = %v, want ErrHeaderNotFound", grid, err)
		}
	}
}

func TestParsePrefersHigherScoringPair(t *testing.T) {
	// A sparse label overlap from the row above (2 hits) must lose to
	// the real player row (8 hits).
	grid := [][]interface{}{
		{"", "", "", "", "", "", "", "", "Totals", ""},
		{"", "", "Alice", "", "", "", "Bob", "", "", ""},
		{"Date", "", "Duration (hh:mm)", "Activity", "R", "Score", "Duration (hh:mm)", "Activity", "R", "Score"},
	}

	info, err := Parse(grid)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if info.PlayerHeaderRow != 2 || info.SubheaderRow != 3 {
		t.Errorf("picked rows (%d, %d), want (2, 3)", info.PlayerHeaderRow, info.SubheaderRow)
	}
	if _, ok := info.FindPlayer("Totals"); ok {
		t.Error("decoy row leaked into the player list")
	}
}

func TestFillForward(t *testing.T) {
	tests := []struct {
		name string
		row  []interface{}
		len  int
		want []string
	}{
		{
			name: "bleeds rightward into empty cells",
			row:  []interface{}{"Alice", "", "", "Bob", ""},
			len:  6,
			want: []string{"Alice", "Alice", "Alice", "Bob", "Bob", "Bob"},
		},
		{
			name: "leading empties stay empty",
			row:  []interface{}{"", "", "Alice"},
			len:  4,
			want: []string{"", "", "Alice", "Alice"},
		},
		{
			name: "whitespace-only cells count as empty",
			row:  []interface{}{"Alice", "  ", "Bob"},
			len:  3,
			want: []string{"Alice", "Alice", "Bob"},
		},
	}

	for _, test := range tests {
		got := FillForward(test.row, test.len)
		if len(got) != len(test.want) {
			t.Fatalf("%s: got %d cells, want %d", test.name, len(got), len(test.want))
		}
		for i := range test.want {
			if got[i] != test.want[i] {
				t.Errorf("%s: cell %d = %q, want %q", test.name, i, got[i], test.want[i])
			}
		}
	}
}

func TestFillForwardIdempotent(t *testing.T) {
	row := []interface{}{"A", "B", "C"}
	once := FillForward(row, 3)

	asCells := make([]interface{}, len(once))
	for i, v := range once {
		asCells[i] = v
	}
	twice := FillForward(asCells, 3)

	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("cell %d changed on refill: %q -> %q", i, once[i], twice[i])
		}
	}
}

func TestIndexToLetter(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}

	for _, test := range tests {
		if got := IndexToLetter(test.index); got != test.want {
			t.Errorf("IndexToLetter(%d) = %q, want %q", test.index, got, test.want)
		}
	}
}

func TestColumnLetterRoundTrip(t *testing.T) {
	for n := 0; n <= 1000; n++ {
		if got := LetterToIndex(IndexToLetter(n)); got != n {
			t.Fatalf("round trip broke at %d: got %d", n, got)
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Duration (hh:mm)", "duration (hh:mm)"},
		{"  DURATION   (HH:MM)  ", "duration (hh:mm)"},
		{"Activity", "activity"},
		{"", ""},
		{"   ", ""},
	}

	for _, test := range tests {
		if got := Normalize(test.in); got != test.want {
			t.Errorf("Normalize(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}
