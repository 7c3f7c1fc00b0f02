package header

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	// ErrHeaderNotFound means no (player row, subheader row) pair scored
	// well enough to be trusted as the ledger header.
	ErrHeaderNotFound = errors.New("could not detect player header and subheader rows in the log sheet")

	// ErrNoPlayersFound means a header was located but no player had both
	// a duration and an activity column.
	ErrNoPlayersFound = errors.New("no players with both duration and activity columns were found")
)

// Subheader labels recognized under a player name, after normalization.
const (
	labelDuration    = "duration (hh:mm)"
	labelActivity    = "activity"
	labelCorrectness = "r"
	labelScore       = "score"
)

// minHeaderScore is the minimum number of recognized (player, label)
// column hits required to accept a header candidate. Anything lower is
// treated as an accidental match in an unrelated header-like row.
const minHeaderScore = 4

// maxPlayerHeaderRow bounds the scan for the player-name row; ledgers
// keep the header near the top.
const maxPlayerHeaderRow = 4

// maxSubheaderDistance bounds how far below the player row the
// subheader row may sit.
const maxSubheaderDistance = 3

// Columns maps a player's logical column roles to 0-indexed grid
// columns. Correctness and Score are -1 when the sheet has no such
// column for the player.
type Columns struct {
	Duration    int
	Activity    int
	Correctness int
	Score       int
}

// HasScore reports whether the player has a score column.
func (c Columns) HasScore() bool { return c.Score >= 0 }

// HasCorrectness reports whether the player has an "r" column.
func (c Columns) HasCorrectness() bool { return c.Correctness >= 0 }

// Player is one player's name and column layout.
type Player struct {
	Name    string
	Columns Columns
}

// Info is the parsed header of the log sheet. Row numbers are
// 1-indexed sheet coordinates.
type Info struct {
	Players         []Player
	PlayerHeaderRow int
	SubheaderRow    int
	FirstDataRow    int
}

// FindPlayer returns the player with the given name, by exact match.
func (i Info) FindPlayer(name string) (Player, bool) {
	for _, p := range i.Players {
		if p.Name == name {
			return p, true
		}
	}
	return Player{}, false
}

// Parse locates the player-name row and subheader row in a raw grid
// snapshot and builds the per-player column maps.
//
// Candidate player rows are rows 0..4; for each, candidate subheader
// rows are the 1..3 rows immediately below. A pair is scored by
// counting columns where a forward-filled player name is present and
// the normalized subheader cell is a recognized label. The highest
// score wins, first-found on ties.
func Parse(grid [][]interface{}) (Info, error) {
	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return Info{}, ErrHeaderNotFound
	}

	bestScore := -1
	bestPlayerRow := 0
	bestSubheaderRow := 0

	for playerRow := 0; playerRow <= min(maxPlayerHeaderRow, len(grid)-1); playerRow++ {
		filled := FillForward(grid[playerRow], width)
		for subRow := playerRow + 1; subRow <= min(playerRow+maxSubheaderDistance, len(grid)-1); subRow++ {
			score := scorePair(filled, grid[subRow], width)
			if score > bestScore {
				bestScore = score
				bestPlayerRow = playerRow
				bestSubheaderRow = subRow
			}
		}
	}

	if bestScore < minHeaderScore {
		log.Debug().
			Int("best_score", bestScore).
			Msg("No header candidate reached the acceptance threshold")
		return Info{}, ErrHeaderNotFound
	}

	players := buildPlayers(grid[bestPlayerRow], grid[bestSubheaderRow], width)
	if len(players) == 0 {
		return Info{}, ErrNoPlayersFound
	}

	sort.Slice(players, func(a, b int) bool {
		return players[a].Name < players[b].Name
	})

	info := Info{
		Players:         players,
		PlayerHeaderRow: bestPlayerRow + 1,
		SubheaderRow:    bestSubheaderRow + 1,
		FirstDataRow:    bestSubheaderRow + 2,
	}

	log.Debug().
		Int("players", len(players)).
		Int("player_header_row", info.PlayerHeaderRow).
		Int("subheader_row", info.SubheaderRow).
		Msg("Parsed sheet header")

	return info, nil
}

// scorePair counts columns where a player name is in effect and the
// subheader cell carries a recognized label.
func scorePair(filledPlayers []string, subheader []interface{}, width int) int {
	score := 0
	for c := 0; c < width; c++ {
		if filledPlayers[c] == "" {
			continue
		}
		switch Normalize(cellAt(subheader, c)) {
		case labelDuration, labelActivity, labelCorrectness, labelScore:
			score++
		}
	}
	return score
}

func buildPlayers(playerRow, subheaderRow []interface{}, width int) []Player {
	filled := FillForward(playerRow, width)
	byName := make(map[string]*Columns)
	var order []string

	for c := 0; c < width; c++ {
		name := filled[c]
		if name == "" {
			continue
		}
		cols, ok := byName[name]
		if !ok {
			cols = &Columns{Duration: -1, Activity: -1, Correctness: -1, Score: -1}
			byName[name] = cols
			order = append(order, name)
		}

		switch Normalize(cellAt(subheaderRow, c)) {
		case labelDuration:
			cols.Duration = c
		case labelActivity:
			cols.Activity = c
		case labelCorrectness:
			cols.Correctness = c
		case labelScore:
			cols.Score = c
		}
	}

	var players []Player
	for _, name := range order {
		cols := byName[name]
		if cols.Duration < 0 || cols.Activity < 0 {
			log.Debug().
				Str("player", name).
				Msg("Discarding player without both duration and activity columns")
			continue
		}
		players = append(players, Player{Name: name, Columns: *cols})
	}
	return players
}

// FillForward propagates each non-empty cell's value rightward over
// subsequent empty cells, producing a strip of exactly length cells. A
// player name spanning several columns under one merged label is this
// way attributed to all of them.
func FillForward(row []interface{}, length int) []string {
	result := make([]string, length)
	current := ""
	for i := 0; i < length; i++ {
		if cell := strings.TrimSpace(cellAt(row, i)); cell != "" {
			current = cell
		}
		result[i] = current
	}
	return result
}

// Normalize trims, lower-cases and collapses internal whitespace runs
// so subheader labels compare reliably.
func Normalize(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

// cellAt coerces the cell at index i to a string, tolerating short rows
// and nil cells.
func cellAt(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	return fmt.Sprintf("%v", row[i])
}

// IndexToLetter converts a 0-indexed column to its spreadsheet letter
// label (A, B, ... Z, AA, AB, ...).
func IndexToLetter(index int) string {
	n := index + 1
	var b []byte
	for n > 0 {
		mod := (n - 1) % 26
		b = append([]byte{byte('A' + mod)}, b...)
		n = (n - mod) / 26
	}
	return string(b)
}

// LetterToIndex converts a spreadsheet column label back to its
// 0-indexed column.
func LetterToIndex(letter string) int {
	n := 0
	for i := 0; i < len(letter); i++ {
		n = n*26 + int(letter[i]-'A') + 1
	}
	return n - 1
}
