package leaderboard

import (
	"sort"
	"strings"
)

// MaxEntries is the number of entries kept on the board.
const MaxEntries = 10

// Entry is one ranked player.
type Entry struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Ranked is an entry with its 1-based position.
type Ranked struct {
	Entry
	Rank int `json:"rank"`
}

// entries implements fuzzy.Source over player names.
type entries []Entry

func (e entries) String(i int) string { return e[i].Name }
func (e entries) Len() int            { return len(e) }

// normalize drops blank names, clamps negative scores, keeps the best score per name at its
// first position, sorts descending with ties in original order and truncates to MaxEntries.
func normalize(in []Entry) []Entry {
	out := make([]Entry, 0, len(in))
	index := make(map[string]int, len(in))
	for _, entry := range in {
		entry.Name = strings.TrimSpace(entry.Name)
		if entry.Name == "" {
			continue
		}
		if entry.Score < 0 {
			entry.Score = 0
		}
		if i, ok := index[entry.Name]; ok {
			if entry.Score > out[i].Score {
				out[i].Score = entry.Score
			}
			continue
		}
		index[entry.Name] = len(out)
		out = append(out, entry)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > MaxEntries {
		out = out[:MaxEntries]
	}
	return out
}
