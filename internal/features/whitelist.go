package features

import (
	"bufio"
	"os"
	"strings"
)

// TopRooms is the fixed set of room codes frequent enough in the training
// corpus (>= 0.3% of training rows) to be modeled individually. It is
// computed once at training time and shipped as configuration; it must
// never be recomputed from scoring input or single-row inference silently
// degenerates.
type TopRooms map[string]struct{}

// OtherRoomCategory is the catch-all bucket for rooms outside the whitelist.
const OtherRoomCategory = "OTHERS"

// defaultTopRooms mirrors the list frozen alongside the shipped model.
var defaultTopRooms = []string{
	"COL JUNIOR SUITE",
	"COL JUNIOR SUITE SUP",
	"COL SUITE",
	"KAN JUNIOR SUITE",
	"KAN JUNIOR SUITE PV",
	"WS JUNIOR SUITE",
	"WS SUITE BS",
	"RIV JUNIOR SUITE",
	"TRSY JUNIOR SUITE",
	"TRSY SUITE OV",
	"BAV JUNIOR SUITE",
	"BAV JUNIOR SUITE PREMIUM",
	"PUN JUNIOR SUITE",
	"AMB JUNIOR SUITE",
	"TRST JUNIOR SUITE",
	"CMU JUNIOR SUITE",
	"CMU JUNIOR SUITE GV",
	"CMU FS JUNIOR SUITE",
	"CMU FS JUNIOR SUITE BS",
	"TRSC JUNIOR SUITE",
	"TRSC SUITE OV",
}

// DefaultTopRooms returns the whitelist frozen at training time.
func DefaultTopRooms() TopRooms {
	wl := make(TopRooms, len(defaultTopRooms))
	for _, r := range defaultTopRooms {
		wl[r] = struct{}{}
	}
	return wl
}

// LoadTopRooms reads a one-room-code-per-line override file. Blank lines
// and '#' comments are ignored. Used when the model owners retrain and ship
// a new list without a redeploy.
func LoadTopRooms(path string) (TopRooms, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	wl := make(TopRooms)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		wl[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return wl, nil
}

func (t TopRooms) Contains(roomCode string) bool {
	_, ok := t[roomCode]
	return ok
}

// Category collapses a room code to itself or the catch-all bucket.
func (t TopRooms) Category(roomCode string) string {
	if t.Contains(roomCode) {
		return roomCode
	}
	return OtherRoomCategory
}
