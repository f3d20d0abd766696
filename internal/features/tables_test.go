package features_test

import (
	"os"
	"path/filepath"
	"testing"

	"reserva_score/internal/features"
)

func TestRoomPrefix_AtomicTwoTokenRule(t *testing.T) {
	cases := map[string]string{
		"CMU FS JUNIOR SUITE BS": "CMU FS", // atomic prefix, not "CMU"
		"CMU JUNIOR SUITE GV":    "CMU",
		"COL JUNIOR SUITE":       "COL",
		"TRSC SUITE OV":          "TRSC",
		"CMU FS":                 "CMU FS",
		"CMU FSX SUITE":          "CMU", // only the exact token pair is atomic
		"BAV":                    "BAV",
	}
	for room, want := range cases {
		if got := features.RoomPrefix(room); got != want {
			t.Fatalf("RoomPrefix(%q) = %q, want %q", room, got, want)
		}
	}
}

func TestComplexCode(t *testing.T) {
	cases := map[string]string{
		"Riviera Maya":          features.CodeRivieraMaya,
		"complejo punta cana":   features.CodePuntaCana,
		" Costa Mujeres ":       features.CodeCostaMujeres,
		"Hotel Boutique Centro": features.CodeOther,
		"":                      features.CodeOther,
	}
	for name, want := range cases {
		if got := features.ComplexCode(name); got != want {
			t.Fatalf("ComplexCode(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestHotelComplexCode_TwelveWayTable(t *testing.T) {
	cases := []struct {
		complex, prefix, want string
	}{
		{features.CodeRivieraMaya, "COL", "MAYA_COL"},
		{features.CodePuntaCana, "BAV", "CANA_BAV"},
		{features.CodeCostaMujeres, "TRSC", "MUJE_TRSC"},
		{features.CodeCostaMujeres, "CMU FS", "MUJE_CMUFS"},
		// outside the enumerated pairs
		{features.CodeRivieraMaya, "BAV", features.CodeOther},
		{features.CodeOther, "COL", features.CodeOther},
		{features.CodePuntaCana, "", features.CodeOther},
	}
	for _, c := range cases {
		if got := features.HotelComplexCode(c.complex, c.prefix); got != c.want {
			t.Fatalf("HotelComplexCode(%q, %q) = %q, want %q", c.complex, c.prefix, got, c.want)
		}
	}
}

func TestLoadTopRooms_OverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "top_rooms.txt")
	content := "# retrained 2026-08\nCOL JUNIOR SUITE\n\nBAV SUITE PREMIUM\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	wl, err := features.LoadTopRooms(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(wl) != 2 {
		t.Fatalf("len = %d, want 2", len(wl))
	}
	if wl.Category("COL JUNIOR SUITE") != "COL JUNIOR SUITE" {
		t.Fatalf("whitelisted room not passed through")
	}
	if wl.Category("CMU JUNIOR SUITE GV") != features.OtherRoomCategory {
		t.Fatalf("non-listed room not capped")
	}
}

func TestLoadTopRooms_MissingFile(t *testing.T) {
	if _, err := features.LoadTopRooms(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
