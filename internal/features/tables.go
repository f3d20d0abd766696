package features

import "strings"

/********** business code tables (single source of truth) **********/

// Complex codes. The operator runs three Caribbean complexes; anything the
// mapping does not know collapses to CodeOther.
const (
	CodeRivieraMaya  = "MAYA"
	CodePuntaCana    = "CANA"
	CodeCostaMujeres = "MUJE"
	CodeOther        = "OTRO"
)

// complexByName maps the display names the booking channels send to the
// short complex code. Keys are compared case-insensitively after trimming.
var complexByName = map[string]string{
	"riviera maya":                  CodeRivieraMaya,
	"complejo riviera maya":         CodeRivieraMaya,
	"grand palladium riviera maya":  CodeRivieraMaya,
	"punta cana":                    CodePuntaCana,
	"complejo punta cana":           CodePuntaCana,
	"grand palladium punta cana":    CodePuntaCana,
	"costa mujeres":                 CodeCostaMujeres,
	"complejo costa mujeres":        CodeCostaMujeres,
	"grand palladium costa mujeres": CodeCostaMujeres,
}

// ComplexCode resolves a hotel-complex display name to its short code.
func ComplexCode(displayName string) string {
	if c, ok := complexByName[strings.ToLower(strings.TrimSpace(displayName))]; ok {
		return c
	}
	return CodeOther
}

// atomicRoomPrefixes are room-code prefixes that span two tokens and must
// not be split on the first space. Longest prefix wins.
var atomicRoomPrefixes = []string{"CMU FS"}

// RoomPrefix extracts the hotel token from a room code. "COL JUNIOR SUITE"
// yields "COL", but "CMU FS JUNIOR SUITE BS" yields "CMU FS" because the
// Family Selection rooms carry a two-token hotel prefix.
func RoomPrefix(roomCode string) string {
	rc := strings.TrimSpace(roomCode)
	for _, p := range atomicRoomPrefixes {
		if rc == p || strings.HasPrefix(rc, p+" ") {
			return p
		}
	}
	if i := strings.IndexByte(rc, ' '); i >= 0 {
		return rc[:i]
	}
	return rc
}

type complexRoom struct{ complex, prefix string }

// hotelComplexCodes is the 12-way composite lookup keyed by
// (complex code, room prefix). It encodes irregular business naming and is
// reproduced verbatim from the operator's reference table; do not derive or
// "clean up" these entries.
var hotelComplexCodes = map[complexRoom]string{
	{CodeRivieraMaya, "COL"}:     "MAYA_COL",
	{CodeRivieraMaya, "KAN"}:     "MAYA_KAN",
	{CodeRivieraMaya, "WS"}:      "MAYA_WS",
	{CodeRivieraMaya, "RIV"}:     "MAYA_RIV",
	{CodeRivieraMaya, "TRSY"}:    "MAYA_TRSY",
	{CodePuntaCana, "BAV"}:       "CANA_BAV",
	{CodePuntaCana, "PUN"}:       "CANA_PUN",
	{CodePuntaCana, "AMB"}:       "CANA_AMB",
	{CodePuntaCana, "TRST"}:      "CANA_TRST",
	{CodeCostaMujeres, "CMU"}:    "MUJE_CMU",
	{CodeCostaMujeres, "CMU FS"}: "MUJE_CMUFS",
	{CodeCostaMujeres, "TRSC"}:   "MUJE_TRSC",
}

// HotelComplexCode resolves the composite hotel code for a complex/room
// pair; combinations outside the enumerated twelve map to CodeOther.
func HotelComplexCode(complexCode, roomPrefix string) string {
	if c, ok := hotelComplexCodes[complexRoom{complexCode, roomPrefix}]; ok {
		return c
	}
	return CodeOther
}

// FlagshipLoyaltyProgram is the exact program name the flagship-membership
// flag matches on. Any other non-empty value still counts as "has loyalty".
const FlagshipLoyaltyProgram = "Palladium Rewards"

// loyaltyNoneMarkers are the values the booking channels use for "no
// program"; they count as absent.
var loyaltyNoneMarkers = map[string]struct{}{
	"": {}, "none": {}, "ninguno": {}, "null": {}, "n/a": {},
}

func hasLoyalty(v string) bool {
	_, none := loyaltyNoneMarkers[strings.ToLower(strings.TrimSpace(v))]
	return !none
}
