package csvstore

import (
	"strconv"
	"strings"
	"time"

	"reserva_score/internal/domain"
)

// Column names shared by both sources. The Spanish headers are the external
// contract with the exports that feed this system; do not translate them.
const (
	colID         = "ID_RESERVA"
	colArrival    = "LLEGADA"
	colDeparture  = "SALIDA"
	colNights     = "NOCHES"
	colGuests     = "PAX"
	colValue      = "VALOR_RESERVA"
	colRoom       = "NOMBRE_HABITACION"
	colChannel    = "CANAL"
	colMarket     = "MERCADO"
	colAgency     = "AGENCIA"
	colHotel      = "NOMBRE_HOTEL_REAL"
	colHotelAlias = "HOTEL_COMPLEJO" // older historical exports use this header
	colComplex    = "COMPLEJO_REAL"
	colProb       = "PROBABILIDAD_CANCELACION"
	colSourceTag  = "FUENTE"
	colClient     = "NOMBRE_CLIENTE"
	colEmail      = "EMAIL"
	colSegment    = "SEGMENTO"
	colLoyalty    = "FIDELIDAD"
	colAcq        = "ORIGEN_CAPTACION"
	colCreated    = "FECHA_CREACION"
	colStatus     = "ESTADO"

	colOfferText   = "OFERTA_RETENCION"
	colOfferDate   = "FECHA_OFERTA"
	colOfferStatus = "ESTADO_OFERTA"
)

// liveColumns is the fixed 21-column schema of the live source, written in
// exactly this order on every append regardless of which fields are
// populated. Never infer columns from the in-memory record.
var liveColumns = []string{
	colID, colArrival, colDeparture, colNights, colGuests, colValue,
	colRoom, colChannel, colMarket, colAgency, colHotel, colComplex,
	colProb, colSourceTag, colClient, colEmail, colSegment, colLoyalty,
	colAcq, colCreated, colStatus,
}

// historicalRequired is the minimum column set a historical export must
// carry. colHotel may appear under colHotelAlias instead.
var historicalRequired = []string{
	colID, colArrival, colDeparture, colNights, colGuests, colValue,
	colRoom, colComplex, colProb,
}

// updatableFields is the closed set UpdateField accepts: status, the
// retention-offer annotations and the model probability (refreshed by the
// backfill job). The baseline booking columns are immutable.
var updatableFields = map[string]struct{}{
	colStatus:      {},
	colOfferText:   {},
	colOfferDate:   {},
	colOfferStatus: {},
	colProb:        {},
}

const (
	dateLayout     = "2006-01-02"
	stampLayout    = "2006-01-02 15:04:05"
	sourceLive     = "live"
	sourceBaseline = "baseline"
)

// parseDate accepts the calendar-date and timestamp shapes seen across both
// exports. Returns nil for blank cells.
func parseDate(cell string) *time.Time {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	for _, layout := range []string{dateLayout, stampLayout, "02/01/2006", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(stampLayout)
}

func parseFloatCell(cell string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(cell, ",", "."))
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseIntCell(cell string) (int, error) {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0, nil
	}
	// historical exports render counts as floats ("2.0")
	f, err := parseFloatCell(s)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// normalizeProb forces a probability into its fraction form. Some exports
// store 72, some 0.72; anything above 1 is assumed to be a percentage.
func normalizeProb(p float64) float64 {
	if p > 1.0 {
		return p / 100.0
	}
	return p
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optStr(cell string) *string {
	s := strings.TrimSpace(cell)
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// header maps a CSV header row to column indexes.
type header map[string]int

func headerOf(row []string) header {
	h := make(header, len(row))
	for i, name := range row {
		h[strings.TrimSpace(name)] = i
	}
	return h
}

func (h header) cell(row []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (h header) has(col string) bool {
	_, ok := h[col]
	return ok
}

// liveRecord renders a Reservation onto the fixed live schema.
func liveRecord(r domain.Reservation) []string {
	return []string{
		domain.NormalizeID(r.ID),
		formatDate(r.Arrival),
		formatDate(r.Departure),
		strconv.Itoa(r.Nights),
		strconv.Itoa(r.Guests),
		formatFloat(r.Value),
		r.RoomCode,
		derefStr(r.Channel),
		derefStr(r.Market),
		derefStr(r.Agency),
		derefStr(r.HotelName),
		derefStr(r.ComplexName),
		formatFloat(normalizeProb(r.CancelProb)),
		r.SourceTag,
		derefStr(r.ClientName),
		derefStr(r.Email),
		derefStr(r.Segment),
		derefStr(r.Loyalty),
		derefStr(r.Acquisition),
		formatStamp(r.CreatedAt),
		derefStr(r.Status),
	}
}
