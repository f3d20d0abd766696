// Package csvstore reconciles reservation records across the two CSV-backed
// sources: the append-only live file and the read-mostly historical
// baseline. It owns the merged view; nothing else touches the files.
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reserva_score/internal/adapters/observability"
	"reserva_score/internal/domain"
)

type Store struct {
	livePath string
	histPath string
	log      zerolog.Logger

	// Single-writer queue: Append rewrites nothing but UpdateField rewrites
	// a whole file, so every mutation and snapshot refresh serializes here.
	mu   sync.Mutex
	snap *snapshot
}

// snapshot caches the merged view, keyed by both files' mtimes. Served only
// while neither file has changed; any write from this process drops it.
type snapshot struct {
	rows     []domain.Reservation
	liveMod  time.Time
	histMod  time.Time
	degraded error
}

func New(livePath, histPath string, log zerolog.Logger) *Store {
	return &Store{livePath: livePath, histPath: histPath, log: log}
}

// LoadAll returns the merged, de-duplicated view: live rows first, then
// baseline rows whose id no live row shadows. A missing file is an empty
// source; an unreadable historical file degrades the result and surfaces
// domain.ErrSourceUnavailable alongside the rows that were readable.
func (s *Store) LoadAll(ctx context.Context) ([]domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) ([]domain.Reservation, error) {
	if snap := s.snap; snap != nil &&
		modTime(s.livePath).Equal(snap.liveMod) && modTime(s.histPath).Equal(snap.histMod) {
		observability.ObserveStore("load", "cached")
		return snap.rows, snap.degraded
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	live, err := s.loadLive()
	if err != nil {
		// The live source is this process's own write target; if it exists
		// and cannot be read something is badly wrong.
		observability.ObserveStore("load", "error")
		return nil, err
	}

	var degraded error
	hist, herr := s.loadHistorical()
	if herr != nil {
		degraded = herr
		s.log.Error().Err(herr).Str("path", s.histPath).Msg("historical source unavailable, serving live only")
	}

	seen := make(map[string]struct{}, len(live)+len(hist))
	merged := make([]domain.Reservation, 0, len(live)+len(hist))
	for _, r := range live {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		merged = append(merged, r)
	}
	for _, r := range hist {
		if _, dup := seen[r.ID]; dup {
			continue // live row wins the identity
		}
		seen[r.ID] = struct{}{}
		merged = append(merged, r)
	}

	s.snap = &snapshot{
		rows:     merged,
		liveMod:  modTime(s.livePath),
		histMod:  modTime(s.histPath),
		degraded: degraded,
	}
	observability.ObserveStore("load", "ok")
	return merged, degraded
}

// FindByID returns the reservation with the given identifier, normalizing
// both sides of the comparison. domain.ErrNotFound on a miss.
func (s *Store) FindByID(ctx context.Context, id string) (domain.Reservation, error) {
	want := domain.NormalizeID(id)
	rows, err := s.LoadAll(ctx)
	if err != nil && !errors.Is(err, domain.ErrSourceUnavailable) {
		return domain.Reservation{}, err
	}
	for _, r := range rows {
		if r.ID == want {
			return r, nil
		}
	}
	return domain.Reservation{}, fmt.Errorf("reservation %s: %w", want, domain.ErrNotFound)
}

// Append writes exactly one row to the live source, creating the file with
// the fixed 21-column header when absent. The record layout never varies.
func (s *Store) Append(ctx context.Context, r domain.Reservation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// A blank id would persist a row no load can ever resolve.
	if domain.NormalizeID(r.ID) == "" {
		observability.ObserveStore("append", "error")
		return fmt.Errorf("%w: reservation id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.livePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		observability.ObserveStore("append", "error")
		return fmt.Errorf("open live source: %w: %v", domain.ErrPersistence, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		observability.ObserveStore("append", "error")
		return fmt.Errorf("stat live source: %w: %v", domain.ErrPersistence, err)
	}

	w := csv.NewWriter(f)
	if st.Size() == 0 {
		if err := w.Write(liveColumns); err != nil {
			observability.ObserveStore("append", "error")
			return fmt.Errorf("write header: %w: %v", domain.ErrPersistence, err)
		}
	}
	if err := w.Write(liveRecord(r)); err != nil {
		observability.ObserveStore("append", "error")
		return fmt.Errorf("write row: %w: %v", domain.ErrPersistence, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		observability.ObserveStore("append", "error")
		return fmt.Errorf("flush live source: %w: %v", domain.ErrPersistence, err)
	}

	s.snap = nil
	observability.ObserveStore("append", "ok")
	return nil
}

// UpdateField rewrites one cell of one row. Only status, the
// retention-offer fields and the model probability are updatable; the
// booking baseline is immutable.
// The row is located in the live source first, then the historical one, and
// the owning file is rewritten atomically. Returns false when no row
// matches; never partially writes.
func (s *Store) UpdateField(ctx context.Context, id, field, value string) (bool, error) {
	if _, ok := updatableFields[field]; !ok {
		return false, fmt.Errorf("%w: field %s is not updatable", domain.ErrInvalidInput, field)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	want := domain.NormalizeID(id)
	for _, path := range []string{s.livePath, s.histPath} {
		// Only the historical export may grow annotation columns; the live
		// schema is fixed at its 21 columns.
		done, err := s.rewriteCell(path, want, field, value, path == s.histPath)
		if err != nil {
			observability.ObserveStore("update", "error")
			return false, err
		}
		if done {
			s.snap = nil
			observability.ObserveStore("update", "ok")
			return true, nil
		}
	}
	observability.ObserveStore("update", "miss")
	return false, nil
}

// rewriteCell loads path fully, updates the matching row's cell, and swaps
// the file via temp+rename. With allowGrow, a field the file's schema lacks
// is appended as a new trailing column (the historical export grows its
// offer columns on first use).
func (s *Store) rewriteCell(path, id, field, value string, allowGrow bool) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("open %s: %w: %v", filepath.Base(path), domain.ErrPersistence, err)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	f.Close()
	if err != nil {
		return false, fmt.Errorf("read %s: %w: %v", filepath.Base(path), domain.ErrPersistence, err)
	}
	if len(records) == 0 {
		return false, nil
	}

	h := headerOf(records[0])
	idx, ok := h[field]
	if !ok && !allowGrow {
		return false, nil
	}
	found := false
	for i := 1; i < len(records); i++ {
		if domain.NormalizeID(h.cell(records[i], colID)) != id {
			continue
		}
		if !ok {
			// introduce the column once, for the whole file
			records[0] = append(records[0], field)
			idx = len(records[0]) - 1
			ok = true
		}
		for len(records[i]) <= idx {
			records[i] = append(records[i], "")
		}
		records[i][idx] = value
		found = true
		break
	}
	if !found {
		return false, nil
	}

	// pad every row to the (possibly grown) header width
	width := len(records[0])
	for i := 1; i < len(records); i++ {
		for len(records[i]) < width {
			records[i] = append(records[i], "")
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".reserva-*")
	if err != nil {
		return false, fmt.Errorf("temp file: %w: %v", domain.ErrPersistence, err)
	}
	w := csv.NewWriter(tmp)
	if err := w.WriteAll(records); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return false, fmt.Errorf("rewrite %s: %w: %v", filepath.Base(path), domain.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return false, fmt.Errorf("close temp: %w: %v", domain.ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return false, fmt.Errorf("swap %s: %w: %v", filepath.Base(path), domain.ErrPersistence, err)
	}
	return true, nil
}

/********** source loaders **********/

// loadLive reads the live source. Malformed rows are skipped with a warning
// rather than failing the load; live writes from older builds must never
// take the whole store down.
func (s *Store) loadLive() ([]domain.Reservation, error) {
	f, err := os.Open(s.livePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("live source: %w: %v", domain.ErrSourceUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	head, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("live source header: %w: %v", domain.ErrSourceUnavailable, err)
	}
	h := headerOf(head)

	var out []domain.Reservation
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.log.Warn().Err(err).Int("line", line).Msg("skipping malformed live row")
			observability.ObserveStore("load_row", "skipped")
			continue
		}
		res, err := decodeRow(h, row, sourceLive)
		if err != nil {
			s.log.Warn().Err(err).Int("line", line).Msg("skipping unparsable live row")
			observability.ObserveStore("load_row", "skipped")
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

// loadHistorical reads the baseline. Missing optional columns are fine; a
// missing file is an empty source; anything unreadable surfaces as
// domain.ErrSourceUnavailable so callers degrade instead of aborting.
func (s *Store) loadHistorical() ([]domain.Reservation, error) {
	f, err := os.Open(s.histPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("historical source: %w: %v", domain.ErrSourceUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	head, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("historical header: %w: %v", domain.ErrSourceUnavailable, err)
	}
	h := headerOf(head)
	for _, req := range historicalRequired {
		if !h.has(req) {
			return nil, fmt.Errorf("historical header missing %s: %w", req, domain.ErrSourceUnavailable)
		}
	}

	var out []domain.Reservation
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("historical row %d: %w: %v", line, domain.ErrSourceUnavailable, err)
		}
		res, derr := decodeRow(h, row, sourceBaseline)
		if derr != nil {
			s.log.Warn().Err(derr).Int("line", line).Msg("skipping unparsable historical row")
			observability.ObserveStore("load_row", "skipped")
			continue
		}
		out = append(out, res)
	}
	return out, nil
}

// decodeRow projects one CSV row of either source onto the canonical
// Reservation shape. Identifier and dates are normalized here, once, at the
// store boundary.
func decodeRow(h header, row []string, defaultTag string) (domain.Reservation, error) {
	id := domain.NormalizeID(h.cell(row, colID))
	if id == "" {
		return domain.Reservation{}, fmt.Errorf("blank %s", colID)
	}
	nights, err := parseIntCell(h.cell(row, colNights))
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %v", colNights, err)
	}
	guests, err := parseIntCell(h.cell(row, colGuests))
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %v", colGuests, err)
	}
	value, err := parseFloatCell(h.cell(row, colValue))
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %v", colValue, err)
	}
	prob, err := parseFloatCell(h.cell(row, colProb))
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("%s: %v", colProb, err)
	}

	hotel := h.cell(row, colHotel)
	if hotel == "" {
		hotel = h.cell(row, colHotelAlias)
	}
	tag := h.cell(row, colSourceTag)
	if tag == "" {
		tag = defaultTag
	}

	return domain.Reservation{
		ID:          id,
		Arrival:     parseDate(h.cell(row, colArrival)),
		Departure:   parseDate(h.cell(row, colDeparture)),
		Nights:      nights,
		Guests:      guests,
		Value:       value,
		RoomCode:    h.cell(row, colRoom),
		Channel:     optStr(h.cell(row, colChannel)),
		Market:      optStr(h.cell(row, colMarket)),
		Agency:      optStr(h.cell(row, colAgency)),
		HotelName:   optStr(hotel),
		ComplexName: optStr(h.cell(row, colComplex)),
		CancelProb:  normalizeProb(prob),
		SourceTag:   tag,
		ClientName:  optStr(h.cell(row, colClient)),
		Email:       optStr(h.cell(row, colEmail)),
		Segment:     optStr(h.cell(row, colSegment)),
		Loyalty:     optStr(h.cell(row, colLoyalty)),
		Acquisition: optStr(h.cell(row, colAcq)),
		CreatedAt:   parseDate(h.cell(row, colCreated)),
		Status:      optStr(h.cell(row, colStatus)),
		OfferText:   optStr(h.cell(row, colOfferText)),
		OfferDate:   parseDate(h.cell(row, colOfferDate)),
		OfferStatus: optStr(h.cell(row, colOfferStatus)),
	}, nil
}

func modTime(path string) time.Time {
	st, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return st.ModTime()
}
