package attendance

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kozaktomas/face-attend/internal/constants"
	"github.com/kozaktomas/face-attend/internal/identity"
)

// Record is one committed attendance event.
type Record struct {
	Identity identity.Identity
	Time     time.Time
}

// Ledger is the append-only CSV of attendance records, one row
// `department,batch,student,"YYYY-MM-DD HH:MM:SS"` per event.
type Ledger struct {
	mu   sync.Mutex
	path string
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the ledger file location.
func (l *Ledger) Path() string {
	return l.path
}

// Append writes one record.
func (l *Ledger) Append(rec Record) error {
	if err := rec.Identity.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}

	// Tokens are sanitized, so only the timestamp needs quoting.
	_, err = fmt.Fprintf(f, "%s,%s,%s,\"%s\"\n",
		rec.Identity.Department, rec.Identity.Batch, rec.Identity.Student,
		rec.Time.Format(constants.LedgerTimeLayout))
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to append to ledger: %w", err)
	}
	return f.Close()
}

// ReadAll returns every well-formed record in file order. Rows with fewer
// than four fields, an unparsable timestamp or an invalid identity are
// skipped. A missing ledger is empty.
func (l *Ledger) ReadAll() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records []Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("failed to read ledger: %w", err)
		}
		if rec, ok := parseRow(row); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// MarkedOn returns the identity keys with a record on the calendar day of day.
func (l *Ledger) MarkedOn(day time.Time) (map[string]struct{}, error) {
	records, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	marked := make(map[string]struct{})
	for _, rec := range records {
		if sameDay(rec.Time, day) {
			marked[rec.Identity.Key()] = struct{}{}
		}
	}
	return marked, nil
}

func parseRow(row []string) (Record, bool) {
	if len(row) < 4 {
		return Record{}, false
	}
	ts, err := time.ParseInLocation(constants.LedgerTimeLayout, row[3], time.Local)
	if err != nil {
		return Record{}, false
	}
	id := identity.FromTokens(row[1], row[0], row[2])
	if id.Validate() != nil {
		return Record{}, false
	}
	return Record{Identity: id, Time: ts}, true
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
