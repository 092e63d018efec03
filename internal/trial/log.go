package trial

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LogFileName is the cross-participant trial log
const LogFileName = "time_data_collection.csv"

// ErrDuplicateTrial reports a participant and protocol pair that is already logged
var ErrDuplicateTrial = errors.New("trial already recorded")

var logHeader = []string{"Participant", "Protocol", "Time (seconds)", "RPE", "Mean HR"}

// Entry is one finished trial in the log
type Entry struct {
	Participant string
	Protocol    string
	Elapsed     time.Duration
	RPE         int // Borg scale 6-20, 0 when not reported
	MeanHR      float64
}

func (e Entry) record() []string {
	rpe := ""
	if e.RPE > 0 {
		rpe = strconv.Itoa(e.RPE)
	}
	return []string{
		e.Participant,
		e.Protocol,
		strconv.FormatFloat(round2(e.Elapsed.Seconds()), 'f', -1, 64),
		rpe,
		strconv.FormatFloat(e.MeanHR, 'f', -1, 64),
	}
}

// ValidRPE reports whether rpe is on the Borg 6-20 scale or unset
func ValidRPE(rpe int) bool {
	return rpe == 0 || (rpe >= 6 && rpe <= 20)
}

// AppendEntry adds a finished trial to the log in dir, creating the file
// with its header when needed.
func AppendEntry(dir string, e Entry) error {
	if !ValidRPE(e.RPE) {
		return fmt.Errorf("RPE %d is outside 6-20", e.RPE)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %q: %w", dir, err)
	}

	path := filepath.Join(dir, LogFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %q: %w", path, err)
	}

	w := csv.NewWriter(file)
	w.Comma = csvDelimiter
	if info.Size() == 0 {
		if err := w.Write(logHeader); err != nil {
			return err
		}
	}
	if err := w.Write(e.record()); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// ReadEntries returns the logged trials in dir, oldest first.
// A missing log yields no entries.
func ReadEntries(dir string) ([]Entry, error) {
	path := filepath.Join(dir, LogFileName)
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.Comma = csvDelimiter
	r.FieldsPerRecord = len(logHeader)

	entries := []Entry{}
	for line := 1; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %q: %w", path, err)
		}
		if line == 1 && rec[0] == logHeader[0] {
			continue
		}
		e, err := parseEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		entries = append(entries, e)
	}
}

// CheckNotRecorded fails with ErrDuplicateTrial when the log in dir already
// holds a trial for participant under protocol. Names must match exactly.
func CheckNotRecorded(dir, participant, protocol string) error {
	entries, err := ReadEntries(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Participant == participant && e.Protocol == protocol {
			return fmt.Errorf("%w: participant %q already has data for protocol %q", ErrDuplicateTrial, participant, protocol)
		}
	}
	return nil
}

func parseEntry(rec []string) (Entry, error) {
	seconds, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("bad time %q: %w", rec[2], err)
	}
	rpe := 0
	if rec[3] != "" {
		if rpe, err = strconv.Atoi(rec[3]); err != nil {
			return Entry{}, fmt.Errorf("bad RPE %q: %w", rec[3], err)
		}
	}
	mean, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("bad mean HR %q: %w", rec[4], err)
	}
	return Entry{
		Participant: rec[0],
		Protocol:    rec[1],
		Elapsed:     time.Duration(seconds * float64(time.Second)),
		RPE:         rpe,
		MeanHR:      mean,
	}, nil
}
