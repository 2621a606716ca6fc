package data

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// ReadBarsJSONL decodes one bar per line. Blank lines are skipped and the
// result is sorted by time.
func ReadBarsJSONL(r io.Reader) ([]Bar, error) {
	var bars []Bar
	scanner := bufio.NewScanner(r)

	// Increase buffer size for large lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var bar Bar
		if err := json.Unmarshal(line, &bar); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		bars = append(bars, bar)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

// WriteBarsJSONL encodes bars one per line.
func WriteBarsJSONL(w io.Writer, bars []Bar) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := range bars {
		if err := enc.Encode(&bars[i]); err != nil {
			return fmt.Errorf("encoding bar %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// LoadBarsFile reads a JSONL bar file from disk.
func LoadBarsFile(path string) ([]Bar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadBarsJSONL(file)
}
