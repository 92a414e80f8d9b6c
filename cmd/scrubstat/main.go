// scrubstat converts a zstd-compressed gob archive of scrubber drop
// events (as written by events.Archiver) into a CSV file, the same role
// the teacher's csvtool played for ArchiveRecord snapshots.
package main

import (
	"encoding/gob"
	"io"
	"log"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/m-lab/go/rtx"

	"github.com/edgescrub/scrubcore/events"
	"github.com/edgescrub/scrubcore/zstd"
)

func init() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}

// A variable to enable mocking for testing.
var logFatal = log.Fatal

// readRecords decodes every gob-encoded events.Record from rdr until EOF.
func readRecords(rdr io.Reader) ([]*events.Record, error) {
	dec := gob.NewDecoder(rdr)
	var records []*events.Record
	for {
		var rec events.Record
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				return records, nil
			}
			return nil, err
		}
		records = append(records, &rec)
	}
}

func toCSV(records []*events.Record, wtr io.Writer) error {
	return gocsv.Marshal(records, wtr)
}

// openFile either opens a plain file, or opens and decompresses a file
// ending in .zst through the same external zstd pipe events.Archiver
// wrote with.
func openFile(fn string) (io.ReadCloser, error) {
	if strings.HasSuffix(fn, ".zst") {
		return zstd.NewReader(fn), nil
	}
	return os.Open(fn)
}

func main() {
	args := os.Args[1:]

	var source io.ReadCloser
	var err error
	source = os.Stdin
	if len(args) == 1 {
		source, err = openFile(args[0])
		rtx.Must(err, "Could not open file %q", args[0])
	} else if len(args) > 1 {
		logFatal("Too many command-line arguments.")
	}
	defer source.Close()

	records, err := readRecords(source)
	rtx.Must(err, "Could not read event records")
	rtx.Must(toCSV(records, os.Stdout), "Could not convert input to CSV")
}
