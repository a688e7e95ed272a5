package main

import (
	"fmt"
	"time"

	"github.com/devblok/ffp/utility/kar"
)

// row is one archive entry as shown in the list.
type row struct {
	Name       string
	Size       int64
	Compressed int64
	Ratio      string
}

// describe summarises the archive header and lists its entries.
func describe(archive *kar.Archive) (string, []row, error) {
	header := archive.Header()
	summary := fmt.Sprintf("%s, version %d, created %s, %d files",
		header.Author, header.Version,
		time.Unix(header.DateCreated, 0).UTC().Format("2006-01-02 15:04"),
		len(header.Index))

	var rows []row
	for _, name := range archive.Names() {
		entry, err := archive.Stat(name)
		if err != nil {
			return "", nil, err
		}
		rows = append(rows, row{
			Name:       entry.Name,
			Size:       entry.Size,
			Compressed: entry.CompressedSize,
			Ratio:      ratio(entry.Size, entry.CompressedSize),
		})
	}
	return summary, rows, nil
}

func ratio(size, compressed int64) string {
	if size == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", float64(compressed)/float64(size)*100)
}
