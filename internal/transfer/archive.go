// Package transfer reads and writes the transaction export archive and
// checks import files before they are uploaded.
//
// An export is a zip archive holding a single JSON document named
// Transactions_YYYYMMDD.json: an array of transaction records with the
// owning user's id. Imports are the same array, uncompressed; ids are
// ignored and new ones are assigned on upload.
package transfer

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"flowfinance/internal/core"
)

const filePrefix = "Transactions_"

var (
	ErrEmptyArchive  = errors.New("archive contains no transactions document")
	ErrMalformedFile = errors.New("malformed transactions file")
)

// Record is one exported transaction.
type Record struct {
	core.Transaction
	UserID core.ID `json:"user_id"`
}

// BaseName returns the export name stem for the given day, e.g.
// Transactions_20240131.
func BaseName(now time.Time) string {
	return filePrefix + now.Format("20060102")
}

// WriteArchive writes transactions as an export archive to w.
func WriteArchive(w io.Writer, userID core.ID, txs []core.Transaction, now time.Time) error {
	records := make([]Record, len(txs))
	for i, tx := range txs {
		records[i] = Record{Transaction: tx, UserID: userID}
	}
	doc, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}

	zw := zip.NewWriter(w)
	entry, err := zw.Create(BaseName(now) + ".json")
	if err != nil {
		return fmt.Errorf("create archive entry: %w", err)
	}
	if _, err := entry.Write(doc); err != nil {
		return fmt.Errorf("write archive entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}

// ReadArchive decodes the transactions stored in an export archive.
func ReadArchive(data []byte) ([]core.Transaction, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	for _, f := range zr.File {
		name := path.Base(f.Name)
		if f.FileInfo().IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		var records []Record
		err = json.NewDecoder(rc).Decode(&records)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrMalformedFile, f.Name, err)
		}

		txs := make([]core.Transaction, len(records))
		for i, r := range records {
			txs[i] = r.Transaction
		}
		return txs, nil
	}
	return nil, ErrEmptyArchive
}
