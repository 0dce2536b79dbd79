// Package csv encodes and decodes citizen records in the bulk-transfer
// format: semicolon-delimited rows with a header, dates in the invariant
// calendar layout. The semicolon delimiter and fixed date format avoid the
// locale ambiguity that comma-delimited output invites.
package csv

import (
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"civreg/internal/citizen/models"
)

// Delimiter separates fields on the wire.
const Delimiter = ';'

// Column order on encode. Decode is header-driven, so reordered columns are
// tolerated on read.
var header = []string{"Id", "FullName", "Snils", "Inn", "BirthDate", "DeathDate"}

// Encode streams records to w: a header row, then one row per record in
// iteration order. An absent death date encodes as an empty field.
func Encode(w io.Writer, citizens []models.Citizen) error {
	cw := stdcsv.NewWriter(w)
	cw.Comma = Delimiter

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("csv encode: %w", err)
	}
	for _, c := range citizens {
		deathDate := ""
		if c.DeathDate != nil {
			deathDate = c.DeathDate.String()
		}
		row := []string{
			strconv.FormatInt(c.ID, 10),
			c.FullName,
			c.Snils,
			c.Inn,
			c.BirthDate.String(),
			deathDate,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csv encode: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("csv encode: %w", err)
	}
	return nil
}

// Decode parses a header row and subsequent data rows. Columns are located
// by header name (case-insensitive), so reordered input is accepted; unknown
// columns are ignored. Any structural mismatch (inconsistent column count,
// a missing required column, an unparseable id or date) fails the whole
// decode. There is no row-level recovery.
func Decode(r io.Reader) ([]models.Citizen, error) {
	cr := stdcsv.NewReader(r)
	cr.Comma = Delimiter

	head, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("csv decode: missing header row")
		}
		return nil, fmt.Errorf("csv decode: read header: %w", err)
	}

	cols, err := mapColumns(head)
	if err != nil {
		return nil, err
	}

	var citizens []models.Citizen
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv decode: %w", err)
		}
		c, err := decodeRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("csv decode: line %d: %w", line, err)
		}
		citizens = append(citizens, c)
	}
	return citizens, nil
}

// columnMap holds the index of each known column, -1 when absent.
type columnMap struct {
	id, fullName, snils, inn, birthDate, deathDate int
}

func mapColumns(head []string) (columnMap, error) {
	cols := columnMap{id: -1, fullName: -1, snils: -1, inn: -1, birthDate: -1, deathDate: -1}
	for i, name := range head {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "id":
			cols.id = i
		case "fullname":
			cols.fullName = i
		case "snils":
			cols.snils = i
		case "inn":
			cols.inn = i
		case "birthdate":
			cols.birthDate = i
		case "deathdate":
			cols.deathDate = i
		}
	}
	if cols.fullName == -1 {
		return cols, fmt.Errorf("csv decode: missing FullName column")
	}
	if cols.birthDate == -1 {
		return cols, fmt.Errorf("csv decode: missing BirthDate column")
	}
	return cols, nil
}

func decodeRow(row []string, cols columnMap) (models.Citizen, error) {
	field := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var c models.Citizen
	if raw := field(cols.id); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.Citizen{}, fmt.Errorf("invalid id %q", raw)
		}
		c.ID = id
	}
	c.FullName = field(cols.fullName)
	c.Snils = field(cols.snils)
	c.Inn = field(cols.inn)

	birthDate, err := models.ParseDate(field(cols.birthDate))
	if err != nil {
		return models.Citizen{}, err
	}
	c.BirthDate = birthDate

	if raw := field(cols.deathDate); raw != "" {
		deathDate, err := models.ParseDate(raw)
		if err != nil {
			return models.Citizen{}, err
		}
		c.DeathDate = &deathDate
	}
	return c, nil
}
