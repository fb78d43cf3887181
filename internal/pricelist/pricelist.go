// Package pricelist reads supplier price sheets (CSV or XLSX) into price
// updates. A sheet needs a header row with an ingredient id and a price
// column; supplier and brand columns are optional.
package pricelist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/recipecost/internal/normalize"
)

// Row is one price line of a sheet. Line is the 1-based line in the source,
// header included. Err is set when the line could not be read; such a row
// carries no usable price and the rest of the sheet is still returned.
type Row struct {
	Line         int     `json:"line"`
	IngredientID string  `json:"ingredient_id"`
	Price        float64 `json:"price"`
	Supplier     string  `json:"supplier,omitempty"`
	Brand        string  `json:"brand,omitempty"`
	Err          error   `json:"-"`
}

// Valid reports whether the row can be applied.
func (r Row) Valid() bool {
	return r.Err == nil
}

var ErrUnsupportedFormat = errors.New("unsupported price list format")

// header aliases, compared lower-cased and trimmed
var columnAliases = map[string][]string{
	"ingredient_id": {"ingredient_id", "ingredient", "id"},
	"price":         {"price", "price_per_kg", "price/kg"},
	"supplier":      {"supplier"},
	"brand":         {"brand"},
}

// Read parses r according to the extension of name.
func Read(name string, r io.Reader) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// ReadCSV parses a comma separated sheet.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return parseRecords(records)
}

// ReadXLSX parses the first sheet of a workbook.
func ReadXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	return parseRecords(records)
}

func parseRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("price list is empty")
	}

	// 1. Map header to indices
	colMap := make(map[string]int)
	for i, col := range records[0] {
		colMap[strings.ToLower(strings.TrimSpace(col))] = i
	}
	index := make(map[string]int, len(columnAliases))
	for field, aliases := range columnAliases {
		index[field] = -1
		for _, alias := range aliases {
			if i, ok := colMap[alias]; ok {
				index[field] = i
				break
			}
		}
	}

	// 2. Validate required columns
	for _, field := range []string{"ingredient_id", "price"} {
		if index[field] < 0 {
			return nil, fmt.Errorf("missing required column: %s", field)
		}
	}

	// 3. Process rows. A bad line is kept with its error so one typo does
	// not drop the whole sheet.
	rows := make([]Row, 0, len(records)-1)
	for n, record := range records[1:] {
		line := n + 2
		id := cell(record, index["ingredient_id"])
		rawPrice := cell(record, index["price"])
		if id == "" && rawPrice == "" {
			continue
		}

		row := Row{
			Line:         line,
			IngredientID: id,
			Supplier:     cell(record, index["supplier"]),
			Brand:        cell(record, index["brand"]),
		}

		price, ok := normalize.ParseNumber(rawPrice)
		switch {
		case id == "":
			row.Err = fmt.Errorf("line %d: missing ingredient id", line)
		case !ok || price < 0:
			row.Err = fmt.Errorf("line %d: invalid price %q for %s", line, rawPrice, id)
		default:
			row.Price = price
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
