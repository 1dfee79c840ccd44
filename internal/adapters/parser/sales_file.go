// internal/adapters/parser/sales_file.go
package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/internal/core/ports"
)

// Column headers a sales file must carry. Matching is case-insensitive
// and order-independent.
const (
	columnProduct  = "product"
	columnDate     = "date"
	columnQuantity = "quantity"
)

// acceptedTimeLayouts are tried in order when parsing the date column.
var acceptedTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// SalesFileParser turns uploaded CSV or XLSX content into sale rows.
type SalesFileParser struct {
	logger *slog.Logger
}

var _ ports.SalesFileParser = (*SalesFileParser)(nil)

// NewSalesFileParser creates a new sales file parser
func NewSalesFileParser(logger *slog.Logger) *SalesFileParser {
	return &SalesFileParser{
		logger: logger.With(slog.String("component", "sales_parser")),
	}
}

// Parse reads the file content and returns one sale row per data line.
// The format is chosen by file extension; anything that is not .xlsx is
// treated as CSV.
func (p *SalesFileParser) Parse(fileName string, data []byte) ([]domain.SaleRow, error) {
	if len(data) == 0 {
		return nil, domain.NewValidationError("file is empty")
	}

	var records [][]string
	var err error

	if strings.EqualFold(filepath.Ext(fileName), ".xlsx") {
		records, err = readXLSX(data)
	} else {
		records, err = readCSV(data)
	}
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, domain.NewValidationError("file has no header row")
	}

	cols, err := mapColumns(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([]domain.SaleRow, 0, len(records)-1)
	for i, record := range records[1:] {
		row, empty, err := parseRecord(record, cols)
		if err != nil {
			// Data rows are 1-based and follow the header
			return nil, domain.NewValidationError(fmt.Sprintf("row %d: %s", i+2, err.Error()))
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, domain.NewValidationError("file has no data rows")
	}

	p.logger.Debug("sales file parsed",
		slog.String("file_name", fileName),
		slog.Int("rows", len(rows)))

	return rows, nil
}

// columnIndexes maps the required headers to their positions.
type columnIndexes struct {
	product  int
	date     int
	quantity int
}

func mapColumns(header []string) (columnIndexes, error) {
	cols := columnIndexes{product: -1, date: -1, quantity: -1}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case columnProduct:
			cols.product = i
		case columnDate:
			cols.date = i
		case columnQuantity:
			cols.quantity = i
		}
	}

	var missing []string
	if cols.product < 0 {
		missing = append(missing, columnProduct)
	}
	if cols.date < 0 {
		missing = append(missing, columnDate)
	}
	if cols.quantity < 0 {
		missing = append(missing, columnQuantity)
	}
	if len(missing) > 0 {
		return cols, domain.NewValidationError(
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}

	return cols, nil
}

func parseRecord(record []string, cols columnIndexes) (domain.SaleRow, bool, error) {
	get := func(i int) string {
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	productRaw := get(cols.product)
	dateRaw := get(cols.date)
	quantityRaw := get(cols.quantity)

	// Fully blank lines are skipped rather than rejected
	if productRaw == "" && dateRaw == "" && quantityRaw == "" {
		return domain.SaleRow{}, true, nil
	}

	productID, err := strconv.ParseInt(productRaw, 10, 64)
	if err != nil || productID <= 0 {
		return domain.SaleRow{}, false, fmt.Errorf("invalid product %q", productRaw)
	}

	soldAt, err := parseTime(dateRaw)
	if err != nil {
		return domain.SaleRow{}, false, fmt.Errorf("invalid date %q", dateRaw)
	}

	quantity, err := strconv.ParseInt(quantityRaw, 10, 64)
	if err != nil || quantity < 0 {
		return domain.SaleRow{}, false, fmt.Errorf("invalid quantity %q", quantityRaw)
	}

	return domain.SaleRow{
		ProductID: productID,
		SoldAt:    soldAt,
		Quantity:  quantity,
	}, false, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range acceptedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format")
}

func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	// Rows may omit trailing cells
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("malformed CSV: %s", err.Error()))
		}
		records = append(records, record)
	}

	return records, nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("malformed XLSX: %s", err.Error()))
	}

	if len(file.Sheets) == 0 {
		return nil, domain.NewValidationError("XLSX file has no sheets")
	}

	sheet := file.Sheets[0]
	var records [][]string

	err = sheet.ForEachRow(func(r *xlsx.Row) error {
		var record []string
		cellErr := r.ForEachCell(func(c *xlsx.Cell) error {
			record = append(record, strings.TrimSpace(c.String()))
			return nil
		})
		if cellErr != nil {
			return cellErr
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read XLSX rows: %w", err)
	}

	return records, nil
}
