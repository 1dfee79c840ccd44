// test/benchmarks/helpers.go
package benchmarks

import (
	"bytes"
	"fmt"
	"time"

	"github.com/tealeg/xlsx/v3"
)

// createSalesCSV generates CSV content with the given number of data
// rows, shaped like a real bulk sales upload.
func createSalesCSV(numRows int) []byte {
	var content bytes.Buffer
	content.WriteString("product,date,quantity\n")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < numRows; i++ {
		soldAt := base.AddDate(0, 0, i%90)
		fmt.Fprintf(&content, "%d,%s,%d\n", i%200+1, soldAt.Format("2006-01-02"), i%5+1)
	}

	return content.Bytes()
}

// createSalesXLSX generates a single-sheet workbook with the same shape
// as createSalesCSV output.
func createSalesXLSX(numRows int) ([]byte, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sales")
	if err != nil {
		return nil, err
	}

	header := sheet.AddRow()
	for _, col := range []string{"product", "date", "quantity"} {
		header.AddCell().SetString(col)
	}

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < numRows; i++ {
		row := sheet.AddRow()
		row.AddCell().SetString(fmt.Sprintf("%d", i%200+1))
		row.AddCell().SetString(base.AddDate(0, 0, i%90).Format("2006-01-02"))
		row.AddCell().SetString(fmt.Sprintf("%d", i%5+1))
	}

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
