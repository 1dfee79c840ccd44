package parser_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/stockledger-be/internal/adapters/parser"
	"github.com/ammerola/stockledger-be/internal/core/domain"
	"github.com/ammerola/stockledger-be/test/helpers"
)

func TestSalesFileParser_ParseCSV(t *testing.T) {
	p := parser.NewSalesFileParser(helpers.TestLogger())

	tests := []struct {
		name      string
		content   string
		wantRows  int
		wantError string
	}{
		{
			name:     "parses_valid_rows",
			content:  "product,date,quantity\n1,2024-03-01,5\n2,2024-03-02,3\n",
			wantRows: 2,
		},
		{
			name:     "accepts_columns_in_any_order",
			content:  "quantity,product,date\n7,1,2024-03-01\n",
			wantRows: 1,
		},
		{
			name:     "accepts_mixed_case_headers",
			content:  "Product,Date,Quantity\n1,2024-03-01,5\n",
			wantRows: 1,
		},
		{
			name:     "accepts_timestamp_dates",
			content:  "product,date,quantity\n1,2024-03-01 13:45:00,5\n",
			wantRows: 1,
		},
		{
			name:     "skips_blank_lines",
			content:  "product,date,quantity\n1,2024-03-01,5\n,,\n2,2024-03-02,3\n",
			wantRows: 2,
		},
		{
			name:     "ignores_extra_columns",
			content:  "product,date,quantity,note\n1,2024-03-01,5,restock\n",
			wantRows: 1,
		},
		{
			name:      "rejects_missing_column",
			content:   "product,quantity\n1,5\n",
			wantError: "missing required columns: date",
		},
		{
			name:      "rejects_bad_product",
			content:   "product,date,quantity\nwidget,2024-03-01,5\n",
			wantError: "row 2",
		},
		{
			name:      "rejects_bad_date",
			content:   "product,date,quantity\n1,yesterday,5\n",
			wantError: "row 2",
		},
		{
			name:      "rejects_negative_quantity",
			content:   "product,date,quantity\n1,2024-03-01,-5\n",
			wantError: "row 2",
		},
		{
			name:      "rejects_empty_file",
			content:   "",
			wantError: "file is empty",
		},
		{
			name:      "rejects_header_only",
			content:   "product,date,quantity\n",
			wantError: "no data rows",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := p.Parse("sales.csv", []byte(tt.content))

			if tt.wantError != "" {
				require.Error(t, err)
				assert.True(t, domain.IsValidation(err), "expected validation error, got %v", err)
				assert.Contains(t, err.Error(), tt.wantError)
				return
			}

			require.NoError(t, err)
			assert.Len(t, rows, tt.wantRows)
		})
	}
}

func TestSalesFileParser_ParseCSV_Values(t *testing.T) {
	p := parser.NewSalesFileParser(helpers.TestLogger())

	rows, err := p.Parse("sales.csv", []byte("product,date,quantity\n42,2024-03-01,5\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, int64(42), rows[0].ProductID)
	assert.Equal(t, int64(5), rows[0].Quantity)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), rows[0].SoldAt)
}

func TestSalesFileParser_ParseXLSX(t *testing.T) {
	p := parser.NewSalesFileParser(helpers.TestLogger())

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sales")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, h := range []string{"product", "date", "quantity"} {
		header.AddCell().SetString(h)
	}
	data := sheet.AddRow()
	data.AddCell().SetString("1")
	data.AddCell().SetString("2024-03-01")
	data.AddCell().SetString("5")

	var buf bytes.Buffer
	require.NoError(t, file.Write(&buf))

	rows, err := p.Parse("sales.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ProductID)
	assert.Equal(t, int64(5), rows[0].Quantity)
}

func TestSalesFileParser_ParseXLSX_Malformed(t *testing.T) {
	p := parser.NewSalesFileParser(helpers.TestLogger())

	_, err := p.Parse("sales.xlsx", []byte("not an xlsx file"))
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}
