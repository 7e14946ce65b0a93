package timeseries

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/sartorproj/autoforecast/errs"
)

func TestLoadCSVFromReader(t *testing.T) {
	csvData := `Mês,Onibus
2020-01-01,100
2020-02-01,101
2020-03-01,102
2020-04-01,103
2020-05-01,104`

	series, err := LoadCSVFromReader(strings.NewReader(csvData), DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, 5, series.Len())
	assert.Equal(t, "Onibus", series.Name)
	assert.Equal(t, Monthly, series.Freq)
	assert.Equal(t, []float64{100, 101, 102, 103, 104}, series.Values)
	assert.Equal(t, time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), series.Last())
}

func TestLoadCSVStripsByteOrderMark(t *testing.T) {
	csvData := "\uFEFFMês,Onibus\n2020-01-01,100\n2020-02-01,101\n2020-03-01,102\n"

	series, err := LoadCSVFromReader(strings.NewReader(csvData), &LoadOptions{TimeColumn: "Mês", ValueColumn: "Onibus"})
	require.NoError(t, err)
	assert.Equal(t, "Onibus", series.Name)
	assert.Equal(t, 3, series.Len())
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), series.Timestamps[0])
}

func TestLoadCSVSortsAndDeduplicates(t *testing.T) {
	csvData := `date,value
2020-03-01,3
2020-01-01,1
2020-02-01,2
2020-02-01,20`

	series, err := LoadCSVFromReader(strings.NewReader(csvData), DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 20, 3}, series.Values, "the last duplicate should win")
	assert.True(t, series.Timestamps[0].Before(series.Timestamps[1]))
}

func TestLoadCSVExplicitColumns(t *testing.T) {
	csvData := `id;period;Onibus;Caminhoes
a;01/2020;10;1
a;02/2020;11;2
a;03/2020;12;3`

	opts := &LoadOptions{TimeColumn: "period", ValueColumn: "Onibus", Delimiter: ';'}
	series, err := LoadCSVFromReader(strings.NewReader(csvData), opts)
	require.NoError(t, err)

	assert.Equal(t, []float64{10, 11, 12}, series.Values)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), series.Timestamps[0])
}

func TestLoadCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		opts *LoadOptions
		want string
	}{
		{"empty", ``, nil, "empty"},
		{"missing target", "date,y\n2020-01-01,1\n2020-02-01,2\n2020-03-01,3", &LoadOptions{ValueColumn: "Onibus"}, "target column"},
		{"missing time column", "date,y\n2020-01-01,1\n2020-02-01,2\n2020-03-01,3", &LoadOptions{TimeColumn: "Mês"}, "time column"},
		{"bad timestamp", "date,y\n2020-01-01,1\nsoon,2\n2020-03-01,3", nil, "cannot parse timestamp"},
		{"missing value", "date,y\n2020-01-01,1\n2020-02-01,NA\n2020-03-01,3", nil, "missing value"},
		{"non numeric", "date,y\n2020-01-01,1\n2020-02-01,abc\n2020-03-01,3", nil, "invalid syntax"},
		{"gap", "date,y\n2020-01-01,1\n2020-02-01,2\n2020-05-01,5\n2020-06-01,6", nil, "2 missing periods"},
		{"too short", "date,y\n2020-01-01,1\n2020-02-01,2", nil, "at least 3"},
		{"ambiguous target", "date,a,b\n2020-01-01,1,1\n2020-02-01,2,2\n2020-03-01,3,3", nil, "cannot pick a target"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSVFromReader(strings.NewReader(tt.data), tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, errs.ErrDataLoad)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadGapNamesFirstMissingPeriod(t *testing.T) {
	data := "date,y\n2020-01-01,1\n2020-02-01,2\n2020-04-01,4\n2020-05-01,5"

	_, err := LoadCSVFromReader(strings.NewReader(data), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first missing at 2020-03-01")
}

func TestLoadXLSXFromReader(t *testing.T) {
	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)
	require.NoError(t, book.SetCellValue(sheet, "A1", "Mês"))
	require.NoError(t, book.SetCellValue(sheet, "B1", "Onibus"))
	for i := 0; i < 24; i++ {
		row := i + 2
		require.NoError(t, book.SetCellValue(sheet, fmt.Sprintf("A%d", row), Monthly.Add(time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), i).Format("2006-01-02")))
		require.NoError(t, book.SetCellValue(sheet, fmt.Sprintf("B%d", row), 1000+i*10))
	}
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)

	series, err := LoadXLSXFromReader(bytes.NewReader(buf.Bytes()), &LoadOptions{TimeColumn: "Mês", ValueColumn: "Onibus"})
	require.NoError(t, err)

	assert.Equal(t, 24, series.Len())
	assert.Equal(t, "Onibus", series.Name)
	assert.Equal(t, 1230.0, series.Values[23])
	assert.Equal(t, time.Date(2019, 12, 1, 0, 0, 0, 0, time.UTC), series.Last())
}

func TestLoadXLSXSerialDates(t *testing.T) {
	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)
	require.NoError(t, book.SetCellValue(sheet, "A1", "date"))
	require.NoError(t, book.SetCellValue(sheet, "B1", "y"))
	// 43831 is 2020-01-01 in the 1900 date system.
	serials := []int{43831, 43862, 43891}
	for i, s := range serials {
		require.NoError(t, book.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), s))
		require.NoError(t, book.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), i+1))
	}
	buf, err := book.WriteToBuffer()
	require.NoError(t, err)

	series, err := LoadXLSXFromReader(bytes.NewReader(buf.Bytes()), nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), series.Last())
	assert.Equal(t, Monthly, series.Freq)
}

func TestLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "series.tsv")
	require.NoError(t, os.WriteFile(path, []byte("ds\ty\n2020-01-01\t1\n2020-01-02\t2\n2020-01-03\t3\n"), 0o644))

	series, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, Daily, series.Freq)

	_, err = Load(filepath.Join(dir, "missing.csv"), nil)
	assert.ErrorIs(t, err, errs.ErrDataLoad)
}
