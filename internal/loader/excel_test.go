package loader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeStartlist(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(t.TempDir(), "startlist.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadStartlist(t *testing.T) {
	path := writeStartlist(t, [][]interface{}{
		{"Outlet", "Website", "Country"},
		{"Politiken", "politiken.dk", "Denmark"},
		{"DR", "dr.dk", "Denmark"},
		{"VG", "vg.no", "Norway"},
		{"", "", ""},
	})

	entries, err := ReadStartlist(path, "")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, StartlistEntry{Website: "politiken.dk", Country: "Denmark"}, entries[0])
}

func TestReadStartlistCountryFilterIsCaseInsensitive(t *testing.T) {
	path := writeStartlist(t, [][]interface{}{
		{"Website", "Country"},
		{"politiken.dk", "Denmark"},
		{"vg.no", "Norway"},
	})

	entries, err := ReadStartlist(path, "denmark")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "politiken.dk", entries[0].Website)
}

func TestReadStartlistMissingColumnsFails(t *testing.T) {
	path := writeStartlist(t, [][]interface{}{
		{"Outlet", "Homepage"},
		{"Politiken", "politiken.dk"},
	})

	_, err := ReadStartlist(path, "")
	assert.Error(t, err)
}

func TestSeedURLs(t *testing.T) {
	urls := SeedURLs([]StartlistEntry{
		{Website: "politiken.dk"},
		{Website: "https://dr.dk"},
		{Website: "politiken.dk"},
	})

	assert.Equal(t, []string{"https://politiken.dk", "https://dr.dk"}, urls)
}
