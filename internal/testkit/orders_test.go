package testkit

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestOrderGeneratorIsDeterministic(t *testing.T) {
	config := DefaultOrderConfig()
	config.OrderCount = 30

	first := NewOrderGenerator(config).Orders()
	second := NewOrderGenerator(config).Orders()
	require.Len(t, first, 30)
	assert.Equal(t, first, second)

	config.Seed = 7
	assert.NotEqual(t, first, NewOrderGenerator(config).Orders())
}

func TestOrderGeneratorStaysInWindow(t *testing.T) {
	config := DefaultOrderConfig()
	for _, o := range NewOrderGenerator(config).Orders() {
		assert.False(t, o.PlacedAt.Before(config.StartDate), o.ID)
		assert.True(t, o.PlacedAt.Before(config.EndDate), o.ID)
		assert.Equal(t, 0, o.PlacedAt.Second(), o.ID)
		assert.GreaterOrEqual(t, o.Amount, 5.0)
		assert.LessOrEqual(t, len(o.Tags), 3)
	}
}

func TestWriteWorkbookLayout(t *testing.T) {
	config := DefaultOrderConfig()
	config.OrderCount = 6
	config.BlankEvery = 3
	gen := NewOrderGenerator(config)

	var buf bytes.Buffer
	require.NoError(t, gen.WriteWorkbook(&buf, "Orders"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Orders"}, f.GetSheetList())

	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	// header, three orders, blank, three orders
	require.Len(t, rows, 8)
	assert.Equal(t, OrderColumns, rows[0])
	assert.Empty(t, rows[4])

	orders := gen.Orders()
	assert.Equal(t, orders[0].ID, rows[1][0])
	assert.Equal(t, orders[3].ID, rows[5][0])

	styleID, err := f.GetCellStyle("Orders", "F2")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	assert.Equal(t, 22, style.NumFmt)
}

func TestRecordsMatchOrders(t *testing.T) {
	config := DefaultOrderConfig()
	config.OrderCount = 5
	config.NoteRate = 0
	gen := NewOrderGenerator(config)

	records := gen.Records()
	require.Len(t, records, 5)
	assert.Equal(t, OrderColumns, records[0].Keys())

	note, ok := records[0].Get("note")
	require.True(t, ok)
	assert.True(t, note.IsNull())

	placed, _ := records[0].Get("placed_at")
	when, ok := placed.AsInstant()
	require.True(t, ok)
	assert.Equal(t, time.UTC, when.Location())

	count := 0
	for _, err := range gen.Rows() {
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 5, count)
}
