package testkit

import (
	"fmt"
	"io"
	"iter"
	"math"
	"math/rand"
	"strings"
	"time"

	"sheetflow/domain/sheet"

	"github.com/xuri/excelize/v2"
)

// OrderColumns is the header row of a generated order workbook
var OrderColumns = []string{"order_id", "customer", "country", "tags", "amount", "placed_at", "shipped", "note"}

// OrderGeneratorConfig configures the order workbook generator
type OrderGeneratorConfig struct {
	OrderCount    int       `json:"order_count"`
	CustomerCount int       `json:"customer_count"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	BlankEvery    int       `json:"blank_every"` // insert an empty row after every n orders; 0 disables
	NoteRate      float64   `json:"note_rate"`
	Seed          int64     `json:"seed"`
}

// DefaultOrderConfig returns a small, deterministic configuration
func DefaultOrderConfig() OrderGeneratorConfig {
	return OrderGeneratorConfig{
		OrderCount:    200,
		CustomerCount: 40,
		StartDate:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2024, 3, 31, 23, 59, 0, 0, time.UTC),
		BlankEvery:    25,
		NoteRate:      0.2,
		Seed:          42,
	}
}

// Order is one generated order line
type Order struct {
	ID       string
	Customer string
	Country  string
	Tags     []string
	Amount   float64
	PlacedAt time.Time
	Shipped  bool
	Note     string
}

// OrderGenerator produces seeded synthetic orders
type OrderGenerator struct {
	config OrderGeneratorConfig
	rng    *rand.Rand
}

// NewOrderGenerator creates a new order generator
func NewOrderGenerator(config OrderGeneratorConfig) *OrderGenerator {
	return &OrderGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Orders generates the configured number of orders. The same seed always
// yields the same orders.
func (g *OrderGenerator) Orders() []Order {
	g.rng = rand.New(rand.NewSource(g.config.Seed))
	customers := max(g.config.CustomerCount, 1)

	orders := make([]Order, 0, g.config.OrderCount)
	for i := 0; i < g.config.OrderCount; i++ {
		o := Order{
			ID:       fmt.Sprintf("order_%05d", i+1),
			Customer: fmt.Sprintf("customer_%04d", g.rng.Intn(customers)+1),
			Country:  g.pick(countries),
			Tags:     g.tags(),
			Amount:   math.Round((5+g.rng.Float64()*495)*100) / 100,
			PlacedAt: g.randomTime(),
			Shipped:  g.rng.Float64() < 0.7,
		}
		if g.rng.Float64() < g.config.NoteRate {
			o.Note = g.pick(notes)
		}
		orders = append(orders, o)
	}
	return orders
}

// WriteWorkbook writes the orders as a single-sheet xlsx workbook, with
// placed_at cells carrying a date format.
func (g *OrderGenerator) WriteWorkbook(w io.Writer, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName != "" && sheetName != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			return err
		}
	} else {
		sheetName = "Sheet1"
	}

	header := make([]any, len(OrderColumns))
	for i, c := range OrderColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return err
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return err
	}

	row := 2
	for i, o := range g.Orders() {
		if g.config.BlankEvery > 0 && i > 0 && i%g.config.BlankEvery == 0 {
			row++ // left empty
		}
		cells := []any{o.ID, o.Customer, o.Country, strings.Join(o.Tags, ", "), o.Amount, o.PlacedAt, o.Shipped}
		if o.Note != "" {
			cells = append(cells, o.Note)
		}
		axis, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, axis, &cells); err != nil {
			return err
		}
		placed, _ := excelize.CoordinatesToCellName(6, row)
		if err := f.SetCellStyle(sheetName, placed, placed, dateStyle); err != nil {
			return err
		}
		row++
	}
	return f.Write(w)
}

// Records returns the orders as the records a default read with "tags" as an
// array column produces
func (g *OrderGenerator) Records() []*sheet.Record {
	orders := g.Orders()
	out := make([]*sheet.Record, 0, len(orders))
	for _, o := range orders {
		note := sheet.Null()
		if o.Note != "" {
			note = sheet.Text(o.Note)
		}
		out = append(out, sheet.RecordOf(
			"order_id", o.ID,
			"customer", o.Customer,
			"country", o.Country,
			"tags", sheet.List(o.Tags),
			"amount", o.Amount,
			"placed_at", o.PlacedAt,
			"shipped", o.Shipped,
			"note", note,
		))
	}
	return out
}

// Rows yields Records as a sequence
func (g *OrderGenerator) Rows() iter.Seq2[*sheet.Record, error] {
	records := g.Records()
	return func(yield func(*sheet.Record, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (g *OrderGenerator) tags() []string {
	n := g.rng.Intn(4)
	picked := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for len(picked) < n {
		t := g.pick(tagPool)
		if !seen[t] {
			seen[t] = true
			picked = append(picked, t)
		}
	}
	return picked
}

// randomTime returns a whole-minute UTC time inside the configured window
func (g *OrderGenerator) randomTime() time.Time {
	span := g.config.EndDate.Sub(g.config.StartDate)
	minutes := int64(span / time.Minute)
	if minutes <= 0 {
		return g.config.StartDate.UTC()
	}
	return g.config.StartDate.Add(time.Duration(g.rng.Int63n(minutes)) * time.Minute).UTC()
}

func (g *OrderGenerator) pick(options []string) string {
	return options[g.rng.Intn(len(options))]
}

var (
	countries = []string{"US", "DE", "FR", "GB", "JP", "BR", "IN"}
	tagPool   = []string{"gift", "express", "bulk", "promo", "return", "b2b"}
	notes     = []string{"leave at door", "call on arrival", "fragile", "split shipment"}
)
