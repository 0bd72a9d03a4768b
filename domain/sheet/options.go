package sheet

// Epoch selects the date serial convention of a workbook
type Epoch int

const (
	Epoch1900 Epoch = 1900
	Epoch1904 Epoch = 1904
)

// HeaderNormalizer renames a header label. index is zero-based.
type HeaderNormalizer interface {
	NormalizeHeader(label string, index int) string
}

// HeaderNormalizerFunc adapts a plain function to HeaderNormalizer
type HeaderNormalizerFunc func(label string, index int) string

func (f HeaderNormalizerFunc) NormalizeHeader(label string, index int) string {
	return f(label, index)
}

// IdentityHeader keeps labels unchanged
var IdentityHeader HeaderNormalizer = HeaderNormalizerFunc(func(label string, _ int) string { return label })

// ReadOptions controls how a cell stream is turned into records
type ReadOptions struct {
	SheetName        string           `json:"sheet_name"`        // empty reads every sheet
	HeaderRowNumber  int              `json:"header_row_number"` // 1-based
	TrimHeaders      bool             `json:"trim_headers"`
	TrimTextValues   bool             `json:"trim_text_values"`
	TrimTextColumns  []string         `json:"trim_text_columns"`
	ArrayColumns     []string         `json:"array_columns"`
	ArrayDelimiter   string           `json:"array_delimiter"`
	TrimArrayItems   bool             `json:"trim_array_items"`
	RemoveEmptyItems bool             `json:"remove_empty_array_items"`
	SkipEmptyRows    bool             `json:"skip_empty_rows"`
	NormalizeHeader  HeaderNormalizer `json:"-"`
	ParseDates       bool             `json:"parse_dates"`
	Epoch            Epoch            `json:"epoch_mode"`
	TimeZone         string           `json:"time_zone"` // IANA zone; empty means no reinterpretation
}

// DefaultReadOptions returns the documented read defaults
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		HeaderRowNumber:  1,
		TrimHeaders:      true,
		ArrayDelimiter:   ",",
		TrimArrayItems:   true,
		RemoveEmptyItems: true,
		SkipEmptyRows:    true,
		NormalizeHeader:  IdentityHeader,
		ParseDates:       true,
		Epoch:            Epoch1900,
	}
}

// WithDefaults fills fields whose zero value is not meaningful.
// Booleans are taken as given.
func (o ReadOptions) WithDefaults() ReadOptions {
	if o.HeaderRowNumber <= 0 {
		o.HeaderRowNumber = 1
	}
	if o.ArrayDelimiter == "" {
		o.ArrayDelimiter = ","
	}
	if o.NormalizeHeader == nil {
		o.NormalizeHeader = IdentityHeader
	}
	if o.Epoch != Epoch1904 {
		o.Epoch = Epoch1900
	}
	return o
}

// ColumnSpec describes one output column
type ColumnSpec struct {
	Header string  `json:"header"`
	Key    string  `json:"key"`
	Width  float64 `json:"width,omitempty"`
}

// WriteOptions controls how records are emitted to a row sink
type WriteOptions struct {
	SheetName      string       `json:"sheet_name"`
	Columns        []ColumnSpec `json:"columns"` // empty infers from the first row
	TimeZone       string       `json:"time_zone"`
	DateColumns    []string     `json:"date_columns"` // empty converts every date field
	ArrayDelimiter string       `json:"array_delimiter"`
}

// DefaultWriteOptions returns the documented write defaults
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		SheetName:      "Sheet1",
		ArrayDelimiter: ",",
	}
}

// WithDefaults fills fields whose zero value is not meaningful
func (o WriteOptions) WithDefaults() WriteOptions {
	if o.SheetName == "" {
		o.SheetName = "Sheet1"
	}
	if o.ArrayDelimiter == "" {
		o.ArrayDelimiter = ","
	}
	return o
}

// ProcessOptions combines read options with batching controls
type ProcessOptions struct {
	Read        ReadOptions `json:"read"`
	BatchSize   int         `json:"batch_size"`
	Concurrency int         `json:"concurrency"`
}

// DefaultProcessOptions returns the documented processing defaults
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		Read:        DefaultReadOptions(),
		BatchSize:   2000,
		Concurrency: 8,
	}
}
