package excel

// SinkOptions tunes the workbook sink
type SinkOptions struct {
	// HighWaterMark is the number of queued rows at which WriteRow asks the caller to wait
	HighWaterMark int `json:"high_water_mark"`
}

// DefaultSinkOptions returns sensible defaults for streaming writes
func DefaultSinkOptions() SinkOptions {
	return SinkOptions{HighWaterMark: 512}
}

func (o SinkOptions) withDefaults() SinkOptions {
	if o.HighWaterMark <= 0 {
		o.HighWaterMark = DefaultSinkOptions().HighWaterMark
	}
	return o
}
