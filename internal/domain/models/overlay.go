package models

import "time"

// Mode selects how the dashboard presents an aligned table.
type Mode string

const (
	ModeLine        Mode = "line"
	ModeCandlestick Mode = "candlestick"
	ModeTable       Mode = "table"
)

// Remote field names.
const (
	FieldOpen  = "open"
	FieldHigh  = "high"
	FieldLow   = "low"
	FieldClose = "close"
)

// PriceFields returns the remote fields a mode needs: OHLC for candlesticks, close otherwise.
func (m Mode) PriceFields() []string {
	if m == ModeCandlestick {
		return []string{FieldOpen, FieldHigh, FieldLow, FieldClose}
	}
	return []string{FieldClose}
}

// IndexInfo is one entry of the selectable market index catalog.
type IndexInfo struct {
	Name   string `json:"name" yaml:"name"`
	Symbol string `json:"symbol" yaml:"symbol"`
}

// Overlay is the output of one render pass.
// Table is the left-joined AlignedTable; Remote is the pre-merge price series
// so a renderer can also draw prices on their own dates.
type Overlay struct {
	Symbol      string    `json:"symbol"`
	Granularity string    `json:"granularity"`
	Mode        Mode      `json:"mode"`
	Start       Date      `json:"start"`
	End         Date      `json:"end"`
	LocalFields []string  `json:"local_fields"`
	PriceFields []string  `json:"price_fields"`
	Matched     int       `json:"matched"`
	Table       *Series   `json:"table"`
	Remote      *Series   `json:"remote"`
	GeneratedAt time.Time `json:"generated_at"`
}

// OverlayEvent summarizes a completed render pass for downstream consumers.
type OverlayEvent struct {
	Dataset     string    `json:"dataset"`
	Symbol      string    `json:"symbol"`
	Granularity string    `json:"granularity"`
	Mode        Mode      `json:"mode"`
	Start       Date      `json:"start"`
	End         Date      `json:"end"`
	LocalRows   int       `json:"local_rows"`
	RemoteRows  int       `json:"remote_rows"`
	AlignedRows int       `json:"aligned_rows"`
	Matched     int       `json:"matched"`
	At          time.Time `json:"at"`
}

// DatasetInfo describes a stored planetary dataset.
type DatasetInfo struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Fields []string `json:"fields"`
	Rows   int      `json:"rows"`
	First  Date     `json:"first"`
	Last   Date     `json:"last"`
}
