package models

// Requests for overlay HTTP endpoints. Defined in domain for reuse by the CLI.

type OverlayRequest struct {
	Dataset     string `query:"dataset" json:"dataset" default:"default" validate:"required,max=64"`
	Symbol      string `query:"symbol" json:"symbol" validate:"omitempty,ticker"`
	Start       string `query:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
	End         string `query:"end" json:"end" validate:"omitempty,datetime=2006-01-02"`
	Granularity string `query:"granularity" json:"granularity" default:"daily" validate:"oneof=daily weekly"`
	Mode        string `query:"mode" json:"mode" default:"line" validate:"oneof=line candlestick table"`
}
