package models

// ComparisonRowModel is one specification field across every compared car
type ComparisonRowModel struct {
	Field   string        `json:"field"`
	Values  []interface{} `json:"values"`
	Differs bool          `json:"differs"`
}

type ComparisonModel struct {
	Cars []CarModel           `json:"cars"`
	Rows []ComparisonRowModel `json:"rows"`
}
