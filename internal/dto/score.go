package dto

import "github.com/shopspring/decimal"

// SetWeightRequest updates one category weight.
type SetWeightRequest struct {
	Weight *decimal.Decimal `json:"weight" validate:"required"`
}

// ScoreboardQuery filters the ranked scoreboard.
type ScoreboardQuery struct {
	Tier     string `form:"tier"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// ExportScoreboardRequest asks for a scoreboard file.
type ExportScoreboardRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf xlsx"`
	Tier   string `json:"tier"`
}
