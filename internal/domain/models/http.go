package models

// PredictRequest is the body of POST /api/predict/:pair/:period.
type PredictRequest struct {
	Data           []Bar    `json:"data" validate:"required,min=1"`
	SentimentScore *float64 `json:"sentimentScore" validate:"omitempty,gte=-1,lte=1"`
}

// AddSymbolRequest is the body of POST /api/symbol.
type AddSymbolRequest struct {
	Symbol  string   `json:"symbol" validate:"required,min=6,max=10"`
	Periods []string `json:"periods" validate:"omitempty,dive,oneof=h1 d1"`
}
