package models

// Requests for the display HTTP endpoints.

type CorrelationsRequest struct {
	Limit    int     `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
	MinAbsR  float64 `query:"min_abs_r" json:"min_abs_r" validate:"gte=0,lte=1"`
	Category string  `query:"category" json:"category" validate:"omitempty,oneof=funny financial other"`
}

type RotationRequest struct {
	Limit int `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}
