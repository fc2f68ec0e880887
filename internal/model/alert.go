package model

// DefaultAlertDuration is the auto-hide delay in seconds used when none is given.
const DefaultAlertDuration = 3.0

// AlertState is the single transient notification shown to the user.
type AlertState struct {
	Message   string  `json:"message"`
	IsVisible bool    `json:"isVisible"`
	IsSuccess bool    `json:"isSuccess"`
	Duration  float64 `json:"duration"`
}

// AlertOptions describes an alert to show. A non-positive Duration means
// DefaultAlertDuration.
type AlertOptions struct {
	Message   string  `json:"message"`
	IsSuccess bool    `json:"isSuccess"`
	Duration  float64 `json:"duration"`
}
