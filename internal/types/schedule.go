package types

type ScheduleResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}
