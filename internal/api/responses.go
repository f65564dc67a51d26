package api

type ErrorResponse struct {
	Error string `json:"error" example:"no seats available"`
	Code  string `json:"code,omitempty" example:"NoSeatsAvailable"`
}

type MessageResponse struct {
	Message string `json:"message" example:"ok"`
}

type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database,omitempty" example:"ok"`
}
