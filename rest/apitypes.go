package rest

import (
	"github.com/google/uuid"
)

type StartResponse struct {
	RunID uuid.UUID `json:"runId"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

type EditRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
