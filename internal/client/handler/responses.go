package handler

import (
	"time"

	"ruconnect/internal/client"
)

// ClientResponse is the public shape of a registration record.
type ClientResponse struct {
	ID           string    `json:"id"`
	RUC          string    `json:"ruc"`
	Name         string    `json:"name"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	RegisteredBy string    `json:"registered_by"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FromClient converts a record to its HTTP response.
func FromClient(record *client.Client) *ClientResponse {
	return &ClientResponse{
		ID:           record.ID.String(),
		RUC:          record.RUC.String(),
		Name:         record.Name,
		Email:        record.Email,
		Phone:        record.Phone,
		RegisteredBy: record.RegisteredBy.String(),
		Status:       string(record.Status),
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

// ClientListResponse is the HTTP response for GET /clients.
type ClientListResponse struct {
	Clients []*ClientResponse `json:"clients"`
	Count   int               `json:"count"`
}

// FromClientList converts a listing to its HTTP response.
func FromClientList(records []*client.Client) *ClientListResponse {
	out := make([]*ClientResponse, 0, len(records))
	for _, record := range records {
		out = append(out, FromClient(record))
	}
	return &ClientListResponse{Clients: out, Count: len(out)}
}
