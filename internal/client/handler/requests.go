package handler

// RegisterClientRequest is the payload for POST /clients. Field rules
// live in the client service so every surface rejects input the same way.
type RegisterClientRequest struct {
	RUC   string `json:"ruc"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// UpdateClientRequest is the payload for PATCH /clients/{clientID}. The
// RUC identifies a business permanently and is not accepted here.
type UpdateClientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
