package http

import (
	"github.com/aradsms/client_directory/internal/client_service/domain"
)

// --- Request DTOs ---

// ClientRequestDTO is the body of both create and update requests.
// Update replaces every field, including the whole phone number list.
type ClientRequestDTO struct {
	FirstName    string   `json:"first_name" validate:"required,max=100"`
	LastName     string   `json:"last_name" validate:"required,max=100"`
	Email        string   `json:"email,omitempty" validate:"omitempty,email,max=100"`
	PhoneNumbers []string `json:"phone_numbers,omitempty" validate:"dive,required,max=20"`
}

func (d ClientRequestDTO) toFields() domain.ContactFields {
	return domain.ContactFields{
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		PhoneNumbers: d.PhoneNumbers,
	}
}

// PhoneNumberRequestDTO adds a single phone number to a client.
type PhoneNumberRequestDTO struct {
	PhoneNumber string `json:"phone_number" validate:"required,max=20"`
}

// --- Response DTOs ---

type ClientDTO struct {
	ID           int64    `json:"id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email,omitempty"`
	PhoneNumbers []string `json:"phone_numbers"`
}

func toClientDTO(c *domain.Client) ClientDTO {
	phones := c.PhoneNumbers
	if phones == nil {
		phones = []string{}
	}
	return ClientDTO{
		ID:           c.ID,
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Email:        c.Email,
		PhoneNumbers: phones,
	}
}

// ClientsResponseDTO keys clients by ID. JSON object keys are the decimal IDs.
type ClientsResponseDTO struct {
	Clients map[int64]ClientDTO `json:"clients"`
}

// SearchResponseDTO distinguishes "no search ran" (empty filter) from "no matches".
type SearchResponseDTO struct {
	Performed bool                `json:"performed"`
	Clients   map[int64]ClientDTO `json:"clients"`
}

func toClientDTOs(clients map[int64]*domain.Client) map[int64]ClientDTO {
	out := make(map[int64]ClientDTO, len(clients))
	for id, c := range clients {
		out[id] = toClientDTO(c)
	}
	return out
}

type ErrorResponseDTO struct {
	Error string `json:"error"`
}
