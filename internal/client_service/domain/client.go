package domain

import (
	"fmt"
	"strings"
)

// ContactFields holds the caller-supplied values of a client record.
// FirstName and LastName are required by the store; Email and PhoneNumbers are optional.
type ContactFields struct {
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email,omitempty"`
	PhoneNumbers []string `json:"phone_numbers,omitempty"`
}

// Client is a contact with a store-assigned ID.
type Client struct {
	ID           int64    `json:"id"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	Email        string   `json:"email,omitempty"` // Empty string is stored as NULL
	PhoneNumbers []string `json:"phone_numbers"`   // No ordering or uniqueness guarantees
}

// NewClient builds a Client from contact fields. The phone number slice is copied.
func NewClient(id int64, fields ContactFields) *Client {
	phones := make([]string, len(fields.PhoneNumbers))
	copy(phones, fields.PhoneNumbers)
	return &Client{
		ID:           id,
		FirstName:    fields.FirstName,
		LastName:     fields.LastName,
		Email:        fields.Email,
		PhoneNumbers: phones,
	}
}

// Fields returns the mutable part of the client.
func (c *Client) Fields() ContactFields {
	phones := make([]string, len(c.PhoneNumbers))
	copy(phones, c.PhoneNumbers)
	return ContactFields{
		FirstName:    c.FirstName,
		LastName:     c.LastName,
		Email:        c.Email,
		PhoneNumbers: phones,
	}
}

// String renders the client as "(id) First Last <email> [p1, p2]".
func (c *Client) String() string {
	parts := []string{fmt.Sprintf("(%d)", c.ID), c.FirstName, c.LastName}
	if c.Email != "" {
		parts = append(parts, "<"+c.Email+">")
	}
	if len(c.PhoneNumbers) > 0 {
		parts = append(parts, "["+strings.Join(c.PhoneNumbers, ", ")+"]")
	}
	return strings.Join(parts, " ")
}
