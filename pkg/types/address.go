package types

import "strings"

// Address is a structured postal address snapshotted onto orders as JSON.
type Address struct {
	FirstName  string  `json:"first_name" validate:"required,max=100"`
	LastName   string  `json:"last_name" validate:"required,max=100"`
	Company    *string `json:"company,omitempty" validate:"omitempty,max=200"`
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=100"`
	State      string  `json:"state" validate:"required,max=100"`
	PostalCode string  `json:"postal_code" validate:"required,max=20"`
	Country    string  `json:"country" validate:"omitempty,len=2"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=40"`
}

// Normalize trims every field and defaults the country to US.
func (a Address) Normalize() Address {
	a.FirstName = strings.TrimSpace(a.FirstName)
	a.LastName = strings.TrimSpace(a.LastName)
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	if a.Country == "" {
		a.Country = "US"
	}
	a.Company = trimOptional(a.Company)
	a.Line2 = trimOptional(a.Line2)
	a.Phone = trimOptional(a.Phone)
	return a
}

func trimOptional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
