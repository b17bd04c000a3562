package companies

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidID signals a non-positive company identifier.
var ErrInvalidID = errors.New("companies: invalid company id")

// ErrInvalidInput signals a company form that is missing required fields.
var ErrInvalidInput = errors.New("companies: invalid company input")

// Property is a single holding listed under a company.
type Property struct {
	ID      int64   `json:"id,omitempty"`
	Name    string  `json:"name"`
	Status  string  `json:"status,omitempty"`
	Value   float64 `json:"value,omitempty"`
	Address string  `json:"address,omitempty"`
}

// Company mirrors the property-management company record. Dates are kept as
// the strings the API sends.
type Company struct {
	ID                       int64      `json:"id,omitempty"`
	Name                     string     `json:"name"`
	CompanyNumber            string     `json:"companyNumber"`
	IncorporationDate        string     `json:"incorporationDate"`
	SICCode                  string     `json:"sicCode"`
	NatureOfBusiness         string     `json:"natureOfBusiness"`
	RegisteredAddress        string     `json:"registeredAddress"`
	Directors                string     `json:"directors"`
	Shareholding             string     `json:"shareholding"`
	ConfirmationStatementDue string     `json:"confirmationStatementDue"`
	AccountsDue              string     `json:"accountsDue"`
	CreatedAt                string     `json:"createdAt,omitempty"`
	UpdatedAt                string     `json:"updatedAt,omitempty"`
	Status                   string     `json:"status,omitempty"`
	CompanyType              string     `json:"companyType,omitempty"`
	TotalProperties          int        `json:"totalProperties,omitempty"`
	ActiveProperties         int        `json:"activeProperties,omitempty"`
	PortfolioValue           float64    `json:"portfolioValue,omitempty"`
	Properties               []Property `json:"properties,omitempty"`
}

// Input is the create and update payload.
type Input struct {
	Name                     string `json:"name"`
	CompanyNumber            string `json:"companyNumber"`
	IncorporationDate        string `json:"incorporationDate"`
	SICCode                  string `json:"sicCode"`
	NatureOfBusiness         string `json:"natureOfBusiness"`
	RegisteredAddress        string `json:"registeredAddress"`
	Directors                string `json:"directors"`
	Shareholding             string `json:"shareholding"`
	ConfirmationStatementDue string `json:"confirmationStatementDue"`
	AccountsDue              string `json:"accountsDue"`
}

// Validate trims the input in place and checks the required fields.
func (in *Input) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.CompanyNumber = strings.TrimSpace(in.CompanyNumber)

	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.CompanyNumber == "" {
		missing = append(missing, "companyNumber")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// Value returns the portfolio value, summing the listed properties when the
// API did not send a total.
func (c Company) Value() float64 {
	if c.PortfolioValue != 0 || len(c.Properties) == 0 {
		return c.PortfolioValue
	}
	var total float64
	for _, p := range c.Properties {
		total += p.Value
	}
	return total
}
