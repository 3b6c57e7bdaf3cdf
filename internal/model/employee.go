package model

import "fmt"

// PayPeriod is how an employee's rate is applied.
type PayPeriod string

const (
	PayHourly  PayPeriod = "hourly"
	PayMonthly PayPeriod = "monthly"
)

// Employee is a person who can clock in and out. Badge is the natural key:
// it is stable across devices and is the join key for time logs, both
// locally and on the server.
type Employee struct {
	ID          int64     `json:"id,omitempty"`
	Name        string    `json:"name"`
	Badge       string    `json:"badge"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	PIN         string    `json:"pin,omitempty"`
	Department  string    `json:"department,omitempty"`
	DateOfBirth string    `json:"date_of_birth,omitempty"` // yyyy-MM-dd
	HireDate    string    `json:"hire_date,omitempty"`     // yyyy-MM-dd
	Deactivated bool      `json:"deactivated"`
	SSN         string    `json:"ssn,omitempty"`
	Period      PayPeriod `json:"period"`
	Rate        float64   `json:"rate"`
}

// Validate checks the fields required before an employee can be stored or
// pushed to the server.
func (e *Employee) Validate() error {
	if e.Badge == "" {
		return fmt.Errorf("badge is required")
	}
	if e.Name == "" {
		return fmt.Errorf("name is required")
	}
	if e.Period != "" && e.Period != PayHourly && e.Period != PayMonthly {
		return fmt.Errorf("period must be %q or %q (got %q)", PayHourly, PayMonthly, e.Period)
	}
	if e.Rate < 0 {
		return fmt.Errorf("rate must not be negative (got %v)", e.Rate)
	}
	return nil
}
