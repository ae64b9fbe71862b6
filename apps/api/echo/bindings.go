package echoapi

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	SetStatusRequest struct {
		Status string `json:"status" validate:"required"`
		Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	}

	ReportRequest struct {
		Date string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
		To   []string `json:"to" validate:"required,min=1,dive,email"`
	}
)

func (r *LoginRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *SetStatusRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r *ReportRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

// parseDate returns the UTC day for `s`, defaulting to today when empty.
// Inputs are pre-validated with the `datetime` tag.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	t, _ := time.Parse(dateLayout, s)
	return t
}
