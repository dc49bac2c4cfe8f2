package handlers

import (
	"github.com/go-playground/validator/v10"
)

// CustomValidator wraps the go-playground/validator library to implement Echo's Validator interface.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new CustomValidator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements the echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// SessionRequest identifies the member opening a chat session.
type SessionRequest struct {
	MemberID string `json:"memberId" form:"memberId" validate:"required,max=64"`
	Nick     string `json:"memberNick" form:"memberNick" validate:"max=64"`
	Image    string `json:"memberImage" form:"memberImage" validate:"omitempty,url"`
}
