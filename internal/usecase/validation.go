package usecase

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/xavierca1/diag-leads/internal/entity"
)

var nonDigit = regexp.MustCompile(`\D`)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// foldValidationErrors junta a lista num único DomainError VALIDATION_ERROR.
func foldValidationErrors(errs []ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Field+" ("+e.Message+")")
	}
	return NewValidationError("validation failed: " + strings.Join(parts, ", "))
}

func ValidateCaptureLeadInput(input CaptureLeadInput) []ValidationError {
	var errors []ValidationError

	name := strings.TrimSpace(input.Name)
	if name == "" {
		errors = append(errors, ValidationError{"name", "is required"})
	} else if len([]rune(name)) < 2 {
		errors = append(errors, ValidationError{"name", "must have at least 2 characters"})
	} else if len(name) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}

	email := strings.TrimSpace(input.Email)
	phone := strings.TrimSpace(input.Phone)
	whatsapp := strings.TrimSpace(input.WhatsApp)

	if email == "" && phone == "" && whatsapp == "" {
		errors = append(errors, ValidationError{"contact", "email or phone is required"})
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			errors = append(errors, ValidationError{"email", "is invalid"})
		}
	}
	if phone != "" && !isPlausiblePhone(phone) {
		errors = append(errors, ValidationError{"phone", "must have between 8 and 15 digits"})
	}
	if whatsapp != "" && !isPlausiblePhone(whatsapp) {
		errors = append(errors, ValidationError{"whatsapp", "must have between 8 and 15 digits"})
	}
	if len(input.Message) > 5000 {
		errors = append(errors, ValidationError{"message", "must not exceed 5000 characters"})
	}

	return errors
}

func isPlausiblePhone(phone string) bool {
	cleaned := nonDigit.ReplaceAllString(phone, "")
	return len(cleaned) >= 8 && len(cleaned) <= 15
}

func ValidateScoring(s entity.LeadScoring) []ValidationError {
	var errors []ValidationError

	if s.LeadScore != nil && (*s.LeadScore < 0 || *s.LeadScore > 100) {
		errors = append(errors, ValidationError{"lead_score", "must be between 0 and 100"})
	}
	if s.LeadTemperature != nil {
		if _, ok := entity.ParseLeadTemperature(string(*s.LeadTemperature)); !ok {
			errors = append(errors, ValidationError{"lead_temperature", "must be hot, warm or cold"})
		}
	}
	if s.PredictedConversionRate != nil && (*s.PredictedConversionRate < 0 || *s.PredictedConversionRate > 1) {
		errors = append(errors, ValidationError{"predicted_conversion_rate", "must be between 0.0 and 1.0"})
	}
	for i, suggestion := range s.AISuggestions {
		if strings.TrimSpace(suggestion) == "" {
			errors = append(errors, ValidationError{fmt.Sprintf("ai_suggestions[%d]", i), "must not be empty"})
		}
	}

	return errors
}
