package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"deal-stats-api/internal/models"
)

var (
	uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	orgRegex  = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z._-]*$`)
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func ValidateCreateDealRequest(req models.CreateDealRequest) error {
	if req.SellerID == "" {
		return &ValidationError{
			Field:   "sellerId",
			Message: "is required",
		}
	}

	if len(req.SellerID) > 128 {
		return &ValidationError{
			Field:   "sellerId",
			Message: "cannot exceed 128 characters",
		}
	}

	if err := ValidateOrganisationNumber(req.CustomerOrganisationNumber); err != nil {
		return err
	}

	if err := validatePrice(req.Price); err != nil {
		return err
	}

	if req.ExpiryDate.IsZero() {
		return &ValidationError{
			Field:   "expiryDate",
			Message: "is required",
		}
	}

	return nil
}

func ValidateExpiryUpdate(req models.UpdateDealExpiryRequest) error {
	if req.ExpiryDate.IsZero() {
		return &ValidationError{
			Field:   "expiryDate",
			Message: "is required",
		}
	}

	return nil
}

func ValidateOrganisationNumber(org string) error {
	if org == "" {
		return &ValidationError{
			Field:   "customerOrganisationNumber",
			Message: "is required",
		}
	}

	org = SanitizeString(org)

	if len(org) > 64 {
		return &ValidationError{
			Field:   "customerOrganisationNumber",
			Message: "cannot exceed 64 characters",
		}
	}

	if !orgRegex.MatchString(org) {
		return &ValidationError{
			Field:   "customerOrganisationNumber",
			Message: "contains invalid characters",
		}
	}

	return nil
}

func validatePrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return &ValidationError{
			Field:   "price",
			Message: "must be a finite number",
		}
	}

	maxPrice := float64(1_000_000_000)
	if price > maxPrice {
		return &ValidationError{
			Field:   "price",
			Message: "exceeds maximum allowed amount",
		}
	}

	return nil
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

func ValidateUUID(id, fieldName string) error {
	if id == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	id = SanitizeString(id)

	if !uuidRegex.MatchString(strings.ToLower(id)) {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be a valid UUID v4",
		}
	}

	return nil
}

func ValidateTimeString(timeStr string) (time.Time, error) {
	if timeStr == "" {
		return time.Time{}, &ValidationError{
			Field:   "time",
			Message: "is required",
		}
	}

	t, err := time.Parse(time.RFC3339, timeStr)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   "time",
			Message: "must be a valid RFC3339 timestamp",
		}
	}

	return t, nil
}

// ValidateDateString parses a calendar date in YYYY-MM-DD form, as used by the
// daily stats read surface.
func ValidateDateString(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, &ValidationError{
			Field:   "date",
			Message: "is required",
		}
	}

	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, &ValidationError{
			Field:   "date",
			Message: "must be a valid date in YYYY-MM-DD format",
		}
	}

	return t, nil
}
