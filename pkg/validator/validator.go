package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxMessageLength = 4000

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

// Error joins the field messages so ValidationErrors can travel as an error.
func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for field, msg := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// Err returns v as an error, or nil when there is nothing to report.
func (v ValidationErrors) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}

func ValidateMessage(content string) ValidationErrors {
	errs := make(ValidationErrors)

	if strings.TrimSpace(content) == "" {
		errs.Add("content", "Message content is required")
	} else if utf8.RuneCountInString(content) > maxMessageLength {
		errs.Add("content", fmt.Sprintf("Message must be at most %d characters", maxMessageLength))
	}

	return errs
}

func ValidateConversation(partnerID, productID string) ValidationErrors {
	errs := make(ValidationErrors)

	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		errs.Add("partner_id", "Partner is required")
	} else if strings.ContainsAny(partnerID, "/?#") {
		errs.Add("partner_id", "Partner id contains invalid characters")
	}

	if strings.ContainsAny(productID, "/?#") {
		errs.Add("product_id", "Product id contains invalid characters")
	}

	return errs
}
