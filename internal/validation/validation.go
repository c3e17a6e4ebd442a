// Package validation checks candidate event records against the shared
// field rules. All field violations are collected; only the date checks
// short-circuit internally, so a malformed date yields a single message.
package validation

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agenda-distribuida/events-service/internal/models"
)

const dateLayout = "2006-01-02"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// The three date tags run in order and the first failure wins, so a
	// string that does not parse is reported once, not three times.
	must(v.RegisterValidation("datefmt", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(dateLayout, fl.Field().String())
		return err == nil
	}))
	must(v.RegisterValidation("dateyear", func(fl validator.FieldLevel) bool {
		d, err := time.Parse(dateLayout, fl.Field().String())
		if err != nil {
			return true
		}
		return d.Year() >= 1900 && d.Year() <= 2100
	}))
	// Re-formatting must reproduce the input exactly. This rejects
	// almost-valid dates that a lenient parser would roll over.
	must(v.RegisterValidation("dateexact", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			return true
		}
		return d.Format(dateLayout) == s
	}))

	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// Validate returns an ordered list of human-readable messages for every
// rule the record violates. A nil result means the record is valid.
// It never fails on malformed input; malformed input is what it reports on.
func Validate(rec models.Record) []string {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{"Record could not be validated."}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, message(fe))
	}
	return msgs
}

func message(fe validator.FieldError) string {
	switch fe.StructField() {
	case "Title":
		return "Title is required and must be at most 200 characters."
	case "Date":
		switch fe.Tag() {
		case "required":
			return "Date is required."
		case "datefmt":
			return "Date must be in YYYY-MM-DD format."
		case "dateyear":
			return "Date must be between the years 1900 and 2100."
		default:
			return "Date is malformed or does not exist."
		}
	case "Location":
		return "Location must not be empty or exceed 300 characters."
	case "Organizer":
		return "Organizer must not be empty or exceed 200 characters."
	}
	return fe.Field() + " is invalid."
}
