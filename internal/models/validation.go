package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/shopspring/decimal"
)

const (
	maxPriceIntegerDigits  = 10
	maxPriceFractionDigits = 2
)

var validate = newValidator()

// messages maps "<StructField>.<tag>" to the message reported for that failure.
var messages = map[string]string{
	"Name.notblank":        "Product name is required",
	"Name.max":             "Product name must be less than 255 characters",
	"Category.notblank":    "Category is required",
	"Category.max":         "Category must be less than 255 characters",
	"Quantity.gte":         "Quantity must be greater than or equal to 0",
	"Stock.gte":            "Stock must be greater than or equal to 0",
	"Price.price_positive": "Price must be greater than 0",
	"Price.price_digits":   "Price must have at most 10 digits and 2 decimal places",
}

// FieldError describes a single failed constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a product violates one or more field
// constraints. Nothing is written when it is returned.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks every field constraint and returns a *ValidationError
// listing all failures, or nil.
func (p *Product) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate product: %w", err)
	}

	out := &ValidationError{Errors: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		msg, ok := messages[fe.StructField()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("Field '%s' failed on the '%s' tag", fe.Field(), fe.Tag())
		}
		out.Errors = append(out.Errors, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	// Price rules see the canonical text of an in-range decimal. Anything
	// outside numeric(12,2) is collapsed to a fixed representative of the
	// same sign, so a huge exponent is never expanded into digits.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return priceText(d)
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "notblank", validators.NotBlank)
	mustRegister(v, "price_positive", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	mustRegister(v, "price_digits", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		return PriceWithinPrecision(d)
	})
	return v
}

func priceText(d decimal.Decimal) string {
	switch {
	case PriceWithinPrecision(d):
		return d.String()
	case d.Sign() > 0:
		return outOfRangePrice
	default:
		return "-" + outOfRangePrice
	}
}

// outOfRangePrice is the smallest positive integer with too many digits.
var outOfRangePrice = "1" + strings.Repeat("0", maxPriceIntegerDigits)

// PriceWithinPrecision reports whether d fits 10 integer and 2 fractional
// digits. It works on the coefficient and exponent only, so its cost is
// bounded by the number of written digits rather than by the exponent.
func PriceWithinPrecision(d decimal.Decimal) bool {
	coef := d.Coefficient()
	if coef.Sign() == 0 {
		return true
	}
	digits := strings.TrimPrefix(coef.String(), "-")
	exp := int64(d.Exponent())
	for exp < -maxPriceFractionDigits && strings.HasSuffix(digits, "0") {
		digits = digits[:len(digits)-1]
		exp++
	}
	if exp < -maxPriceFractionDigits {
		return false
	}
	return int64(len(digits))+exp <= maxPriceIntegerDigits
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}
