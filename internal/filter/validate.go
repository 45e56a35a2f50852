package filter

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/region"
)

// FieldError names one rejected parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InvalidParamsError lists every rejected parameter of a Params value.
type InvalidParamsError struct {
	Fields []FieldError
}

func (e *InvalidParamsError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid filter parameters: " + strings.Join(parts, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Regions must already be canonical: Apply compares them exactly.
	v.RegisterValidation("region", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		r, ok := region.Parse(name)
		return ok && string(r) == name
	})
	v.RegisterValidation("column", func(fl validator.FieldLevel) bool {
		return models.IsColumn(fl.Field().String())
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		r := sl.Current().Interface().(DecimalRange)
		if r.Max.LessThan(r.Min) {
			sl.ReportError(r.Max, "max", "Max", "gtefield", "min")
		}
	}, DecimalRange{})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		p := sl.Current().Interface().(Params)
		if p.Rating != nil && (p.Rating.Min < 1 || p.Rating.Max > 5) {
			sl.ReportError(p.Rating, "rating", "Rating", "rating", "1-5")
		}
		if p.Installments != nil && p.Installments.Min < 1 {
			sl.ReportError(p.Installments, "installments", "Installments", "min", "1")
		}
	}, Params{})

	return v
}

// Validate rejects parameter sets that cannot come from the sidebar:
// inverted ranges, ratings outside 1-5, unknown regions or columns.
// Values simply absent from the data are valid and filter to nothing.
func Validate(p Params) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate filter parameters: %w", err)
	}

	out := &InvalidParamsError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: message(fe),
		})
	}
	return out
}

// fieldPath drops the root struct name: "Params.price.max" -> "price.max".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gtefield":
		return "must not be lower than " + strings.ToLower(fe.Param())
	case "region":
		return fmt.Sprintf("unknown region %q", fe.Value())
	case "column":
		return fmt.Sprintf("unknown column %q", fe.Value())
	case "rating":
		return "must be within 1 and 5"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	}
	return "failed " + fe.Tag() + " validation"
}
