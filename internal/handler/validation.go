package handler

import (
    "errors"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
)

// ValidationDetail describes one rejected request field.
type ValidationDetail struct {
    Field   string `json:"field"`
    Message string `json:"message"`
}

// newValidator returns a validator that reports JSON (or query) field
// names in its errors.
func newValidator() *validator.Validate {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(fld reflect.StructField) string {
        name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        if name == "" {
            name = strings.SplitN(fld.Tag.Get("query"), ",", 2)[0]
        }
        return name
    })
    return v
}

// validationDetails flattens validator errors into response details.
func validationDetails(err error) []ValidationDetail {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return []ValidationDetail{{Message: err.Error()}}
    }
    out := make([]ValidationDetail, 0, len(verrs))
    for _, e := range verrs {
        out = append(out, ValidationDetail{Field: e.Field(), Message: validationMessage(e)})
    }
    return out
}

func validationMessage(e validator.FieldError) string {
    switch e.Tag() {
    case "required":
        return "This field is required"
    case "min":
        return "Must be at least " + e.Param()
    case "max":
        return "Must be at most " + e.Param()
    case "datetime":
        switch e.Param() {
        case "15:04":
            return "Must be a time formatted HH:MM (e.g. 14:30)"
        default:
            return "Must be a date formatted YYYY-MM-DD"
        }
    default:
        return "Invalid value"
    }
}
