package helper

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// display names for json fields, used in messages
var fieldLabels = map[string]string{
	"nama":            "Nama",
	"email":           "Email",
	"password":        "Password",
	"currentPassword": "Password saat ini",
	"newPassword":     "Password baru",
	"role":            "Role",
}

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ValidateStruct runs the `validate` tags on s and returns the first failure
// as a user-facing message, or "" when s is valid.
func ValidateStruct(s any) string {
	err := validatorInstance().Struct(s)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Input tidak valid"
	}
	return message(verrs[0])
}

func message(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " wajib diisi"
	case "email":
		return "Format email tidak valid"
	case "min":
		return fmt.Sprintf("%s minimal %s karakter", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s maksimal %s karakter", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s harus salah satu dari: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return label + " tidak valid"
	}
}
