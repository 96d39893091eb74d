package handlers

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	// Report binding failures under the JSON names clients send.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

// fieldErrors groups binding failures by field, in the same shape the domain
// validators use.
func fieldErrors(invalid validator.ValidationErrors) map[string][]string {
	out := make(map[string][]string, len(invalid))
	for _, fe := range invalid {
		out[fe.Field()] = append(out[fe.Field()], fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Email is not valid."
	case "oneof":
		return "Value should be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	case "gt":
		return "Value should be greater than " + fe.Param() + "."
	default:
		return "Value is not valid."
	}
}
