package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// BindQuery binds and validates query parameters, answering 400 with per-field details on
// failure. Field names in the details are the query parameter names.
func BindQuery(ctx *gin.Context, out interface{}) bool {
	if err := ctx.ShouldBindQuery(out); err != nil {
		RespondBadRequest(ctx, "Invalid query parameters", parseBindError(err, out))
		return false
	}
	return true
}

func parseBindError(err error, out interface{}) interface{} {
	names := queryNames(out)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			param := fe.Param()
			// cross-field rules name the other struct field, e.g. gtefield=MinPrice
			if strings.HasSuffix(fe.Tag(), "field") {
				param = names.lookup(param)
			}
			fields = append(fields, FieldError{
				Field:   names.lookup(fe.StructField()),
				Rule:    fe.Tag(),
				Param:   param,
				Message: validationMessage(fe.Tag(), param),
			})
		}
		return gin.H{"fields": fields}
	}

	// a value that does not parse as the field's type, e.g. min_price=cheap
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return gin.H{
			"query":   "invalid_number",
			"value":   numErr.Num,
			"message": fmt.Sprintf("%q is not a number", numErr.Num),
		}
	}

	return gin.H{"reason": err.Error()}
}

// paramNames maps Go field names of a flat query struct to their query parameter names.
type paramNames map[string]string

func (p paramNames) lookup(field string) string {
	if name, ok := p[field]; ok {
		return name
	}
	return field
}

func queryNames(v interface{}) paramNames {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	names := paramNames{}
	if t == nil || t.Kind() != reflect.Struct {
		return names
	}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		names[sf.Name] = publicName(sf)
	}
	return names
}

// publicName prefers the form tag (query parameter) and falls back to the json tag.
func publicName(sf reflect.StructField) string {
	for _, key := range []string{"form", "json"} {
		name, _, _ := strings.Cut(sf.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return sf.Name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	case "gt":
		return "must be greater than " + param
	case "gte", "gtefield":
		return "must be at least " + param
	case "lte":
		return "must be at most " + param
	case "datetime":
		return "must be a date formatted YYYY-MM-DD"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	case "":
		return "is invalid"
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
