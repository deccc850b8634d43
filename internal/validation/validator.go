package validation

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Validator validates structs
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate validates a struct against its `validate` tags
func (v *Validator) Validate(s interface{}) error {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return fmt.Errorf("validate expects a struct")
	}

	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		tag := fieldType.Tag.Get("validate")

		if tag == "" {
			continue
		}

		if err := v.validateField(field, tag); err != nil {
			return fmt.Errorf("%s: %w", fieldType.Name, err)
		}
	}

	return nil
}

// validateField validates a single field
func (v *Validator) validateField(field reflect.Value, tag string) error {
	rules := strings.Split(tag, ",")

	for _, rule := range rules {
		parts := strings.SplitN(rule, "=", 2)
		ruleName := parts[0]
		arg := ""
		if len(parts) == 2 {
			arg = parts[1]
		}

		switch ruleName {
		case "required":
			if field.IsZero() {
				return fmt.Errorf("field is required")
			}

		case "email":
			if field.Kind() == reflect.String {
				email := field.String()
				if !strings.Contains(email, "@") {
					return fmt.Errorf("invalid email format")
				}
			}

		case "url":
			if field.Kind() == reflect.String && field.String() != "" {
				u, err := url.Parse(field.String())
				if err != nil || u.Scheme == "" || u.Host == "" {
					return fmt.Errorf("invalid URL")
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return fmt.Errorf("URL must be http or https")
				}
			}

		case "min":
			n, err := strconv.Atoi(arg)
			if err != nil {
				continue
			}
			switch field.Kind() {
			case reflect.String:
				if len(field.String()) < n {
					return fmt.Errorf("minimum length is %d", n)
				}
			case reflect.Int, reflect.Int64:
				if field.Int() < int64(n) {
					return fmt.Errorf("minimum value is %d", n)
				}
			}

		case "max":
			n, err := strconv.Atoi(arg)
			if err != nil {
				continue
			}
			switch field.Kind() {
			case reflect.String:
				if len(field.String()) > n {
					return fmt.Errorf("maximum length is %d", n)
				}
			case reflect.Int, reflect.Int64:
				if field.Int() > int64(n) {
					return fmt.Errorf("maximum value is %d", n)
				}
			}

		case "oneof":
			if field.Kind() == reflect.String && field.String() != "" {
				allowed := strings.Fields(arg)
				ok := false
				for _, a := range allowed {
					if field.String() == a {
						ok = true
						break
					}
				}
				if !ok {
					return fmt.Errorf("must be one of: %s", arg)
				}
			}
		}
	}

	return nil
}
