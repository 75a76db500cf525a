package content

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("unique_ids", uniqueIDs)
	})
	return validate
}

// uniqueIDs fails when two elements of a slice share a non-empty ID field.
// Elements without an id are not compared.
func uniqueIDs(fl validator.FieldLevel) bool {
	v := fl.Field()
	if v.Kind() != reflect.Slice {
		return false
	}
	seen := make(map[string]bool, v.Len())
	for i := 0; i < v.Len(); i++ {
		el := reflect.Indirect(v.Index(i))
		if el.Kind() != reflect.Struct {
			return false
		}
		f := el.FieldByName("ID")
		if !f.IsValid() || f.Kind() != reflect.String {
			return false
		}
		id := f.String()
		if id == "" {
			continue
		}
		if seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

// ValidateDocument checks the fields this service relies on: every page has a
// slug, page slugs are unique, and non-empty page ids and section ids (per
// page) are unique.
// Everything else in the document is left opaque.
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is required", ErrInvalidContent)
	}
	return translate(validatorInstance().Struct(doc))
}

// ValidatePage checks a single page before it is upserted.
func ValidatePage(page *Page) error {
	return translate(validatorInstance().Struct(page))
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Namespace()))
		case "unique_ids":
			msgs = append(msgs, fmt.Sprintf("%s must not repeat an id", fe.Namespace()))
		case "unique":
			msgs = append(msgs, fmt.Sprintf("%s must have unique %s values", fe.Namespace(), strings.ToLower(fe.Param())))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidContent, strings.Join(msgs, "; "))
}
