package graph

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"github.com/sakif/linkboard/internal/apperror"
	"github.com/sakif/linkboard/internal/model"
	"github.com/sakif/linkboard/internal/service"
)

// validate is shared; a *validator.Validate caches struct metadata and is
// safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their GraphQL (json) names, so loc reads
	// ["link", "url"] rather than ["Link", "URL"].
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(linkInputRules, service.LinkInput{})
	return v
}

// linkInputRules are the rules that depend on the link type.
func linkInputRules(sl validator.StructLevel) {
	in := sl.Current().Interface().(service.LinkInput)

	switch in.Type {
	case model.LinkTypeSingle:
		if in.URL == nil || *in.URL == "" {
			sl.ReportError(in.URL, "url", "URL", "required_if", "type SINGLE")
		}
	case model.LinkTypeGroup:
		if in.Favicon == nil || *in.Favicon == "" {
			sl.ReportError(in.Favicon, "favicon", "Favicon", "required_if", "type GROUP")
		}
		if in.LinkGroupID != nil {
			sl.ReportError(in.LinkGroupID, "linkGroupId", "LinkGroupID", "excluded_if", "type GROUP")
		}
	}
}

// bind decodes raw GraphQL arguments into A and validates it.
//
// Client mistakes come back as *apperror.ValidationError carrying one Error
// per offending field. Anything else is a programming error in A.
func bind[A any](raw map[string]any) (A, error) {
	var args A

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      &args,
	})
	if err != nil {
		return args, fmt.Errorf("graph: building decoder for %T: %w", args, err)
	}
	if err := dec.Decode(raw); err != nil {
		e := apperror.NewError("Invalid arguments")
		e.Type = "type_error"
		e.Ctx = map[string]any{"detail": err.Error()}
		return args, apperror.RejectErrors([]apperror.Error{e})
	}

	if err := validate.Struct(args); err != nil {
		return args, fromValidator(err)
	}
	return args, nil
}

// fromValidator turns validator field errors into mutation errors.
func fromValidator(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("graph: validating arguments: %w", err)
	}

	out := make([]apperror.Error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// The namespace starts with the args struct's type name.
		loc := strings.Split(fe.Namespace(), ".")[1:]

		ctx := map[string]any{}
		if fe.Param() != "" {
			ctx["param"] = fe.Param()
		}

		out = append(out, apperror.Error{
			Msg:  fieldMessage(fe),
			Type: fe.Tag(),
			Loc:  loc,
			Ctx:  ctx,
		})
	}
	return apperror.RejectErrors(out)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "http_url":
		return fmt.Sprintf("%s must be an http or https URL", field)
	case "required_if":
		other, value, _ := strings.Cut(fe.Param(), " ")
		return fmt.Sprintf("%s is mandatory if %s is %s", field, other, value)
	case "excluded_if":
		other, value, _ := strings.Cut(fe.Param(), " ")
		return fmt.Sprintf("%s must not be set if %s is %s", field, other, value)
	default:
		return fmt.Sprintf("%s failed the %s rule", field, fe.Tag())
	}
}

// Args gives a handler the standard Bind for its argument struct A.
type Args[A any] struct{}

func (Args[A]) Bind(raw map[string]any) (A, error) {
	return bind[A](raw)
}

// Public is the Authorize of fields without ownership checks.
type Public[A any] struct{}

func (Public[A]) Authorize(context.Context, *Scope, A) error {
	return nil
}
