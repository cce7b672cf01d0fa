package utils

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ISODate is the layout of every stored date.
const ISODate = "2006-01-02"

var (
	personNameTag   = "personname"
	personNameText  = "{0} can only contain letters, dots and spaces"
	personNameRegex = regexp.MustCompile(`^[a-zA-Z\s.]+$`)

	phone10Tag   = "phone10"
	phone10Text  = "{0} must be exactly 10 digits"
	phone10Regex = regexp.MustCompile(`^\d{10}$`)

	isoDateTag  = "isodate"
	isoDateText = "{0} must be a date in YYYY-MM-DD format"

	pastDateTag  = "pastdate"
	pastDateText = "{0} cannot be in the future"

	notBlankTag  = "notblank"
	notBlankText = "{0} cannot be blank"

	requiredTag  = "required"
	requiredText = "{0} is required"

	errInvalidInput = errors.New("invalid input")

	validate   *validator.Validate
	translator ut.Translator
	initOnce   sync.Once

	// now is swapped in tests.
	now = time.Now
)

// Validator returns the shared validator, initialising it on first use.
func Validator() (*validator.Validate, ut.Translator) {
	initOnce.Do(func() {
		validate = validator.New()
		english := en.New()
		uni := ut.New(english, english)
		translator, _ = uni.GetTranslator("en")
		InitValidators(validate, translator)
	})
	return validate, translator
}

// InitValidators registers translations, JSON field names and custom tags.
func InitValidators(v *validator.Validate, trans ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation(personNameTag, func(fl validator.FieldLevel) bool {
		return personNameRegex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation(phone10Tag, func(fl validator.FieldLevel) bool {
		return phone10Regex.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation(isoDateTag, func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation(pastDateTag, func(fl validator.FieldLevel) bool {
		d, err := ParseDate(fl.Field().String())
		if err != nil {
			return false
		}
		return !d.After(Today())
	})
	_ = v.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	RegisterCustomTranslation(v, trans, personNameTag, personNameText)
	RegisterCustomTranslation(v, trans, phone10Tag, phone10Text)
	RegisterCustomTranslation(v, trans, isoDateTag, isoDateText)
	RegisterCustomTranslation(v, trans, pastDateTag, pastDateText)
	RegisterCustomTranslation(v, trans, notBlankTag, notBlankText)
	RegisterCustomTranslation(v, trans, requiredTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(v *validator.Validate, trans ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = v.RegisterTranslation(
		tag, trans,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// ValidateStruct runs the struct tags of s and converts failures into a ValidationError.
func ValidateStruct(s interface{}) error {
	v, trans := Validator()
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validating input")
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Error: fe.Translate(trans)})
	}
	return NewValidationError(errInvalidInput, fields...)
}

// ParseDate parses an ISO date (YYYY-MM-DD) in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(ISODate, strings.TrimSpace(s))
}

// Today returns the current date at midnight UTC.
func Today() time.Time {
	t := now().UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// TodayString returns the current date as YYYY-MM-DD.
func TodayString() string {
	return Today().Format(ISODate)
}
