package http

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/tracks-academy/progress-ledger/internal/domain/shared"
)

// custom validation tags
const (
	notBlankTag  = "notblank"
	localDateTag = "localdate"
	trackTag     = "track"
)

// requestValidator replaces gin's default binding validator so request
// errors come back with json field names and English messages.
type requestValidator struct {
	validate   *validator.Validate
	translator ut.Translator
}

var (
	installOnce  sync.Once
	reqValidator *requestValidator
)

// installValidator registers the validator with gin exactly once.
func installValidator() *requestValidator {
	installOnce.Do(func() {
		reqValidator = newRequestValidator()
		binding.Validator = reqValidator
	})
	return reqValidator
}

func newRequestValidator() *requestValidator {
	v := validator.New()
	v.SetTagName("binding")

	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlank)
	_ = v.RegisterValidation(localDateTag, localDate)
	_ = v.RegisterValidation(trackTag, checkinTrack)

	noop := func(ut.Translator) error { return nil }
	for _, tag := range []string{notBlankTag, localDateTag, trackTag} {
		_ = v.RegisterTranslation(tag, trans, noop, translateCustom)
	}

	return &requestValidator{validate: v, translator: trans}
}

// ValidateStruct implements binding.StructValidator.
func (r *requestValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return r.validate.Struct(obj)
}

// Engine implements binding.StructValidator.
func (r *requestValidator) Engine() any { return r.validate }

// fieldErrors returns json field -> message, or nil when err is not a
// validation failure.
func (r *requestValidator) fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Translate(r.translator)
	}
	return out
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case localDateTag:
		return "must be a date in YYYY-MM-DD format"
	case trackTag:
		return "must be one of data, lang, soft"
	default:
		return ""
	}
}

// Custom Validators

func notBlank(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

func localDate(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := shared.ParseLocalDate(s)
	return err == nil
}

func checkinTrack(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := shared.ParseCheckinTrack(s)
	return err == nil
}
