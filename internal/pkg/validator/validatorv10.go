package validator

import (
	"encoding/json"
	"errors"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shandysiswandi/stepup/internal/pkg/strcase"
)

var ErrTranslatorNotFound = errors.New("translator not found")

// rules are the tags this service adds on top of the built-in ones.
var rules = []struct {
	tag string
	re  *regexp.Regexp
	msg string
}{
	// NIST 800-63B length bounds; 72 is the bcrypt input limit.
	{tag: "password", re: regexp.MustCompile(`^.{8,72}$`), msg: "{0} must be 8-72 characters"},
	{tag: "username", re: regexp.MustCompile(`^[A-Za-z0-9._-]{3,64}$`), msg: "{0} must be 3-64 characters of letters, digits, dot, dash or underscore"},
}

// V10ValidationError maps snake_case field paths to English messages.
// Nested fields are dotted, e.g. "payload.amount".
type V10ValidationError map[string]string

func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	parts := make([]string, 0, len(vs))
	for _, k := range slices.Sorted(maps.Keys(vs)) {
		parts = append(parts, k+": "+vs[k])
	}
	return strings.Join(parts, "; ")
}

func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// MarshalJSON keeps the map shape when the error itself is encoded.
func (vs V10ValidationError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string(vs))
}

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func NewV10Validator() (*V10Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	lang := en.New()
	trans, ok := ut.New(lang, lang).GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	for _, rule := range rules {
		err := validate.RegisterValidation(rule.tag, func(fl validator.FieldLevel) bool {
			s, ok := fl.Field().Interface().(string)
			return ok && rule.re.MatchString(s)
		})
		if err != nil {
			return nil, err
		}

		err = validate.RegisterTranslation(rule.tag, trans,
			func(t ut.Translator) error { return t.Add(rule.tag, rule.msg, false) },
			translate,
		)
		if err != nil {
			return nil, err
		}
	}

	return &V10Validator{validate: validate, translator: trans}, nil
}

func translate(t ut.Translator, fe validator.FieldError) string {
	msg, err := t.T(fe.Tag(), fe.Field())
	if err != nil {
		slog.Warn("validation message missing", "tag", fe.Tag(), "error", err)
		return fe.Error()
	}
	return msg
}

// Validate returns V10ValidationError when data breaks a rule, or the
// validator's own error when data is not a struct.
func (v *V10Validator) Validate(data any) error {
	err := v.validate.Struct(data)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(V10ValidationError, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fieldPath(fe)] = fe.Translate(v.translator)
	}
	return out
}

// fieldPath drops the root struct name from the namespace and snake-cases
// each segment: "PerformInput.Payload.Amount" becomes "payload.amount".
func fieldPath(fe validator.FieldError) string {
	segs := strings.Split(fe.StructNamespace(), ".")
	if len(segs) > 1 {
		segs = segs[1:]
	}
	for i, s := range segs {
		segs[i] = strcase.ToLowerSnake(s)
	}
	return strings.Join(segs, ".")
}
