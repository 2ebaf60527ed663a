// Package prompt owns the structured generation parameters and their
// serialization into the service's `--key value` flag syntax.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const randomToken = "random"

// StyleReference is either the random sentinel or a positive style code.
// The zero value is random.
type StyleReference struct {
	code int
}

// RandomStyle returns the random sentinel.
func RandomStyle() StyleReference {
	return StyleReference{}
}

// FixedStyle returns a concrete style reference. Non-positive codes are rejected.
func FixedStyle(code int) (StyleReference, error) {
	if code <= 0 {
		return StyleReference{}, fmt.Errorf("style reference %d must be positive", code)
	}
	return StyleReference{code: code}, nil
}

// ParseStyleReference accepts "random" or a positive integer.
func ParseStyleReference(value string) (StyleReference, error) {
	trimmed := strings.TrimSpace(value)
	if strings.EqualFold(trimmed, randomToken) {
		return RandomStyle(), nil
	}
	code, err := strconv.Atoi(trimmed)
	if err != nil {
		return StyleReference{}, fmt.Errorf("parse style reference %q: %w", value, err)
	}
	return FixedStyle(code)
}

// IsRandom reports whether the sentinel is set.
func (s StyleReference) IsRandom() bool {
	return s.code <= 0
}

// Code returns the concrete code and whether one is set.
func (s StyleReference) Code() (int, bool) {
	if s.IsRandom() {
		return 0, false
	}
	return s.code, true
}

func (s StyleReference) String() string {
	if s.IsRandom() {
		return randomToken
	}
	return strconv.Itoa(s.code)
}

// MarshalText implements encoding.TextMarshaler.
func (s StyleReference) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *StyleReference) UnmarshalText(text []byte) error {
	parsed, err := ParseStyleReference(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON encodes random as a string and codes as numbers.
func (s StyleReference) MarshalJSON() ([]byte, error) {
	if s.IsRandom() {
		return json.Marshal(randomToken)
	}
	return json.Marshal(s.code)
}

// UnmarshalJSON accepts both the string and the numeric form.
func (s *StyleReference) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		parsed, err := FixedStyle(code)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("style reference must be a number or string: %w", err)
	}
	return s.UnmarshalText([]byte(text))
}

// AspectRatios lists the ratios the service accepts.
var AspectRatios = []string{"1:1", "16:9", "4:3", "9:16", "3:2"}

const (
	defaultAspectRatio = "16:9"
	defaultStrength    = 1000
	MinStyleStrength   = 0
	MaxStyleStrength   = 1000
)

// Parameters are the generation controls serialized into the prompt text.
type Parameters struct {
	StyleReference StyleReference `json:"sref" toml:"sref"`
	AspectRatio    string         `json:"ar" toml:"ar" validate:"required,aspect_ratio"`
	StyleStrength  int            `json:"s" toml:"s" validate:"min=0,max=1000"`
}

// Defaults returns the parameters used when nothing else is known.
func Defaults() Parameters {
	return Parameters{
		StyleReference: RandomStyle(),
		AspectRatio:    defaultAspectRatio,
		StyleStrength:  defaultStrength,
	}
}

var validate = newValidator()

// newValidator registers aspect_ratio, which accepts exactly AspectRatios.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("aspect_ratio", func(fl validator.FieldLevel) bool {
		return slices.Contains(AspectRatios, fl.Field().String())
	})
	return v
}

// Validate reports every field that is out of range.
func (p Parameters) Validate() error {
	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("invalid parameters: %s", strings.Join(msgs, ", "))
		}
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

// Normalize substitutes defaults for any field that fails validation.
func (p Parameters) Normalize() Parameters {
	defaults := Defaults()
	if validate.Var(p.AspectRatio, "required,aspect_ratio") != nil {
		p.AspectRatio = defaults.AspectRatio
	}
	if p.StyleStrength < MinStyleStrength || p.StyleStrength > MaxStyleStrength {
		p.StyleStrength = defaults.StyleStrength
	}
	return p
}

// NextAspectRatio cycles through AspectRatios.
func (p Parameters) NextAspectRatio() Parameters {
	for i, ratio := range AspectRatios {
		if ratio == p.AspectRatio {
			p.AspectRatio = AspectRatios[(i+1)%len(AspectRatios)]
			return p
		}
	}
	p.AspectRatio = AspectRatios[0]
	return p
}

// AdjustStrength moves StyleStrength by delta, clamped to the valid range.
func (p Parameters) AdjustStrength(delta int) Parameters {
	p.StyleStrength += delta
	if p.StyleStrength < MinStyleStrength {
		p.StyleStrength = MinStyleStrength
	}
	if p.StyleStrength > MaxStyleStrength {
		p.StyleStrength = MaxStyleStrength
	}
	return p
}
