package teacher

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/eduapp/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to the username or name"
)

// InitValidators registers the teacher validations on validate.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(teacherStructValidation, NewTeacher{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// teacherStructValidation does struct level validation on NewTeacher.
func teacherStructValidation(sl validator.StructLevel) {
	if nt, ok := sl.Current().Interface().(NewTeacher); ok && nt.Password != "" {
		if tag := checkPassword(nt.Password, nt.Username, nt.Name); tag != "" {
			sl.ReportError(nt.Password, "password", "Password", tag, "")
		}
	}
}

// checkPassword applies the password policy and returns the tag of the first violated rule:
// - minLen: 8
// - no whitespace
// - not all numeric
// - no similarity with the username or name
func checkPassword(pwd, uname, name string) string {
	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		return pwdMinLenTag
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return pwdNoSpaceTag
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		return pwdNotAllNumTag
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(strings.ToLower(pass), ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
	}
	if getRatio(pwd, uname) >= pwdMaxSim || getRatio(pwd, name) >= pwdMaxSim {
		return pwdAttrSimTag
	}
	return ""
}
