package auth

import (
	"errors"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/hitoshi/finwise/internal/model"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateRegistration は登録ペイロードの形式を検証する。
// 検証エラーはフィールド単位の model.ValidationError として返す。
func ValidateRegistration(r model.Registration) error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Username,
			validation.Required.Error("username is required"),
			validation.Length(3, 50).Error("username must be between 3 and 50 characters"),
			validation.Match(usernamePattern).Error("username may contain only letters, digits, '.', '_' and '-'"),
		),
		validation.Field(&r.Email,
			validation.Required.Error("email is required"),
			validation.Length(3, 255),
			is.Email.Error("email must be a valid email address"),
		),
		validation.Field(&r.Password,
			validation.Required.Error("password is required"),
			validation.Length(8, 100).Error("password must be between 8 and 100 characters"),
			validation.By(maxPasswordBytes),
		),
		validation.Field(&r.FirstName, validation.Length(0, 100)),
		validation.Field(&r.LastName, validation.Length(0, 100)),
		validation.Field(&r.ImageURL, validation.Length(0, 2048), is.URL),
	)
	return toValidationError(err)
}

// maxPasswordBytes は文字数の上限内でもbcryptの上限バイト数を超える入力を拒否する。
func maxPasswordBytes(value interface{}) error {
	s, _ := value.(string)
	if len(s) > MaxPasswordBytes {
		return fmt.Errorf("password must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
}

// toValidationError はozzo-validationのエラーをmodel.ValidationErrorに変換する。
// フィールド単位でないエラーはそのまま返す。
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		return model.NewValidationError(errs)
	}
	return err
}
