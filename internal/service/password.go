package service

import (
	"strings"
	"unicode"

	"github.com/deaglo/apigateway/internal/pkg/apperrors"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var commonPasswords = map[string]bool{
	"password": true, "password1": true, "12345678": true, "123456789": true,
	"1234567890": true, "qwertyuiop": true, "qwerty123": true, "iloveyou": true,
	"sunshine": true, "princess": true, "football": true, "baseball": true,
	"welcome1": true, "abc12345": true, "letmein1": true, "trustno1": true,
	"passw0rd": true, "superman": true, "starwars": true, "11111111": true,
}

// ValidatePassword applies the account password policy. All violations are
// reported together under the "password" field.
func ValidatePassword(password, email string) error {
	var problems []string
	if len(password) < minPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if commonPasswords[strings.ToLower(password)] {
		problems = append(problems, "This password is too common.")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		problems = append(problems, "This password is entirely numeric.")
	}
	if email != "" && similarToEmail(password, email) {
		problems = append(problems, "The password is too similar to the email address.")
	}
	if len(problems) == 0 {
		return nil
	}
	return apperrors.NewFieldError("password", strings.Join(problems, " "))
}

func similarToEmail(password, email string) bool {
	p := strings.ToLower(password)
	e := strings.ToLower(strings.TrimSpace(email))
	if p == e {
		return true
	}
	local, _, _ := strings.Cut(e, "@")
	return local != "" && p == local
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
