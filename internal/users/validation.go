package users

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"casper-backend/internal/models"

	"golang.org/x/crypto/bcrypt"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail accepts a bare address, no display name or angle brackets.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func AllowedDomain(email, domain string) bool {
	return strings.HasSuffix(normalizeEmail(email), "@"+strings.ToLower(domain))
}

func domainError(domain string) error {
	return fmt.Errorf("Only email addresses from %q domain are allowed!", domain)
}

type SignUpRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

func validateSignUp(body *SignUpRequest, domain string) error {
	body.Email = normalizeEmail(body.Email)
	body.FirstName = strings.TrimSpace(body.FirstName)
	body.LastName = strings.TrimSpace(body.LastName)

	if body.Password == "" {
		return errors.New("Password is required!")
	}
	if report := CheckPassword(body.Password); !report.OK() {
		return errors.New(report.String())
	}
	if body.Email == "" || !ValidEmail(body.Email) {
		return errors.New("Enter a valid email address.")
	}
	if !AllowedDomain(body.Email, domain) {
		return domainError(domain)
	}
	if body.FirstName == "" || body.LastName == "" {
		return errors.New("first_name and last_name are required")
	}
	return nil
}

type UpdateUserRequest struct {
	Email       *string `json:"email"`
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	Password    *string `json:"password"`     // current password
	NewPassword *string `json:"new_password"` // only applied together with password
}

// applyUpdate copies the provided fields onto user. A password change needs
// the current password and a new one that passes CheckPassword.
func applyUpdate(user *models.User, body *UpdateUserRequest, domain string) error {
	if body.Email != nil {
		email := normalizeEmail(*body.Email)
		if !ValidEmail(email) {
			return errors.New("Enter a valid email address.")
		}
		user.Email = email
	}
	if !AllowedDomain(user.Email, domain) {
		return domainError(domain)
	}

	if body.FirstName != nil {
		if strings.TrimSpace(*body.FirstName) == "" {
			return errors.New("first_name may not be blank")
		}
		user.FirstName = strings.TrimSpace(*body.FirstName)
	}
	if body.LastName != nil {
		if strings.TrimSpace(*body.LastName) == "" {
			return errors.New("last_name may not be blank")
		}
		user.LastName = strings.TrimSpace(*body.LastName)
	}

	if body.NewPassword == nil {
		return nil
	}
	if body.Password == nil {
		return errors.New("Must provide current password!")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*body.Password)); err != nil {
		return errors.New("Wrong password!")
	}
	if report := CheckPassword(*body.NewPassword); !report.OK() {
		return errors.New(report.String())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(*body.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.PasswordHash = string(hash)
	return nil
}

// canView: admins see everyone, others only themselves
func canView(actorID uint, isAdmin bool, targetID uint) bool {
	return isAdmin || actorID == targetID
}
