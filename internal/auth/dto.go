package auth

import (
	"regexp"
	"strings"

	"github.com/frahmantamala/attendance-management/internal"
	"github.com/frahmantamala/attendance-management/internal/core/common/validation"
	userDatamodel "github.com/frahmantamala/attendance-management/internal/core/datamodel/user"
)

const MinPasswordLength = 6

var resetCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

type RegisterDTO struct {
	Name     string             `json:"name"`
	Email    string             `json:"email"`
	Password string             `json:"password"`
	Role     userDatamodel.Role `json:"role"`
}

func (d *RegisterDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = normalizeEmail(d.Email)
	if d.Role == "" {
		d.Role = userDatamodel.RoleEmployee
	}
}

func (d RegisterDTO) Validate() *internal.AppError {
	validator := validation.NewValidator()
	validator.Field("name", d.Name).Required().MinLength(3).MaxLength(50)
	validator.Field("email", d.Email).Required().Email()
	validator.Field("password", d.Password).Required().MinLength(MinPasswordLength)
	validator.Field("role", string(d.Role)).Custom(func(interface{}) *internal.AppError {
		if !d.Role.Valid() {
			return internal.NewValidationFieldError("role", "role must be one of: admin, employee", internal.ErrCodeInvalidRole)
		}
		return nil
	})
	return validator.Validate()
}

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() *internal.AppError {
	validator := validation.NewValidator()
	validator.Field("email", d.Email).Required().Email()
	validator.Field("password", d.Password).Required()
	return validator.Validate()
}

// RefreshTokenDTO lets clients without cookies send the refresh token in the body.
type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

type ForgotPasswordDTO struct {
	Email string `json:"email"`
}

func (d ForgotPasswordDTO) Validate() *internal.AppError {
	validator := validation.NewValidator()
	validator.Field("email", d.Email).Required().Email()
	return validator.Validate()
}

type ResetPasswordDTO struct {
	Email       string `json:"email"`
	ResetCode   string `json:"resetCode"`
	NewPassword string `json:"newPassword"`
}

func (d ResetPasswordDTO) Validate() *internal.AppError {
	validator := validation.NewValidator()
	validator.Field("email", d.Email).Required().Email()
	validator.Field("resetCode", d.ResetCode).Required().Custom(func(v interface{}) *internal.AppError {
		if code, _ := v.(string); code != "" && !resetCodePattern.MatchString(code) {
			return internal.NewValidationFieldError("resetCode", "resetCode must be 6 digits", internal.ErrCodeValidationFailed)
		}
		return nil
	})
	validator.Field("newPassword", d.NewPassword).Required().MinLength(MinPasswordLength)
	return validator.Validate()
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (d ChangePasswordDTO) Validate() *internal.AppError {
	validator := validation.NewValidator()
	validator.Field("currentPassword", d.CurrentPassword).Required()
	validator.Field("newPassword", d.NewPassword).Required().MinLength(MinPasswordLength)
	return validator.Validate()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
