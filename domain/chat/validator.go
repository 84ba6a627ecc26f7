package chat

import (
	apperrors "chat-room/errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// messageCandidate mirrors the business rules of a storable message:
// both fields present, content capped at 1000 characters, username at 50.
type messageCandidate struct {
	Content  string `validate:"required,max=1000"`
	Username string `validate:"required,max=50"`
}

// ValidateMessage checks a sending intent against the message rules.
// A failing candidate is never persisted and never broadcast.
func ValidateMessage(cmd PostMessageCommand) error {
	err := validate.Struct(messageCandidate{
		Content:  cmd.Content,
		Username: cmd.Username,
	})
	if err == nil {
		return nil
	}

	fieldErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	var details []string
	for _, fe := range fieldErrors {
		details = append(details, describe(fe))
	}
	return apperrors.NewValidationError(details...)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s can't be blank", fieldName(fe))
	case "max":
		return fmt.Sprintf("%s is too long (maximum is %s characters)", fieldName(fe), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fieldName(fe))
	}
}

func fieldName(fe validator.FieldError) string {
	switch fe.Field() {
	case "Content":
		return "content"
	case "Username":
		return "username"
	default:
		return fe.Field()
	}
}
