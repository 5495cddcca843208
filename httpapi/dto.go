package httpapi

import "github.com/MrEthical07/sessionauth"

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=256"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func newUserResponse(id sessionauth.Identity) userResponse {
	return userResponse{ID: id.SubjectID, Email: id.Email, Role: id.Role}
}

type authResponse struct {
	Message string        `json:"message"`
	User    *userResponse `json:"user,omitempty"`
}

type validationErrorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}
