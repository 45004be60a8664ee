package entity

import "context"

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserDirectoryInterface devolve ErrUserNotFound quando o usuário não existe.
type UserDirectoryInterface interface {
	FindUser(ctx context.Context, id string) (*User, error)
}
