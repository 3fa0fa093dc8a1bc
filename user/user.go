package user

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors an account of the auth provider. ID is the provider's user id.
type User struct {
	ID        uuid.UUID `db:"id"`
	Email     string    `db:"email"`
	Manager   bool      `db:"manager"`
	CreatedAt time.Time `db:"created_at"`
}
