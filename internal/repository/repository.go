package repository

import (
	"errors"

	"github.com/lib/pq"

	"tsirk/internal/database"
)

type Repositories struct {
	Orders *OrderRepository
	Codes  *AccessCodeRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Orders: NewOrderRepository(db),
		Codes:  NewAccessCodeRepository(db),
	}
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
