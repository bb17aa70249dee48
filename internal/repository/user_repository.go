package repository

import (
	"database/sql"

	"github.com/unclebandit/campaign-dispatch/internal/model"
)

// UserRepositoryInterface defines the lookups the dispatcher needs
type UserRepositoryInterface interface {
	GetByID(id int64) (*model.User, error)
}

type UserRepository struct {
	DB *sql.DB
}

// GetByID fetches a dispatch target by ID. Not found is (nil, nil).
func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	query := `
        SELECT id, chat_id, phone, first_name, last_name, attrs
        FROM users
        WHERE id = $1
    `
	row := r.DB.QueryRow(query, id)

	var u model.User
	if err := row.Scan(&u.ID, &u.ChatID, &u.Phone, &u.FirstName, &u.LastName, &u.Attrs); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // not found
		}
		return nil, err
	}
	return &u, nil
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
