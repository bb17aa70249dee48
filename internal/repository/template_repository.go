package repository

import (
	"database/sql"

	apperrors "github.com/unclebandit/campaign-dispatch/internal/apperrors"
	"github.com/unclebandit/campaign-dispatch/internal/model"
)

type TemplateRepositoryInterface interface {
	GetByID(id int64) (*model.Template, error)
}

type TemplateRepository struct {
	DB *sql.DB
}

func (r *TemplateRepository) GetByID(id int64) (*model.Template, error) {
	query := `SELECT id, body, variables, status, created_at FROM templates WHERE id=$1`
	var t model.Template
	err := r.DB.QueryRow(query, id).Scan(&t.ID, &t.Body, &t.Variables, &t.Status, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewTemplateNotFound(id)
		}
		return nil, err
	}
	return &t, nil
}

var _ TemplateRepositoryInterface = (*TemplateRepository)(nil)
