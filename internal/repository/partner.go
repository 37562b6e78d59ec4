package repository

import (
	"database/sql"
	"errors"
	"time"

	"invoicemanager/internal/database"
	"invoicemanager/internal/model"

	"github.com/google/uuid"
)

var ErrPartnerNotFound = errors.New("合作机构不存在")

type PartnerRepositoryInterface interface {
	Create(partner *model.Partner) error
	GetByID(id string) (*model.Partner, error)
	GetByName(displayName string) (*model.Partner, error)
	List() ([]*model.Partner, error)
	Update(partner *model.Partner) error
	Delete(id string) error
}

var _ PartnerRepositoryInterface = (*PartnerRepository)(nil)

type PartnerRepository struct{}

func NewPartnerRepository() *PartnerRepository {
	return &PartnerRepository{}
}

func (r *PartnerRepository) Create(partner *model.Partner) error {
	db := database.GetDB()
	partner.ID = uuid.New().String()
	partner.CreatedAt = time.Now()
	partner.UpdatedAt = time.Now()

	_, err := db.Exec(
		`INSERT INTO partners (id, display_name, partnership_start, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		partner.ID, partner.DisplayName, partner.PartnershipStart, partner.CreatedAt, partner.UpdatedAt,
	)
	return err
}

func (r *PartnerRepository) GetByID(id string) (*model.Partner, error) {
	db := database.GetDB()
	partner := &model.Partner{}
	err := db.QueryRow(
		`SELECT id, display_name, partnership_start, created_at, updated_at FROM partners WHERE id = ?`,
		id,
	).Scan(&partner.ID, &partner.DisplayName, &partner.PartnershipStart, &partner.CreatedAt, &partner.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return partner, err
}

func (r *PartnerRepository) GetByName(displayName string) (*model.Partner, error) {
	db := database.GetDB()
	partner := &model.Partner{}
	err := db.QueryRow(
		`SELECT id, display_name, partnership_start, created_at, updated_at FROM partners WHERE display_name = ?`,
		displayName,
	).Scan(&partner.ID, &partner.DisplayName, &partner.PartnershipStart, &partner.CreatedAt, &partner.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return partner, err
}

func (r *PartnerRepository) List() ([]*model.Partner, error) {
	db := database.GetDB()
	rows, err := db.Query(
		`SELECT id, display_name, partnership_start, created_at, updated_at FROM partners ORDER BY display_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partners []*model.Partner
	for rows.Next() {
		partner := &model.Partner{}
		if err := rows.Scan(&partner.ID, &partner.DisplayName, &partner.PartnershipStart, &partner.CreatedAt, &partner.UpdatedAt); err != nil {
			return nil, err
		}
		partners = append(partners, partner)
	}
	return partners, nil
}

func (r *PartnerRepository) Update(partner *model.Partner) error {
	db := database.GetDB()
	partner.UpdatedAt = time.Now()
	result, err := db.Exec(
		`UPDATE partners SET display_name = ?, partnership_start = ?, updated_at = ? WHERE id = ?`,
		partner.DisplayName, partner.PartnershipStart, partner.UpdatedAt, partner.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPartnerNotFound
	}
	return nil
}

func (r *PartnerRepository) Delete(id string) error {
	db := database.GetDB()
	_, err := db.Exec(`DELETE FROM partners WHERE id = ?`, id)
	return err
}
