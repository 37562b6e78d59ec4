package service

import (
	"errors"

	"invoicemanager/internal/credits"
	"invoicemanager/internal/model"
	"invoicemanager/internal/repository"
)

var ErrPartnerExists = errors.New("合作机构已存在")

type PartnerService struct {
	repo repository.PartnerRepositoryInterface
}

func NewPartnerServiceWithRepo(repo repository.PartnerRepositoryInterface) *PartnerService {
	return &PartnerService{repo: repo}
}

func NewPartnerService() *PartnerService {
	return NewPartnerServiceWithRepo(repository.NewPartnerRepository())
}

func (s *PartnerService) Create(req *model.CreatePartnerRequest) (*model.Partner, error) {
	if req.PartnershipStart != "" {
		if _, err := credits.ParseYearMonth(req.PartnershipStart); err != nil {
			return nil, err
		}
	}

	existing, err := s.repo.GetByName(req.DisplayName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPartnerExists
	}

	partner := &model.Partner{
		DisplayName:      req.DisplayName,
		PartnershipStart: req.PartnershipStart,
	}
	if err := s.repo.Create(partner); err != nil {
		return nil, err
	}
	return partner, nil
}

func (s *PartnerService) List() ([]*model.Partner, error) {
	return s.repo.List()
}

func (s *PartnerService) Update(id string, req *model.UpdatePartnerRequest) (*model.Partner, error) {
	partner, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if partner == nil {
		return nil, repository.ErrPartnerNotFound
	}

	if req.DisplayName != nil {
		partner.DisplayName = *req.DisplayName
	}
	if req.PartnershipStart != nil {
		if *req.PartnershipStart != "" {
			if _, err := credits.ParseYearMonth(*req.PartnershipStart); err != nil {
				return nil, err
			}
		}
		partner.PartnershipStart = *req.PartnershipStart
	}

	if err := s.repo.Update(partner); err != nil {
		return nil, err
	}
	return partner, nil
}

func (s *PartnerService) Delete(id string) error {
	return s.repo.Delete(id)
}
