package service

import (
	"invoicemanager/internal/credits"
	"invoicemanager/internal/model"
	"invoicemanager/internal/repository"
)

// NonbillableService 维护免计费名单
type NonbillableService struct {
	repo repository.NonbillableRepositoryInterface
}

func NewNonbillableServiceWithRepo(repo repository.NonbillableRepositoryInterface) *NonbillableService {
	return &NonbillableService{repo: repo}
}

func NewNonbillableService() *NonbillableService {
	return NewNonbillableServiceWithRepo(repository.NewNonbillableRepository())
}

func (s *NonbillableService) ListPIs() ([]string, error) {
	return s.repo.ListPIs()
}

func (s *NonbillableService) AddPI(pi string) error {
	return s.repo.AddPI(pi)
}

func (s *NonbillableService) RemovePI(pi string) error {
	return s.repo.RemovePI(pi)
}

func (s *NonbillableService) ListProjects() ([]string, error) {
	return s.repo.ListProjects()
}

func (s *NonbillableService) AddProject(project string) error {
	return s.repo.AddProject(project)
}

func (s *NonbillableService) RemoveProject(project string) error {
	return s.repo.RemoveProject(project)
}

func (s *NonbillableService) ListTimedProjects() ([]model.TimedProject, error) {
	return s.repo.ListTimedProjects()
}

func (s *NonbillableService) AddTimedProject(tp *model.TimedProject) error {
	start, err := credits.ParseYearMonth(tp.StartMonth)
	if err != nil {
		return err
	}
	end, err := credits.ParseYearMonth(tp.EndMonth)
	if err != nil {
		return err
	}
	// 区间为闭区间，起止相同表示只有一个月
	if credits.MonthsBetween(start, end) < 0 {
		return &credits.InvalidDateError{Value: tp.EndMonth}
	}
	return s.repo.AddTimedProject(tp)
}

func (s *NonbillableService) RemoveTimedProject(id string) error {
	return s.repo.RemoveTimedProject(id)
}
