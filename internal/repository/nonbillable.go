package repository

import (
	"time"

	"invoicemanager/internal/database"
	"invoicemanager/internal/model"

	"github.com/google/uuid"
)

type NonbillableRepositoryInterface interface {
	ListPIs() ([]string, error)
	AddPI(pi string) error
	RemovePI(pi string) error
	ListProjects() ([]string, error)
	AddProject(project string) error
	RemoveProject(project string) error
	ListTimedProjects() ([]model.TimedProject, error)
	AddTimedProject(tp *model.TimedProject) error
	RemoveTimedProject(id string) error
}

var _ NonbillableRepositoryInterface = (*NonbillableRepository)(nil)

// NonbillableRepository 维护三类免计费名单：PI、项目、定时项目
type NonbillableRepository struct{}

func NewNonbillableRepository() *NonbillableRepository {
	return &NonbillableRepository{}
}

func (r *NonbillableRepository) ListPIs() ([]string, error) {
	return listColumn(`SELECT pi FROM nonbillable_pis ORDER BY pi`)
}

func (r *NonbillableRepository) AddPI(pi string) error {
	db := database.GetDB()
	_, err := db.Exec(
		`INSERT INTO nonbillable_pis (id, pi) VALUES (?, ?) ON CONFLICT(pi) DO NOTHING`,
		uuid.New().String(), pi,
	)
	return err
}

func (r *NonbillableRepository) RemovePI(pi string) error {
	db := database.GetDB()
	_, err := db.Exec(`DELETE FROM nonbillable_pis WHERE pi = ?`, pi)
	return err
}

func (r *NonbillableRepository) ListProjects() ([]string, error) {
	return listColumn(`SELECT project FROM nonbillable_projects ORDER BY project`)
}

func (r *NonbillableRepository) AddProject(project string) error {
	db := database.GetDB()
	_, err := db.Exec(
		`INSERT INTO nonbillable_projects (id, project) VALUES (?, ?) ON CONFLICT(project) DO NOTHING`,
		uuid.New().String(), project,
	)
	return err
}

func (r *NonbillableRepository) RemoveProject(project string) error {
	db := database.GetDB()
	_, err := db.Exec(`DELETE FROM nonbillable_projects WHERE project = ?`, project)
	return err
}

func (r *NonbillableRepository) ListTimedProjects() ([]model.TimedProject, error) {
	db := database.GetDB()
	rows, err := db.Query(
		`SELECT id, project, start_month, end_month, created_at FROM timed_projects ORDER BY project`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []model.TimedProject
	for rows.Next() {
		var tp model.TimedProject
		if err := rows.Scan(&tp.ID, &tp.Project, &tp.StartMonth, &tp.EndMonth, &tp.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, tp)
	}
	return projects, nil
}

func (r *NonbillableRepository) AddTimedProject(tp *model.TimedProject) error {
	db := database.GetDB()
	tp.ID = uuid.New().String()
	tp.CreatedAt = time.Now()
	_, err := db.Exec(
		`INSERT INTO timed_projects (id, project, start_month, end_month, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(project) DO UPDATE SET start_month = excluded.start_month,
		 end_month = excluded.end_month, updated_at = excluded.updated_at`,
		tp.ID, tp.Project, tp.StartMonth, tp.EndMonth, tp.CreatedAt, tp.CreatedAt,
	)
	return err
}

func (r *NonbillableRepository) RemoveTimedProject(id string) error {
	db := database.GetDB()
	_, err := db.Exec(`DELETE FROM timed_projects WHERE id = ?`, id)
	return err
}

func listColumn(query string) ([]string, error) {
	db := database.GetDB()
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
