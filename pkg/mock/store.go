package mock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite" // Pure Go SQLite (no CGO required)
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned for unknown projects, vulnerabilities and tasks
var ErrNotFound = errors.New("not found")

// Store wraps the GORM database connection
type Store struct {
	*gorm.DB
}

// OpenStore connects and migrates the schema
func OpenStore(cfg DatabaseConfig) (*Store, error) {
	var dialector gorm.Dialector
	memory := false

	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = ":memory:"
		}
		memory = strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	logLevel := gormlogger.Silent
	if cfg.Debug {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Every connection to ":memory:" is a separate database
	if memory {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&Project{}, &Vulnerability{}, &Task{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// ---- Project Operations ----

// SaveProject inserts or replaces a project together with its findings
func (s *Store) SaveProject(ctx context.Context, p *Project, vulns []Vulnerability) error {
	return s.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(p).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", p.ID).Delete(&Vulnerability{}).Error; err != nil {
			return err
		}
		if len(vulns) == 0 {
			return nil
		}
		for i := range vulns {
			vulns[i].ProjectID = p.ID
		}
		return tx.Create(&vulns).Error
	})
}

func (s *Store) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := s.WithContext(ctx).Order("created_at, id").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	var p Project
	err := s.WithContext(ctx).
		Preload("Vulnerabilities", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Where("id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *Store) SetIndexingStatus(ctx context.Context, id, status string) error {
	res := s.WithContext(ctx).Model(&Project{}).Where("id = ?", id).Update("indexing_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Vulnerability Operations ----

func (s *Store) GetVulnerability(ctx context.Context, projectID, id string) (*Vulnerability, error) {
	var v Vulnerability
	if err := s.WithContext(ctx).Where("project_id = ? AND id = ?", projectID, id).First(&v).Error; err != nil {
		return nil, notFound(err)
	}
	return &v, nil
}

// UpdateTestState sets a finding's status and serialized last test
func (s *Store) UpdateTestState(ctx context.Context, projectID, id, status, lastTest string) error {
	res := s.WithContext(ctx).Model(&Vulnerability{}).
		Where("project_id = ? AND id = ?", projectID, id).
		Updates(map[string]interface{}{"status": status, "last_test": lastTest})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ---- Task Operations ----

func (s *Store) SaveTask(ctx context.Context, t *Task) error {
	return s.WithContext(ctx).Save(t).Error
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	if err := s.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}
