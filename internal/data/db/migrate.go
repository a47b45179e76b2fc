package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/paperlens-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		// =========================
		// Papers + analyses
		// =========================
		&types.Paper{},
		&types.Analysis{},
		&types.ResearchIdea{},
		&types.Reference{},

		// =========================
		// Researcher profiles
		// =========================
		&types.UserProfile{},

		// =========================
		// Jobs
		// =========================
		&types.JobRun{},
	); err != nil {
		return err
	}
	return EnsureAnalysisIndexes(db)
}

func EnsureAnalysisIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_analysis_paper_created ON analysis(paper_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_status_started ON analysis(status, started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_job_run_status_created ON job_run(status, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_reference_idea ON reference(research_idea_id);`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("ensure index: %w", err)
		}
	}
	return nil
}
