package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tarikbs/repairdesk/internal/models"
)

// DashboardService assembles the per-user overview figures.
type DashboardService struct {
	db       *gorm.DB
	invoices *InvoiceService
}

func NewDashboardService(db *gorm.DB, invoices *InvoiceService) *DashboardService {
	return &DashboardService{db: db, invoices: invoices}
}

// Summary is the dashboard payload.
type Summary struct {
	TotalJobs      int64                      `json:"total_jobs"`
	JobsByStatus   map[models.JobStatus]int64 `json:"jobs_by_status"`
	RecentJobs     []models.Job               `json:"recent_jobs"`
	InvoiceCount   int64                      `json:"invoice_count"`
	Revenue        float64                    `json:"revenue"`
	OutstandingDue float64                    `json:"outstanding_due"`
}

const recentJobLimit = 5

// Summarize computes the dashboard for one user.
func (s *DashboardService) Summarize(ctx context.Context, userID uint) (*Summary, error) {
	sum := &Summary{JobsByStatus: make(map[models.JobStatus]int64)}

	type statusCount struct {
		Status models.JobStatus
		N      int64
	}
	var counts []statusCount
	err := s.db.WithContext(ctx).Model(&models.Job{}).
		Select("status, COUNT(*) AS n").
		Where("user_id = ?", userID).
		Group("status").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	for _, c := range counts {
		sum.JobsByStatus[c.Status] = c.N
		sum.TotalJobs += c.N
	}

	err = s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(recentJobLimit).
		Find(&sum.RecentJobs).Error
	if err != nil {
		return nil, fmt.Errorf("recent jobs: %w", err)
	}

	invoices, err := s.invoices.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum.InvoiceCount = int64(len(invoices))
	for i := range invoices {
		if invoices[i].IsPaid() {
			sum.Revenue += invoices[i].Total
		} else {
			sum.OutstandingDue += invoices[i].Total
		}
	}
	sum.Revenue = round2(sum.Revenue)
	sum.OutstandingDue = round2(sum.OutstandingDue)
	return sum, nil
}
