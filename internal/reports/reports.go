// Package reports builds the financial follow-up views: per-project funding
// status and the yearly breakdown of receipts, allocations and expenses.
// All figures are aggregated client-side from the backend's collections.
package reports

import (
	"context"
	"fmt"
	"sort"

	"github.com/gefiproj/gefiproj/internal/api"
	"github.com/gefiproj/gefiproj/internal/domain"
)

// ProjectStatus summarizes one project's financial position.
type ProjectStatus struct {
	Project        domain.Project
	TotalFunding   float64
	TotalReceipts  float64
	TotalAllocated float64
	// Balance is what remains to be received: fundings minus receipts.
	Balance float64
}

// YearLine is one year of the breakdown report.
type YearLine struct {
	Year        int
	Receipts    float64
	Allocations float64
	Expenses    float64
}

// Service computes reports over the API client.
type Service struct {
	client *api.Client
}

// NewService builds a report service over an authenticated client.
func NewService(client *api.Client) *Service {
	return &Service{client: client}
}

// FundingStatus returns every project's totals, sorted by project code.
func (s *Service) FundingStatus(ctx context.Context) ([]ProjectStatus, error) {
	projects, err := s.client.Projects().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	fundings, err := s.client.Fundings().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load fundings: %w", err)
	}
	receipts, err := s.client.Receipts().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load receipts: %w", err)
	}
	allocations, err := s.client.Allocations().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}

	fundingProject := make(map[int64]int64, len(fundings))
	byProject := make(map[int64]*ProjectStatus, len(projects))
	for _, p := range projects {
		byProject[p.ID] = &ProjectStatus{Project: p}
	}
	for _, f := range fundings {
		fundingProject[f.ID] = f.ProjectID
		if st, ok := byProject[f.ProjectID]; ok {
			st.TotalFunding += f.Amount
		}
	}
	for _, r := range receipts {
		if st, ok := byProject[fundingProject[r.FundingID]]; ok {
			st.TotalReceipts += r.Amount
		}
	}
	for _, a := range allocations {
		if st, ok := byProject[a.ProjectID]; ok {
			st.TotalAllocated += a.Amount
		}
	}

	out := make([]ProjectStatus, 0, len(byProject))
	for _, st := range byProject {
		st.Balance = st.TotalFunding - st.TotalReceipts
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Project.Code < out[j].Project.Code })
	return out, nil
}

// YearBreakdown returns per-year totals across all projects, sorted by year.
func (s *Service) YearBreakdown(ctx context.Context) ([]YearLine, error) {
	receipts, err := s.client.Receipts().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load receipts: %w", err)
	}
	allocations, err := s.client.Allocations().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load allocations: %w", err)
	}
	expenses, err := s.client.Expenses().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}

	years := make(map[int]*YearLine)
	line := func(year int) *YearLine {
		if l, ok := years[year]; ok {
			return l
		}
		l := &YearLine{Year: year}
		years[year] = l
		return l
	}
	for _, r := range receipts {
		line(r.Year).Receipts += r.Amount
	}
	for _, a := range allocations {
		line(a.Year).Allocations += a.Amount
	}
	for _, e := range expenses {
		line(e.Year).Expenses += e.Amount
	}

	out := make([]YearLine, 0, len(years))
	for _, l := range years {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}
