package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) Overview(ctx context.Context, year int) (Overview, error) {
	return s.store.Overview(ctx, year)
}

func (s *Service) ByType(ctx context.Context, year int) ([]TypeUsage, error) {
	return s.store.ByType(ctx, year)
}

func (s *Service) ByDepartment(ctx context.Context, year int) ([]DepartmentUsage, error) {
	return s.store.ByDepartment(ctx, year)
}

func (s *Service) Monthly(ctx context.Context, year int) ([]MonthlyUsage, error) {
	return s.store.Monthly(ctx, year)
}

func (s *Service) TopTakers(ctx context.Context, year, limit int) ([]TopTaker, error) {
	return s.store.TopTakers(ctx, year, limit)
}

// ExportCSV renders every request of the year as a CSV document.
func (s *Service) ExportCSV(ctx context.Context, year int) ([]byte, error) {
	rows, err := s.store.ExportRows(ctx, year)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Employee", "Leave Type", "Start Date", "End Date", "Days", "Status", "Reason"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Employee, r.Type, r.StartDate, r.EndDate, r.TotalDays, r.Status, r.Reason}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportPDF renders the annual summary as a one-page PDF.
func (s *Service) ExportPDF(ctx context.Context, year int) ([]byte, error) {
	overview, err := s.store.Overview(ctx, year)
	if err != nil {
		return nil, err
	}
	byType, err := s.store.ByType(ctx, year)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Leave Summary %d", year))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total requests: %d", overview.TotalRequests))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Approved: %d  Pending: %d  Rejected: %d  Cancelled: %d",
		overview.Statuses.Approved, overview.Statuses.Pending,
		overview.Statuses.Rejected, overview.Statuses.Cancelled))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Days taken: %s", overview.DaysTaken))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Active employees: %d", overview.ActiveEmployees))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.Cell(0, 8, "By leave type")
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	for _, usage := range byType {
		pdf.Cell(0, 7, fmt.Sprintf("%s (%s): %d requests, %s days", usage.Name, usage.Code, usage.Requests, usage.DaysTaken))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
