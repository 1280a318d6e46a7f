package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andy/invoicedesk/internal/domain"
	"github.com/andy/invoicedesk/internal/repository"
)

// SalesSummary gives the headline numbers for the dashboard
type SalesSummary struct {
	InvoiceCount     int
	InvoicedTotal    decimal.Decimal // Everything past draft
	OutstandingTotal decimal.Decimal // Remaining on sent and overdue invoices
	OverdueCount     int
	PaidTotal        decimal.Decimal
}

// CustomerBalance is what one customer still owes
type CustomerBalance struct {
	CustomerID   int64
	CustomerName string
	Outstanding  decimal.Decimal
	InvoiceCount int
}

// ReportService provides aggregations and analytics
type ReportService interface {
	GetSalesSummary(ctx context.Context) (*SalesSummary, error)
	GetOutstandingTotal(ctx context.Context) (decimal.Decimal, error) // Unpaid invoices
	GetCustomerBalances(ctx context.Context) ([]CustomerBalance, error)
	GetRevenueByMonth(ctx context.Context, year int) (map[time.Month]decimal.Decimal, error)

	// GetLowStock lists tracked products at or below the configured threshold
	GetLowStock(ctx context.Context) ([]*domain.Product, error)
}

type reportService struct {
	invoiceRepo       repository.InvoiceRepository
	productRepo       repository.ProductRepository
	lowStockThreshold int
}

// NewReportService creates a new report service
func NewReportService(
	invoiceRepo repository.InvoiceRepository,
	productRepo repository.ProductRepository,
	lowStockThreshold int,
) ReportService {
	return &reportService{
		invoiceRepo:       invoiceRepo,
		productRepo:       productRepo,
		lowStockThreshold: lowStockThreshold,
	}
}

// owing reports whether the invoice has been sent and not yet paid in full
func owing(inv *domain.Invoice) bool {
	return inv.Status == domain.InvoiceStatusSent || inv.Status == domain.InvoiceStatusOverdue
}

func (s *reportService) GetSalesSummary(ctx context.Context) (*SalesSummary, error) {
	invoices, err := s.invoiceRepo.List(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	summary := &SalesSummary{}
	for _, inv := range invoices {
		if inv.Status == domain.InvoiceStatusDraft {
			continue
		}
		summary.InvoiceCount++
		summary.InvoicedTotal = summary.InvoicedTotal.Add(inv.TotalAmount)
		summary.PaidTotal = summary.PaidTotal.Add(inv.PaidAmount)
		if owing(inv) {
			summary.OutstandingTotal = summary.OutstandingTotal.Add(inv.RemainingAmount)
		}
		if inv.Status == domain.InvoiceStatusOverdue {
			summary.OverdueCount++
		}
	}

	return summary, nil
}

func (s *reportService) GetOutstandingTotal(ctx context.Context) (decimal.Decimal, error) {
	sentStatus := domain.InvoiceStatusSent
	overdueStatus := domain.InvoiceStatusOverdue

	total := decimal.Zero
	for _, status := range []*domain.InvoiceStatus{&sentStatus, &overdueStatus} {
		invoices, err := s.invoiceRepo.List(ctx, nil, status)
		if err != nil {
			return decimal.Zero, err
		}
		for _, inv := range invoices {
			total = total.Add(inv.RemainingAmount)
		}
	}

	return total, nil
}

func (s *reportService) GetCustomerBalances(ctx context.Context) ([]CustomerBalance, error) {
	invoices, err := s.invoiceRepo.List(ctx, nil, nil)
	if err != nil {
		return nil, err
	}

	balances := make([]CustomerBalance, 0)
	index := make(map[int64]int)
	for _, inv := range invoices {
		if !owing(inv) {
			continue
		}
		i, ok := index[inv.CustomerID]
		if !ok {
			i = len(balances)
			index[inv.CustomerID] = i
			balances = append(balances, CustomerBalance{CustomerID: inv.CustomerID, CustomerName: inv.CustomerName})
		}
		balances[i].Outstanding = balances[i].Outstanding.Add(inv.RemainingAmount)
		balances[i].InvoiceCount++
	}

	return balances, nil
}

func (s *reportService) GetRevenueByMonth(ctx context.Context, year int) (map[time.Month]decimal.Decimal, error) {
	paidStatus := domain.InvoiceStatusPaid
	invoices, err := s.invoiceRepo.List(ctx, nil, &paidStatus)
	if err != nil {
		return nil, err
	}

	revenue := make(map[time.Month]decimal.Decimal)
	for m := time.January; m <= time.December; m++ {
		revenue[m] = decimal.Zero
	}

	for _, invoice := range invoices {
		// Use paid date if available, otherwise use updated date
		paymentDate := invoice.UpdatedAt
		if invoice.PaidDate != nil {
			paymentDate = *invoice.PaidDate
		}

		if paymentDate.Year() == year {
			month := paymentDate.Month()
			revenue[month] = revenue[month].Add(invoice.TotalAmount)
		}
	}

	return revenue, nil
}

func (s *reportService) GetLowStock(ctx context.Context) ([]*domain.Product, error) {
	return s.productRepo.LowStock(ctx, s.lowStockThreshold)
}
