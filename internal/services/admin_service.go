// internal/services/admin_service.go
package services

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/javajoker/storefront/internal/apperror"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
)

const lowStockThreshold = 5

type AdminService struct {
	db *gorm.DB
}

type AdminDashboardStats struct {
	TotalRevenue          decimal.Decimal `json:"total_revenue"`
	MonthlyRevenue        decimal.Decimal `json:"monthly_revenue"`
	TotalOrders           int64           `json:"total_orders"`
	PendingOrders         int64           `json:"pending_orders"`
	TotalCustomers        int64           `json:"total_customers"`
	NewCustomersThisMonth int64           `json:"new_customers_this_month"`
	TotalProducts         int64           `json:"total_products"`
	LowStockProducts      int64           `json:"low_stock_products"`
	RevenueGrowth         float64         `json:"revenue_growth"`
}

type AdminCustomerFilter struct {
	utils.PaginationParams
	Search string `json:"search,omitempty"`
	Role *models.Role `json:"role,omitempty"`
}

func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{db: db}
}

// Dashboard Statistics
func (s *AdminService) GetDashboardStats(ctx context.Context) (*AdminDashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &AdminDashboardStats{}
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonthStart := monthStart.AddDate(0, -1, 0)

	var totalRevenue, monthlyRevenue, lastMonthRevenue float64
	steps := []*gorm.DB{
		// Revenue statistics
		db.Model(&models.Order{}).Select("COALESCE(SUM(total_price), 0)").Scan(&totalRevenue),
		db.Model(&models.Order{}).Where("created_at >= ?", monthStart).
			Select("COALESCE(SUM(total_price), 0)").Scan(&monthlyRevenue),
		db.Model(&models.Order{}).Where("created_at >= ? AND created_at < ?", lastMonthStart, monthStart).
			Select("COALESCE(SUM(total_price), 0)").Scan(&lastMonthRevenue),

		// Order statistics
		db.Model(&models.Order{}).Count(&stats.TotalOrders),
		db.Model(&models.Order{}).Where("status = ?", models.OrderStatusPending).Count(&stats.PendingOrders),

		// Customer statistics
		db.Model(&models.User{}).Count(&stats.TotalCustomers),
		db.Model(&models.User{}).Where("created_at >= ?", monthStart).Count(&stats.NewCustomersThisMonth),

		// Product statistics
		db.Model(&models.Product{}).Count(&stats.TotalProducts),
		db.Model(&models.Product{}).Where("stock <= ?", lowStockThreshold).Count(&stats.LowStockProducts),
	}
	for _, step := range steps {
		if step.Error != nil {
			return nil, apperror.Internal("failed to compute dashboard stats", step.Error)
		}
	}

	stats.TotalRevenue = decimal.NewFromFloat(totalRevenue).Round(2)
	stats.MonthlyRevenue = decimal.NewFromFloat(monthlyRevenue).Round(2)
	if lastMonthRevenue > 0 {
		stats.RevenueGrowth = (monthlyRevenue - lastMonthRevenue) / lastMonthRevenue * 100
	}

	return stats, nil
}

func (s *AdminService) GetCustomers(ctx context.Context, filter AdminCustomerFilter) ([]models.User, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})

	// Apply filters
	if filter.Role != nil {
		query = query.Where("role = ?", *filter.Role)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", pattern, pattern)
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperror.Internal("failed to count customers", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"created_at", "updated_at", "name", "email"}
	query = utils.ApplySort(query, filter.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, filter.PaginationParams)

	var users []models.User
	if err := query.Preload("Addresses").Find(&users).Error; err != nil {
		return nil, 0, apperror.Internal("failed to fetch customers", err)
	}

	return users, total, nil
}
