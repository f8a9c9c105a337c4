package internal

import (
	"context"
	"net/http"

	"asset-inventory-api/internal/models"
)

// dashboardQueries groups assets by each chartable attribute. Assets missing
// the attribute fall into the "Unspecified" bucket.
var dashboardQueries = map[string]string{
	"by_status": `SELECT COALESCE(s.status_name, 'Unspecified'), COUNT(a.asset_id)
		FROM assets a LEFT JOIN asset_statuses s ON s.status_id = a.status_id
		GROUP BY 1 ORDER BY 2 DESC, 1 ASC`,
	"by_type": `SELECT COALESCE(t.name, 'Unspecified'), COUNT(a.asset_id)
		FROM assets a LEFT JOIN asset_types t ON t.asset_type_id = a.asset_type_id
		GROUP BY 1 ORDER BY 2 DESC, 1 ASC`,
	"by_location": `SELECT COALESCE(l.name, 'Unspecified'), COUNT(a.asset_id)
		FROM assets a LEFT JOIN locations l ON l.location_id = a.location_id
		GROUP BY 1 ORDER BY 2 DESC, 1 ASC`,
	"by_vendor": `SELECT COALESCE(v.name, 'Unspecified'), COUNT(a.asset_id)
		FROM assets a LEFT JOIN vendors v ON v.vendor_id = a.vendor_id
		GROUP BY 1 ORDER BY 2 DESC, 1 ASC`,
	"by_department": `SELECT COALESCE(d.name, 'Unspecified'), COUNT(a.asset_id)
		FROM assets a
		LEFT JOIN employees e ON e.employee_id = a.assigned_to
		LEFT JOIN departments d ON d.department_id = e.department_id
		GROUP BY 1 ORDER BY 2 DESC, 1 ASC`,
}

func (s *Server) chartBuckets(ctx context.Context, query string) ([]models.ChartBucket, error) {
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	buckets := []models.ChartBucket{}
	for rows.Next() {
		var b models.ChartBucket
		if err := rows.Scan(&b.Label, &b.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// getDashboardSummary handles GET /dashboard/summary
func (s *Server) getDashboardSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary := models.DashboardSummary{}

	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&summary.TotalAssets); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	var err error
	if summary.ByStatus, err = s.chartBuckets(ctx, dashboardQueries["by_status"]); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if summary.ByType, err = s.chartBuckets(ctx, dashboardQueries["by_type"]); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if summary.ByLocation, err = s.chartBuckets(ctx, dashboardQueries["by_location"]); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if summary.ByDepartment, err = s.chartBuckets(ctx, dashboardQueries["by_department"]); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if summary.ByVendor, err = s.chartBuckets(ctx, dashboardQueries["by_vendor"]); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
