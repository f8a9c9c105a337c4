package models

// ChartBucket is one slice of a grouped count, ready for chart rendering.
type ChartBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DashboardSummary carries the grouped asset counts shown on the landing
// page. Assets without the grouped attribute land in an "Unspecified"
// bucket.
type DashboardSummary struct {
	TotalAssets  int           `json:"total_assets"`
	ByStatus     []ChartBucket `json:"by_status"`
	ByType       []ChartBucket `json:"by_type"`
	ByLocation   []ChartBucket `json:"by_location"`
	ByDepartment []ChartBucket `json:"by_department"`
	ByVendor     []ChartBucket `json:"by_vendor"`
}
