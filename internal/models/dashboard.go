package models

import "time"

// DashboardStats summarises an organization's records.
type DashboardStats struct {
	TotalDocuments     int                     `json:"totalDocuments"`
	RecentUploadsCount int                     `json:"recentUploadsCount"`
	RecentFiles        []RecentFile            `json:"recentFiles"`
	TotalUsers         int                     `json:"totalUsers"`
	TopTags            []TagUsage              `json:"topTags"`
	Lifecycle          map[LifecycleStatus]int `json:"lifecycle"`
	GeneratedAt        time.Time               `json:"generatedAt"`
}

// RecentFile is a compact document row for the dashboard.
type RecentFile struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	FileType  *string   `db:"file_type" json:"fileType,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// TagUsage counts documents carrying a tag.
type TagUsage struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Count int    `db:"count" json:"count"`
}
