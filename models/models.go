package models

import (
	"time"

	"gorm.io/gorm"
)

// Region is a named area with a default trip bound applied to newly
// provisioned counters.
type Region struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Area      string    `gorm:"uniqueIndex;not null" json:"area"`
	MaxCount  int       `gorm:"not null" json:"max_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Region
func (Region) TableName() string {
	return "regions"
}

// TimePeriod is a recurring daily slot shared by every region, e.g.
// 08:00-08:30. Times are stored as HH:MM strings.
type TimePeriod struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StartTime string    `gorm:"not null" json:"start_time"`
	EndTime   string    `gorm:"not null" json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for TimePeriod
func (TimePeriod) TableName() string {
	return "time_periods"
}

// RegionCounter is one bounded counter for a (region, time slot, date)
// combination. CounterValue always stays within [min, MaxCounterValue];
// the bounds are enforced by the store, not by callers.
type RegionCounter struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	RegionID        uint      `gorm:"index;not null" json:"region_id"`
	CounterTime     string    `gorm:"not null" json:"counter_time"` // HH:MM
	Date            string    `gorm:"index;not null" json:"date"`   // YYYY-MM-DD
	CounterValue    int       `gorm:"not null" json:"counter_value"`
	MaxCounterValue int       `gorm:"not null" json:"max_counter_value"`
	State           bool      `gorm:"default:true" json:"state"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for RegionCounter
func (RegionCounter) TableName() string {
	return "region_counters"
}

// BeforeCreate rejects duplicate rows for the same region, slot and date
func (rc *RegionCounter) BeforeCreate(tx *gorm.DB) error {
	var count int64
	tx.Model(&RegionCounter{}).
		Where("region_id = ? AND counter_time = ? AND date = ?", rc.RegionID, rc.CounterTime, rc.Date).
		Count(&count)
	if count > 0 {
		return gorm.ErrDuplicatedKey
	}
	return nil
}

// OperateRecord is an append-only audit line describing one counter
// mutation. Never updated; deletable by id.
type OperateRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RecordDate string    `gorm:"index;not null" json:"record_date"` // YYYY-MM-DD
	TimePeriod string    `gorm:"not null" json:"time_period"`       // HH:MM slot label
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for OperateRecord
func (OperateRecord) TableName() string {
	return "operate_records"
}

// User represents a dashboard account
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"` // salt:hash
	Role      string    `gorm:"default:user" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RefreshToken stores refresh tokens for users
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// AutoMigrate runs database migrations
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Region{},
		&TimePeriod{},
		&RegionCounter{},
		&OperateRecord{},
		&User{},
		&RefreshToken{},
	)
}
