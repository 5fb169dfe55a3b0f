package services

import (
	"errors"
	"fmt"
	"trip-counter-service/models"
	"trip-counter-service/utils"

	"gorm.io/gorm"
)

// Sentinel errors separate business rejections from real store failures so
// callers can map them to distinct client statuses.
var (
	ErrCounterNotFound = errors.New("counter not found")
	ErrRegionNotFound  = errors.New("region not found")
	ErrBoundExceeded   = errors.New("counter value out of bounds")
)

// Operation is a bounded counter mutation kind
type Operation string

const (
	OpIncrement Operation = "increment"
	OpDecrement Operation = "decrement"
)

// Valid reports whether op is a known operation
func (op Operation) Valid() bool {
	return op == OpIncrement || op == OpDecrement
}

// Snapshot is the display-ready projection of one counter joined with its
// region name. Field names are the wire contract the browser clients render.
type Snapshot struct {
	ID              uint   `json:"id"`
	Area            string `json:"area"`
	CounterTime     string `json:"counter_time"`
	Date            string `json:"date"` // YYYY/MM/DD label
	CounterValue    int    `json:"counter_value"`
	MaxCounterValue int    `json:"max_counter_value"`
	State           bool   `json:"state"`
}

// CounterPolicy controls the edges of the bounded mutation: the floor a
// decrement may reach, and whether an out-of-range operation is rejected
// or silently left at the boundary.
type CounterPolicy struct {
	MinValue     int
	ClampAtBound bool
}

// CounterStore owns all durable counter, region, time period and audit
// record rows. The bounded mutation is a single guarded UPDATE, so the
// database serializes concurrent actions on the same counter.
type CounterStore struct {
	db     *gorm.DB
	policy CounterPolicy
}

// NewCounterStore returns a store over db with the given mutation policy
func NewCounterStore(db *gorm.DB, policy CounterPolicy) *CounterStore {
	return &CounterStore{db: db, policy: policy}
}

// SnapshotsByDate returns the display projection of every counter on the
// given date, joined with its region name and ordered by time slot.
func (s *CounterStore) SnapshotsByDate(date string) ([]Snapshot, error) {
	type row struct {
		ID              uint
		Area            string
		CounterTime     string
		Date            string
		CounterValue    int
		MaxCounterValue int
		State           bool
	}

	var rows []row
	err := s.db.Table("region_counters").
		Select("region_counters.id, regions.area, region_counters.counter_time, region_counters.date, region_counters.counter_value, region_counters.max_counter_value, region_counters.state").
		Joins("JOIN regions ON regions.id = region_counters.region_id").
		Where("region_counters.date = ?", date).
		Order("region_counters.counter_time").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query counters for %s: %w", date, err)
	}

	snapshots := make([]Snapshot, 0, len(rows))
	for _, r := range rows {
		snapshots = append(snapshots, Snapshot{
			ID:              r.ID,
			Area:            r.Area,
			CounterTime:     r.CounterTime,
			Date:            utils.DateLabel(r.Date),
			CounterValue:    r.CounterValue,
			MaxCounterValue: r.MaxCounterValue,
			State:           r.State,
		})
	}
	return snapshots, nil
}

// CounterByID returns the full counter row, or ErrCounterNotFound
func (s *CounterStore) CounterByID(id uint) (*models.RegionCounter, error) {
	var counter models.RegionCounter
	if err := s.db.First(&counter, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCounterNotFound
		}
		return nil, err
	}
	return &counter, nil
}

// ApplyDelta applies a bounded increment or decrement to one counter and
// returns the value before and after. The mutation is a single UPDATE
// guarded by the bound predicate; when zero rows change, the counter is
// either missing (ErrCounterNotFound) or saturated (ErrBoundExceeded, or a
// no-op under a clamping policy).
func (s *CounterStore) ApplyDelta(id uint, op Operation) (oldValue, newValue int, err error) {
	if !op.Valid() {
		return 0, 0, fmt.Errorf("unknown operation %q", op)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var result *gorm.DB
		switch op {
		case OpIncrement:
			result = tx.Model(&models.RegionCounter{}).
				Where("id = ? AND counter_value < max_counter_value", id).
				Update("counter_value", gorm.Expr("counter_value + 1"))
		case OpDecrement:
			result = tx.Model(&models.RegionCounter{}).
				Where("id = ? AND counter_value > ?", id, s.policy.MinValue).
				Update("counter_value", gorm.Expr("counter_value - 1"))
		}
		if result.Error != nil {
			return result.Error
		}

		var counter models.RegionCounter
		if err := tx.First(&counter, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCounterNotFound
			}
			return err
		}

		if result.RowsAffected == 0 {
			// Row exists but the guard rejected it: the counter is at an edge
			if !s.policy.ClampAtBound {
				return ErrBoundExceeded
			}
			oldValue = counter.CounterValue
			newValue = counter.CounterValue
			return nil
		}

		newValue = counter.CounterValue
		if op == OpIncrement {
			oldValue = newValue - 1
		} else {
			oldValue = newValue + 1
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return oldValue, newValue, nil
}

// AppendRecord appends one audit record and returns its id
func (s *CounterStore) AppendRecord(recordDate, timePeriod, content string) (uint, error) {
	record := models.OperateRecord{
		RecordDate: recordDate,
		TimePeriod: timePeriod,
		Content:    content,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return 0, fmt.Errorf("append audit record: %w", err)
	}
	return record.ID, nil
}

// RecordFilter narrows an audit record query; zero fields are ignored
type RecordFilter struct {
	StartDate  string
	EndDate    string
	TimePeriod string
}

// RecordsByConditions returns audit records matching the filter
func (s *CounterStore) RecordsByConditions(filter RecordFilter) ([]models.OperateRecord, error) {
	query := s.db.Model(&models.OperateRecord{})
	if filter.StartDate != "" && filter.EndDate != "" {
		query = query.Where("record_date BETWEEN ? AND ?", filter.StartDate, filter.EndDate)
	}
	if filter.TimePeriod != "" {
		query = query.Where("time_period = ?", filter.TimePeriod)
	}

	var records []models.OperateRecord
	if err := query.Order("record_date DESC, created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteRecord deletes one audit record; returns false when no row matched
func (s *CounterStore) DeleteRecord(id uint) (bool, error) {
	result := s.db.Delete(&models.OperateRecord{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CounterFilter narrows an administrative counter search; zero fields are
// ignored. State is a pointer so "disabled only" is expressible.
type CounterFilter struct {
	RegionID       uint
	Date           string
	CounterTime    string
	State          *bool
	MaxValueAtMost int
}

// SearchCounters returns counter rows matching the filter
func (s *CounterStore) SearchCounters(filter CounterFilter) ([]models.RegionCounter, error) {
	query := s.db.Model(&models.RegionCounter{})
	if filter.RegionID != 0 {
		query = query.Where("region_id = ?", filter.RegionID)
	}
	if filter.Date != "" {
		query = query.Where("date = ?", filter.Date)
	}
	if filter.CounterTime != "" {
		query = query.Where("counter_time = ?", filter.CounterTime)
	}
	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}
	if filter.MaxValueAtMost != 0 {
		query = query.Where("max_counter_value <= ?", filter.MaxValueAtMost)
	}

	var counters []models.RegionCounter
	if err := query.Order("date, counter_time").Find(&counters).Error; err != nil {
		return nil, err
	}
	return counters, nil
}

// CounterUpdate carries the editable fields of a counter row. Pointers
// distinguish "leave unchanged" from explicit zero values.
type CounterUpdate struct {
	CounterTime     *string
	Date            *string
	CounterValue    *int
	MaxCounterValue *int
	State           *bool
}

// UpdateCounter edits one counter row. Changing the bound keeps the value
// consistent: raising the bound raises the value by the same amount (the
// freed trips become available again), lowering it clamps the value down
// to the new bound.
func (s *CounterStore) UpdateCounter(id uint, update CounterUpdate) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var counter models.RegionCounter
		if err := tx.First(&counter, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCounterNotFound
			}
			return err
		}

		fields := map[string]interface{}{}
		if update.CounterTime != nil {
			fields["counter_time"] = *update.CounterTime
		}
		if update.Date != nil {
			fields["date"] = *update.Date
		}
		if update.CounterValue != nil {
			fields["counter_value"] = *update.CounterValue
		}
		if update.State != nil {
			fields["state"] = *update.State
		}
		if update.MaxCounterValue != nil {
			newMax := *update.MaxCounterValue
			fields["max_counter_value"] = newMax

			value := counter.CounterValue
			if v, ok := fields["counter_value"].(int); ok {
				value = v
			}
			delta := newMax - counter.MaxCounterValue
			if delta > 0 {
				fields["counter_value"] = value + delta
			} else if value > newMax {
				fields["counter_value"] = newMax
			}
		}
		if len(fields) == 0 {
			return nil
		}

		return tx.Model(&models.RegionCounter{}).Where("id = ?", id).Updates(fields).Error
	})
}

// DeleteCounter deletes one counter row; returns false when no row matched
func (s *CounterStore) DeleteCounter(id uint) (bool, error) {
	result := s.db.Delete(&models.RegionCounter{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateCounter inserts one counter row seeded at its bound
func (s *CounterStore) CreateCounter(regionID uint, counterTime, date string, maxValue int) (*models.RegionCounter, error) {
	var region models.Region
	if err := s.db.First(&region, regionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegionNotFound
		}
		return nil, err
	}

	counter := models.RegionCounter{
		RegionID:        regionID,
		CounterTime:     counterTime,
		Date:            date,
		CounterValue:    maxValue,
		MaxCounterValue: maxValue,
		State:           true,
	}
	if err := s.db.Create(&counter).Error; err != nil {
		return nil, err
	}
	return &counter, nil
}

// SetStateByDate toggles the enabled flag of every counter on a date,
// optionally narrowed to one region. Returns false when no row changed.
func (s *CounterStore) SetStateByDate(date string, regionID uint, state bool) (bool, error) {
	query := s.db.Model(&models.RegionCounter{}).Where("date = ?", date)
	if regionID != 0 {
		query = query.Where("region_id = ?", regionID)
	}
	result := query.Update("state", state)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ProvisionRange creates the missing counter rows for every region and
// time period across the given dates, seeded at the region's bound.
// Existing rows are left alone. Returns the number of rows created.
func (s *CounterStore) ProvisionRange(dates []string) (int, error) {
	var regions []models.Region
	if err := s.db.Find(&regions).Error; err != nil {
		return 0, err
	}
	var periods []models.TimePeriod
	if err := s.db.Find(&periods).Error; err != nil {
		return 0, err
	}

	created := 0
	for _, region := range regions {
		for _, period := range periods {
			for _, date := range dates {
				var count int64
				err := s.db.Model(&models.RegionCounter{}).
					Where("region_id = ? AND counter_time = ? AND date = ?", region.ID, period.StartTime, date).
					Count(&count).Error
				if err != nil {
					return created, err
				}
				if count > 0 {
					continue
				}

				counter := models.RegionCounter{
					RegionID:        region.ID,
					CounterTime:     period.StartTime,
					Date:            date,
					CounterValue:    region.MaxCount,
					MaxCounterValue: region.MaxCount,
					State:           true,
				}
				if err := s.db.Create(&counter).Error; err != nil {
					if errors.Is(err, gorm.ErrDuplicatedKey) {
						continue
					}
					return created, err
				}
				created++
			}
		}
	}
	return created, nil
}

// PruneBefore deletes counter rows dated strictly before cutoffDate and
// returns how many were removed
func (s *CounterStore) PruneBefore(cutoffDate string) (int64, error) {
	result := s.db.Where("date < ?", cutoffDate).Delete(&models.RegionCounter{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
