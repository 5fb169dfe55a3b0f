package services

import (
	"testing"
	"trip-counter-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One pooled connection: every handle sees the same in-memory database
	// and concurrent transactions serialize instead of erroring
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func seedCounter(t *testing.T, db *gorm.DB, area, slot, date string, value, max int) *models.RegionCounter {
	t.Helper()
	region := models.Region{Area: area, MaxCount: max}
	if err := db.Where("area = ?", area).First(&region).Error; err != nil {
		require.NoError(t, db.Create(&region).Error)
	}
	counter := models.RegionCounter{
		RegionID:        region.ID,
		CounterTime:     slot,
		Date:            date,
		CounterValue:    value,
		MaxCounterValue: max,
		State:           true,
	}
	require.NoError(t, db.Create(&counter).Error)
	return &counter
}

func TestApplyDeltaBounds(t *testing.T) {
	db := setupTestDB(t)
	store := NewCounterStore(db, CounterPolicy{MinValue: 0})
	counter := seedCounter(t, db, "North", "08:00", "2026-09-01", 2, 3)

	// Increment within bounds
	oldVal, newVal, err := store.ApplyDelta(counter.ID, OpIncrement)
	require.NoError(t, err)
	assert.Equal(t, 2, oldVal)
	assert.Equal(t, 3, newVal)

	// Saturated increment is rejected and leaves the value unchanged
	_, _, err = store.ApplyDelta(counter.ID, OpIncrement)
	assert.ErrorIs(t, err, ErrBoundExceeded)

	var row models.RegionCounter
	require.NoError(t, db.First(&row, counter.ID).Error)
	assert.Equal(t, 3, row.CounterValue)

	// Decrement down to the floor
	for want := 2; want >= 0; want-- {
		_, newVal, err = store.ApplyDelta(counter.ID, OpDecrement)
		require.NoError(t, err)
		assert.Equal(t, want, newVal)
	}

	// Decrement at the floor is rejected
	_, _, err = store.ApplyDelta(counter.ID, OpDecrement)
	assert.ErrorIs(t, err, ErrBoundExceeded)

	require.NoError(t, db.First(&row, counter.ID).Error)
	assert.Equal(t, 0, row.CounterValue)
}

func TestApplyDeltaCustomFloor(t *testing.T) {
	db := setupTestDB(t)
	store := NewCounterStore(db, CounterPolicy{MinValue: 1})
	counter := seedCounter(t, db, "North", "08:00", "2026-09-01", 2, 3)

	_, newVal, err := store.ApplyDelta(counter.ID, OpDecrement)
	require.NoError(t, err)
	assert.Equal(t, 1, newVal)

	_, _, err = store.ApplyDelta(counter.ID, OpDecrement)
	assert.ErrorIs(t, err, ErrBoundExceeded)
}

func TestApplyDeltaClampPolicy(t *testing.T) {
	db := setupTestDB(t)
	store := NewCounterStore(db, CounterPolicy{MinValue: 0, ClampAtBound: true})
	counter := seedCounter(t, db, "North", "08:00", "2026-09-01", 3, 3)

	// Saturated increment is a no-op, not an error
	oldVal, newVal, err := store.ApplyDelta(counter.ID, OpIncrement)
	require.NoError(t, err)
	assert.Equal(t, 3, oldVal)
	assert.Equal(t, 3, newVal)
}

func TestApplyDeltaUnknownCounter(t *testing.T) {
	db := setupTestDB(t)
	store := NewCounterStore(db, CounterPolicy{})

	_, _, err := store.ApplyDelta(999, OpIncrement)
	assert.ErrorIs(t, err, ErrCounterNotFound)
}

func TestApplyDeltaInvalidOperation(t *testing.T) {
	db := setupTestDB(t)
	store := NewCounterStore(db, CounterPolicy{})
	counter := seedCounter(t, db, "North", "08:00", "2026-09-01", 1, 3)

	_, _, err := store.ApplyDelta(counter.ID, Operation("reset"))
	assert.Error(t, err)
}

func TestSnapshotsByDate(t *testing.T) {
	db := setupTestDB(t)
	store := NewCounterStore(db, CounterPolicy{})
	seedCounter(t, db, "North", "10:00", "2026-09-01", 3, 3)
	seedCounter(t, db, "North", "08:00", "2026-09-01", 2, 3)
	seedCounter(t, db, "North", "09:00", "2026-09-02", 1, 3)

	snapshots, err := store.SnapshotsByDate("2026-09-01")
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	// Ordered by time slot, date rendered as a display label
	assert.Equal(t, "08:00", snapshots[0].CounterTime)
	assert.Equal(t, "10:00", snapshots[1].CounterTime)
	assert.Equal(t, "North", snapshots[0].Area)
	assert.Equal(t, "2026/09/01", snapshots[0].Date)
	assert.Equal(t, 2, snapshots[0].CounterValue)
	assert.True(t, snapshots[0].State)
}

func TestUpdateCounterBoundDelta(t *testing.T) {
	db := setupTestDB(t)
	store := NewCounterStore(db, CounterPolicy{})
	counter := seedCounter(t, db, "North", "08:00", "2026-09-01", 2, 3)

	// Raising the bound frees the same number of trips
	newMax := 5
	require.NoError(t, store.UpdateCounter(counter.ID, CounterUpdate{MaxCounterValue: &newMax}))

	var row models.RegionCounter
	require.NoError(t, db.First(&row, counter.ID).Error)
	assert.Equal(t, 5, row.MaxCounterValue)
	assert.Equal(t, 4, row.CounterValue)

	// Lowering the bound clamps the value down to it
	newMax = 2
	require.NoError(t, store.UpdateCounter(counter.ID, CounterUpdate{MaxCounterValue: &newMax}))
	require.NoError(t, db.First(&row, counter.ID).Error)
	assert.Equal(t, 2, row.MaxCounterValue)
	assert.Equal(t, 2, row.CounterValue)
}

func TestProvisionRangeIdempotent(t *testing.T) {
	db := setupTestDB(t)
	store := NewCounterStore(db, CounterPolicy{})

	require.NoError(t, db.Create(&models.Region{Area: "North", MaxCount: 3}).Error)
	require.NoError(t, db.Create(&models.Region{Area: "South", MaxCount: 4}).Error)
	require.NoError(t, db.Create(&models.TimePeriod{StartTime: "08:00", EndTime: "08:30"}).Error)
	require.NoError(t, db.Create(&models.TimePeriod{StartTime: "09:00", EndTime: "09:30"}).Error)

	dates := []string{"2026-09-01", "2026-09-02"}

	created, err := store.ProvisionRange(dates)
	require.NoError(t, err)
	assert.Equal(t, 8, created) // 2 regions x 2 periods x 2 dates

	// Second pass creates nothing
	created, err = store.ProvisionRange(dates)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	// Rows are seeded full at the region's bound
	var south models.Region
	require.NoError(t, db.Where("area = ?", "South").First(&south).Error)
	var row models.RegionCounter
	require.NoError(t, db.Where("region_id = ? AND date = ? AND counter_time = ?",
		south.ID, "2026-09-01", "08:00").First(&row).Error)
	assert.Equal(t, 4, row.CounterValue)
	assert.Equal(t, 4, row.MaxCounterValue)
}

func TestPruneBefore(t *testing.T) {
	db := setupTestDB(t)
	store := NewCounterStore(db, CounterPolicy{})
	seedCounter(t, db, "North", "08:00", "2026-08-20", 3, 3)
	seedCounter(t, db, "North", "09:00", "2026-08-25", 3, 3)
	seedCounter(t, db, "North", "10:00", "2026-09-01", 3, 3)

	pruned, err := store.PruneBefore("2026-08-25")
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)

	var remaining int64
	db.Model(&models.RegionCounter{}).Count(&remaining)
	assert.Equal(t, int64(2), remaining)
}

func TestSetStateByDate(t *testing.T) {
	db := setupTestDB(t)
	store := NewCounterStore(db, CounterPolicy{})
	seedCounter(t, db, "North", "08:00", "2026-09-01", 3, 3)
	seedCounter(t, db, "South", "08:00", "2026-09-01", 3, 3)
	other := seedCounter(t, db, "North", "08:00", "2026-09-02", 3, 3)

	changed, err := store.SetStateByDate("2026-09-01", 0, false)
	require.NoError(t, err)
	assert.True(t, changed)

	var disabled int64
	db.Model(&models.RegionCounter{}).Where("state = ?", false).Count(&disabled)
	assert.Equal(t, int64(2), disabled)

	var row models.RegionCounter
	require.NoError(t, db.First(&row, other.ID).Error)
	assert.True(t, row.State)

	changed, err = store.SetStateByDate("2030-01-01", 0, false)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRecordsLifecycle(t *testing.T) {
	db := setupTestDB(t)
	store := NewCounterStore(db, CounterPolicy{})

	id, err := store.AppendRecord("2026-09-01", "08:00", "alice changed North 08:00 from 3 to 2")
	require.NoError(t, err)
	require.NotZero(t, id)
	_, err = store.AppendRecord("2026-09-02", "09:00", "bob changed South 09:00 from 1 to 2")
	require.NoError(t, err)

	records, err := store.RecordsByConditions(RecordFilter{StartDate: "2026-09-01", EndDate: "2026-09-01"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Content, "alice")

	records, err = store.RecordsByConditions(RecordFilter{TimePeriod: "09:00"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	deleted, err := store.DeleteRecord(id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteRecord(id)
	require.NoError(t, err)
	assert.False(t, deleted)
}
