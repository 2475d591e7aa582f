package gorm

import (
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"scada-sync/internal/core/telemetry"
)

// StatusChange is one row of device status history: written whenever a
// device's aggregate status differs from the last snapshot.
type StatusChange struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	DeviceID        int64     `gorm:"index" json:"device_id"`
	DeviceName      string    `json:"device_name"`
	Status          string    `json:"status" example:"warning"`
	OnlineVariables int       `json:"online_variables"`
	TotalVariables  int       `json:"total_variables"`
	ChangedAt       time.Time `json:"changed_at"`
}

// Recorder persists device status transitions. It keeps the last seen
// status per device in memory so steady-state snapshots cost nothing.
type Recorder struct {
	db   *gorm.DB
	lg   zerolog.Logger
	last map[int64]telemetry.VariableStatus
}

func NewRecorder(db *gorm.DB, lg zerolog.Logger) *Recorder {
	return &Recorder{
		db:   db,
		lg:   lg.With().Str("adapter", "history").Logger(),
		last: make(map[int64]telemetry.VariableStatus),
	}
}

// SnapshotUpdated implements telemetry.Sink. Runs on the stream's read
// goroutine, which is the only caller, so last needs no lock.
func (r *Recorder) SnapshotUpdated(_ []telemetry.VariableRecord, devices []telemetry.DeviceStatus) {
	for _, d := range devices {
		if r.last[d.DeviceID] == d.Status {
			continue
		}
		r.last[d.DeviceID] = d.Status

		row := StatusChange{
			DeviceID:        d.DeviceID,
			DeviceName:      d.DeviceName,
			Status:          string(d.Status),
			OnlineVariables: d.OnlineVariables,
			TotalVariables:  d.TotalVariables,
			ChangedAt:       d.LastSeen,
		}
		if err := r.db.Create(&row).Error; err != nil {
			r.lg.Error().Err(err).Int64("device_id", d.DeviceID).Msg("record status change")
		}
	}
}
