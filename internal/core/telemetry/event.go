package telemetry

import "time"

// Sample is one variable reading inside a telemetry event. Value is
// whatever JSON the gateway bridged through: number, numeric string,
// bool, enumerated string, or null.
type Sample struct {
	VariableID int64          `json:"variable_id"`
	Code       string         `json:"var_code"`
	Value      any            `json:"value"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// RawEvent is one inbound telemetry frame. Ephemeral; consumed and
// discarded after enrichment.
type RawEvent struct {
	Variables []Sample  `json:"variables"`
	Timestamp time.Time `json:"timestamp"`
}

// VariableStatus classifies one variable's reading.
type VariableStatus string

const (
	StatusOnline  VariableStatus = "online"
	StatusOffline VariableStatus = "offline"
	StatusWarning VariableStatus = "warning"
	StatusError   VariableStatus = "error"
)

// VariableRecord is a telemetry value joined with its catalog metadata
// and a derived status. A new event replaces the whole record set.
type VariableRecord struct {
	VariableID int64          `json:"variable_id"`
	Code       string         `json:"code"`
	DeviceID   int64          `json:"device_id"`
	DeviceName string         `json:"device_name"`
	Name       string         `json:"name"`
	Value      any            `json:"value"` // nil when no data arrived
	Unit       string         `json:"unit"`
	Timestamp  time.Time      `json:"timestamp"`
	Status     VariableStatus `json:"status"`
}

// DeviceStatus is the aggregate classification of one device, derived
// from its constituent variable records.
type DeviceStatus struct {
	DeviceID         int64          `json:"device_id"`
	DeviceName       string         `json:"device_name"`
	Status           VariableStatus `json:"status"`
	OnlineVariables  int            `json:"online_variables"`
	TotalVariables   int            `json:"total_variables"`
	OfflineVariables []string       `json:"offline_variables"`
	LastSeen         time.Time      `json:"last_seen"`
}
