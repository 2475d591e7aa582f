package telemetry

import (
	"sort"

	"scada-sync/internal/core/catalog"
)

// AggregateDevices reduces a record set to one status per device that
// has at least one variable record. Pure and order-independent: derived
// entirely from the current record set, no accumulation across events,
// so a device that recovers reads online on the very next event.
//
// Precedence, evaluated in order:
//
//	total == 0            → offline
//	online == 0           → offline
//	online < total        → warning
//	online == total       → online
func AggregateDevices(records []VariableRecord, cat *catalog.Catalog) []DeviceStatus {
	byDevice := make(map[int64][]VariableRecord)
	for _, r := range records {
		byDevice[r.DeviceID] = append(byDevice[r.DeviceID], r)
	}

	out := make([]DeviceStatus, 0, len(byDevice))
	for id, recs := range byDevice {
		ds := DeviceStatus{
			DeviceID:       id,
			TotalVariables: len(recs),
		}
		if dev, ok := cat.DeviceByID(id); ok {
			ds.DeviceName = dev.Name
		}

		for _, r := range recs {
			if r.Status == StatusOnline {
				ds.OnlineVariables++
			} else {
				ds.OfflineVariables = append(ds.OfflineVariables, r.Name)
			}
			if r.Timestamp.After(ds.LastSeen) {
				ds.LastSeen = r.Timestamp
			}
		}
		sort.Strings(ds.OfflineVariables)

		switch {
		case ds.TotalVariables == 0:
			ds.Status = StatusOffline
		case ds.OnlineVariables == 0:
			ds.Status = StatusOffline
		case ds.OnlineVariables < ds.TotalVariables:
			ds.Status = StatusWarning
		default:
			ds.Status = StatusOnline
		}

		out = append(out, ds)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}
