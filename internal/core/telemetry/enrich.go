package telemetry

import (
	"strconv"

	"scada-sync/internal/core/catalog"
)

// Enrich joins one raw event against the catalog and produces a complete
// record set. Pure: same (catalog, event) in, same records out. Every
// catalog variable yields a record — absent or null samples come out as
// offline, never omitted — except variables whose device id does not
// resolve, which are dropped entirely.
func Enrich(cat *catalog.Catalog, ev RawEvent) []VariableRecord {
	samples := indexSamples(ev.Variables)

	out := make([]VariableRecord, 0, len(cat.Variables))
	for _, v := range cat.Variables {
		dev, ok := cat.DeviceByID(v.DeviceID)
		if !ok {
			continue
		}

		rec := VariableRecord{
			VariableID: v.ID,
			Code:       v.Code,
			DeviceID:   v.DeviceID,
			DeviceName: dev.Name,
			Name:       v.Name,
			Unit:       v.Unit,
			Timestamp:  ev.Timestamp,
			Status:     StatusOffline,
		}

		if s, ok := lookupSample(samples, v); ok && s.Value != nil {
			rec.Value = coerce(s.Value)
			rec.Status = StatusOnline
		}

		out = append(out, rec)
	}
	return out
}

type sampleIndex struct {
	byID   map[int64]Sample
	byCode map[string]Sample
}

func indexSamples(samples []Sample) sampleIndex {
	idx := sampleIndex{
		byID:   make(map[int64]Sample, len(samples)),
		byCode: make(map[string]Sample, len(samples)),
	}
	for _, s := range samples {
		if s.VariableID != 0 {
			idx.byID[s.VariableID] = s
		}
		if s.Code != "" {
			idx.byCode[s.Code] = s
		}
	}
	return idx
}

// lookupSample matches a catalog variable to a payload entry, by numeric
// id first and external code second. Exact match only.
func lookupSample(idx sampleIndex, v catalog.Variable) (Sample, bool) {
	if s, ok := idx.byID[v.ID]; ok {
		return s, true
	}
	if v.Code != "" {
		if s, ok := idx.byCode[v.Code]; ok {
			return s, true
		}
	}
	return Sample{}, false
}

// coerce turns numeric strings into float64; every other non-nil value
// passes through as-is. Booleans and enumerated strings are valid online
// values.
func coerce(v any) any {
	switch val := v.(type) {
	case float64:
		return val
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
		return val
	default:
		return val
	}
}
