package nats

import (
	"encoding/json"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"scada-sync/internal/core/telemetry"
	"scada-sync/pkg/rand"
)

const (
	streamName    = "SCADA_SYNC"
	subjectPrefix = "scada"
)

// Publisher republishes each derived snapshot onto NATS so downstream
// consumers (alerting, archival) get the same view the UI does.
type Publisher struct {
	nc *natsgo.Conn
	js natsgo.JetStreamContext
	lg zerolog.Logger
}

func NewPublisher(url string, lg zerolog.Logger) (*Publisher, error) {
	nc, err := natsgo.Connect(url, natsgo.Name("scada-sync-"+rand.ID8()))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	p := &Publisher{nc: nc, js: js, lg: lg.With().Str("adapter", "nats").Logger()}
	if err := p.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	return p, nil
}

// ensureStream idempotently creates the snapshot stream.
func (p *Publisher) ensureStream() error {
	_, err := p.js.AddStream(&natsgo.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPrefix + ".>"},
		Storage:  natsgo.FileStorage,
		Replicas: 1,
	})
	if err != nil && err != natsgo.ErrStreamNameAlreadyInUse {
		return err
	}
	return nil
}

// SnapshotUpdated implements telemetry.Sink.
func (p *Publisher) SnapshotUpdated(records []telemetry.VariableRecord, devices []telemetry.DeviceStatus) {
	if b, err := json.Marshal(records); err == nil {
		if _, err := p.js.PublishAsync(subjectPrefix+".telemetry.enriched", b); err != nil {
			p.lg.Error().Err(err).Msg("publish enriched records")
		}
	}

	for _, d := range devices {
		b, err := json.Marshal(d)
		if err != nil {
			continue
		}
		subject := fmt.Sprintf("%s.status.%d", subjectPrefix, d.DeviceID)
		if _, err := p.js.PublishAsync(subject, b); err != nil {
			p.lg.Error().Err(err).Int64("device_id", d.DeviceID).Msg("publish device status")
		}
	}
}

// Close the connection
func (p *Publisher) Close() { _ = p.nc.Drain() }
