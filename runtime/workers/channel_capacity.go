package workers

import (
	"context"
	"log/slog"
	"reflect"
	"time"
)

const saturationWarning = 0.8

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically samples the length and capacity of internal channels.
// Reading len(channel) and cap(channel) never blocks, so sampling does not interfere with producers.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	channels       []NamedChannel
	metricInterval time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger, metricInterval time.Duration, channels ...NamedChannel) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{log: log, channels: channels, metricInterval: metricInterval}
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping channel sampling")
			return nil
		case <-ticker.C:
			w.Sample()
		}
	}
}

// Sample logs every channel's occupancy and returns how many are close to saturation.
func (w *ChannelCapacityWorker) Sample() int {
	saturated := 0
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		capacity, length := v.Cap(), v.Len()
		if capacity > 0 && float64(length) >= saturationWarning*float64(capacity) {
			saturated++
			w.log.Warn("Channel close to saturation", "name", nc.Name, "length", length, "capacity", capacity)
			continue
		}
		w.log.Debug("Channel capacity", "name", nc.Name, "length", length, "capacity", capacity)
	}
	return saturated
}
