package transport

import (
	"fmt"

	"github.com/nmsim/phospec/internal/geometry"
	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/units"
)

// Sink is the core's only contract with whatever consumes interaction
// records downstream — a file writer, an in-memory accumulator, a test
// spy. The core ships no sink that touches a filesystem; that boundary
// is explicitly a collaborator's concern.
type Sink interface {
	RecordBatch(*particle.InteractionBatch) error
	EndOfStream() error
}

// SensitiveVolume filters an InteractionBatch down to the records whose
// global position lies inside one scene node, and expresses those
// records' position/direction in that node's own local frame.
type SensitiveVolume struct {
	Node  geometry.NodeID
	Scene *geometry.Scene
}

// Filter returns a new InteractionBatch containing only the records
// whose GlobalPosition lies inside v's volume, with LocalPosition and
// LocalDirection populated via v's frame.
func (v SensitiveVolume) Filter(batch *particle.InteractionBatch) *particle.InteractionBatch {
	out := &particle.InteractionBatch{}
	if batch == nil {
		return out
	}
	toLocal := v.Scene.WorldToLocal(v.Node)
	for _, rec := range batch.Records {
		if !v.Scene.PointIn(v.Node, rec.GlobalPosition) {
			continue
		}
		rec.LocalPosition = toLocal.TransformPoint(rec.GlobalPosition)
		rec.LocalDirection = toLocal.TransformDirection(rec.GlobalDirection)
		out.Records = append(out.Records, rec)
	}
	return out
}

// LocalFrame expresses a global position/direction pair in v's local
// frame, for sinks that need the conversion outside of Filter.
func (v SensitiveVolume) LocalFrame(pos, dir units.Vec3) (units.Vec3, units.Vec3) {
	toLocal := v.Scene.WorldToLocal(v.Node)
	return toLocal.TransformPoint(pos), toLocal.TransformDirection(dir)
}

// NopSink discards every batch. Useful for dry runs and benchmarks that
// only care about propagation cost, not the recorded data.
type NopSink struct{}

func (NopSink) RecordBatch(*particle.InteractionBatch) error { return nil }
func (NopSink) EndOfStream() error                            { return nil }

// ChannelSink forwards each batch onto a capacity-1 channel, giving the
// consumer natural back-pressure: RecordBatch blocks until the previous
// batch has been drained. EndOfStream closes the channel.
type ChannelSink struct {
	ch     chan *particle.InteractionBatch
	closed bool
}

// NewChannelSink creates a ChannelSink backed by a fresh capacity-1
// channel.
func NewChannelSink() *ChannelSink {
	return &ChannelSink{ch: make(chan *particle.InteractionBatch, 1)}
}

// Batches exposes the channel for a consumer to range over.
func (s *ChannelSink) Batches() <-chan *particle.InteractionBatch { return s.ch }

func (s *ChannelSink) RecordBatch(batch *particle.InteractionBatch) error {
	if s.closed {
		return fmt.Errorf("transport: %w: RecordBatch after EndOfStream", ErrSink)
	}
	s.ch <- batch
	return nil
}

func (s *ChannelSink) EndOfStream() error {
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch)
	return nil
}
