package cmd

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/transport"
)

// csvSink writes each InteractionRecord as one CSV line to a buffered
// file writer, following the bufio.NewWriter-over-os.File idiom the rest
// of this codebase's ecosystem uses for plain-text output. EndOfStream
// only flushes: several SimulationManager workers share one csvSink per
// detector head, so the file itself is opened once and closed once by
// the caller after every worker has finished, not per-worker.
type csvSink struct {
	writer *bufio.Writer
}

func newCSVSink(file *os.File) (*csvSink, error) {
	w := bufio.NewWriter(file)
	if _, err := w.WriteString("particle_id,process,material,local_x_mm,local_y_mm,local_z_mm,energy_deposit_mev,emission_time_ns\n"); err != nil {
		return nil, fmt.Errorf("cmd: writing sink header: %w", err)
	}
	return &csvSink{writer: w}, nil
}

func (s *csvSink) RecordBatch(batch *particle.InteractionBatch) error {
	if batch == nil {
		return nil
	}
	for _, rec := range batch.Records {
		_, err := fmt.Fprintf(s.writer, "%d,%s,%s,%.9f,%.9f,%.9f,%.9f,%.9f\n",
			rec.ParticleID, rec.ProcessName, rec.MaterialName,
			rec.LocalPosition[0], rec.LocalPosition[1], rec.LocalPosition[2],
			rec.EnergyDeposit, rec.EmissionTime)
		if err != nil {
			return fmt.Errorf("cmd: writing interaction record: %w", err)
		}
	}
	return nil
}

func (s *csvSink) EndOfStream() error {
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("cmd: flushing sink: %w", err)
	}
	return nil
}

// sensitiveSink narrows every RecordBatch to volume's interior before
// forwarding to next, so a detector head's output file only ever
// contains the photons that actually struck it.
type sensitiveSink struct {
	volume transport.SensitiveVolume
	next   transport.Sink
}

func (s sensitiveSink) RecordBatch(batch *particle.InteractionBatch) error {
	return s.next.RecordBatch(s.volume.Filter(batch))
}

func (s sensitiveSink) EndOfStream() error { return s.next.EndOfStream() }

// lockedSink serializes access to next, for a sink shared by every
// concurrent worker writing to the same detector head's file.
type lockedSink struct {
	mu   *sync.Mutex
	next transport.Sink
}

func (s lockedSink) RecordBatch(batch *particle.InteractionBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.RecordBatch(batch)
}

func (s lockedSink) EndOfStream() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next.EndOfStream()
}

// openHeadSinks creates one CSV output file per detector head, named
// prefix-head-N.csv. The caller is responsible for closing the returned
// files once every worker has finished.
func openHeadSinks(prefix string, n int) ([]*os.File, []*csvSink, error) {
	files := make([]*os.File, n)
	sinks := make([]*csvSink, n)
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("%s-head-%d.csv", prefix, i)
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, fmt.Errorf("cmd: creating output file %q: %w", path, err)
		}
		s, err := newCSVSink(f)
		if err != nil {
			return nil, nil, fmt.Errorf("cmd: %w", err)
		}
		files[i] = f
		sinks[i] = s
	}
	return files, sinks, nil
}
