package transport

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/nmsim/phospec/internal/geometry"
	"github.com/nmsim/phospec/internal/materials"
	"github.com/nmsim/phospec/internal/particle"
	"github.com/nmsim/phospec/internal/physics"
	"github.com/nmsim/phospec/internal/rng"
)

// WoodcockStats accumulates delta-tracking candidate/fictitious counts
// across concurrent Propagator.Step calls, for diagnosing how much of a
// Woodcock majorant's overhead is spent rejecting candidates. Safe for
// concurrent use; a nil *WoodcockStats is a valid no-op.
type WoodcockStats struct {
	candidates int64
	fictitious int64
}

func (s *WoodcockStats) record(fictitious bool) {
	if s == nil {
		return
	}
	atomic.AddInt64(&s.candidates, 1)
	if fictitious {
		atomic.AddInt64(&s.fictitious, 1)
	}
}

// FictitiousFraction returns the observed fraction of Woodcock-tagged
// candidates classified fictitious so far, or 0 if none were recorded.
func (s *WoodcockStats) FictitiousFraction() float64 {
	if s == nil {
		return 0
	}
	c := atomic.LoadInt64(&s.candidates)
	if c == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&s.fictitious)) / float64(c)
}

// Propagator advances a particle batch by one delta-tracking step within
// a scene, dispatching to whichever of Processes fires.
type Propagator struct {
	Processes  []physics.Process
	MaterialDB *materials.MaterialDatabase

	// Stats, if non-nil, is updated with every Woodcock-tagged candidate
	// this Propagator resolves. Left nil by NewPropagator; set the field
	// directly to opt in.
	Stats *WoodcockStats
}

// NewPropagator builds a Propagator over the given processes, resolving
// geometry.MaterialID values against db.
func NewPropagator(db *materials.MaterialDatabase, processes ...physics.Process) *Propagator {
	return &Propagator{Processes: processes, MaterialDB: db}
}

// Step implements one delta-tracking iteration over the whole batch:
//
//  1. cast to the next volume boundary, reading each photon's current
//     volume's intrinsic material (the majorant, for Woodcock-tagged
//     volumes);
//  2. sum every process's LAC at that material into a total, and sample
//     a candidate free path against it;
//  3. split candidates (free path < boundary distance) from photons that
//     simply stream to the boundary;
//  4. for Woodcock-tagged candidates, re-resolve the real material at the
//     new position and recompute LACs there;
//  5. classify each candidate as a real interaction (probability
//     μ_p/μ_majorant per process) or fictitious (the complement);
//  6. dispatch real interactions to their process and write the result
//     back into the batch.
func (p *Propagator) Step(b *particle.Batch, scene *geometry.Scene, gen *rng.Generator) (*particle.InteractionBatch, error) {
	n := b.Len()
	if n == 0 {
		return &particle.InteractionBatch{}, nil
	}

	distance := make([]float64, n)
	currentNode := make([]geometry.NodeID, n)
	for i := 0; i < n; i++ {
		d, hit := scene.CastPath(geometry.RootID, b.Position[i], b.Direction[i])
		distance[i] = d
		currentNode[i] = hit
	}

	mats := make([]materials.Material, n)
	for i, node := range currentNode {
		m, err := p.MaterialDB.ByID(int(scene.NodeMaterial(node)))
		if err != nil {
			return nil, fmt.Errorf("transport: resolving current-volume material: %w", err)
		}
		mats[i] = m
	}

	lac := make([][]float64, len(p.Processes))
	muMajorant := make([]float64, n)
	for pi, proc := range p.Processes {
		l, err := proc.LAC(b, mats)
		if err != nil {
			return nil, fmt.Errorf("transport: %s LAC: %w", proc.Name(), err)
		}
		lac[pi] = l
		for i, v := range l {
			muMajorant[i] += v
		}
	}

	moveDist := make([]float64, n)
	candidate := make([]bool, n)
	for i := range moveDist {
		var freePath float64
		if muMajorant[i] > 0 {
			freePath = gen.Exponential(1 / muMajorant[i])
		} else {
			freePath = math.Inf(1)
		}
		if freePath < distance[i] {
			candidate[i] = true
			moveDist[i] = freePath
		} else {
			moveDist[i] = distance[i]
		}
	}
	b.Move(moveDist)

	var woodcockIdx []int
	for i := range candidate {
		if candidate[i] && scene.IsWoodcockTagged(currentNode[i]) {
			woodcockIdx = append(woodcockIdx, i)
		}
	}
	if len(woodcockIdx) > 0 {
		subBatch := b.Select(woodcockIdx)
		subMats := make([]materials.Material, len(woodcockIdx))
		for j, i := range woodcockIdx {
			m, err := p.MaterialDB.ByID(int(scene.MaterialAt(currentNode[i], b.Position[i])))
			if err != nil {
				return nil, fmt.Errorf("transport: resolving real material at Woodcock candidate: %w", err)
			}
			subMats[j] = m
			mats[i] = m
		}
		for pi, proc := range p.Processes {
			l, err := proc.LAC(subBatch, subMats)
			if err != nil {
				return nil, fmt.Errorf("transport: %s real-material LAC: %w", proc.Name(), err)
			}
			for j, i := range woodcockIdx {
				lac[pi][i] = l[j]
			}
		}
	}

	woodcockCandidate := make(map[int]bool, len(woodcockIdx))
	for _, i := range woodcockIdx {
		woodcockCandidate[i] = true
	}

	chosenProcess := make([]int, n)
	for i := range chosenProcess {
		chosenProcess[i] = -1
	}
	for i := range candidate {
		if !candidate[i] || muMajorant[i] <= 0 {
			continue
		}
		u := gen.Uniform01()
		var cum float64
		for pi := range p.Processes {
			cum += lac[pi][i] / muMajorant[i]
			if u < cum {
				chosenProcess[i] = pi
				break
			}
		}
		if woodcockCandidate[i] {
			p.Stats.record(chosenProcess[i] == -1)
		}
	}

	result := &particle.InteractionBatch{}
	for pi, proc := range p.Processes {
		var indices []int
		for i, chosen := range chosenProcess {
			if chosen == pi {
				indices = append(indices, i)
			}
		}
		if len(indices) == 0 {
			continue
		}
		subBatch := b.Select(indices)
		subMats := make([]materials.Material, len(indices))
		for j, i := range indices {
			subMats[j] = mats[i]
		}
		recs, err := proc.Apply(subBatch, subMats, gen)
		if err != nil {
			return nil, fmt.Errorf("transport: %s Apply: %w", proc.Name(), err)
		}
		b.WriteBack(indices, subBatch)
		result = result.Append(recs)
	}

	return result, nil
}
