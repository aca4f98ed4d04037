package export

import (
	gomath "math"

	"go.uber.org/zap"

	"github.com/Faultbox/usdz-export/internal/host"
	"github.com/Faultbox/usdz-export/pkg/math"
	"github.com/Faultbox/usdz-export/pkg/usd"
)

// rootMatrix converts a world matrix into the document's Y-up convention,
// applying the export scale first.
func rootMatrix(world math.Mat4, scale float64) math.Mat4 {
	return math.RotateX(-gomath.Pi / 2).Mul(math.UniformScale(scale)).Mul(world)
}

// graphEntry is an object record awaiting linking.
type graphEntry struct {
	record *usd.Object
	// parentKey is the host name of the parent, empty for roots.
	parentKey string
}

// graphBuilder turns the selection into an object forest. Records are
// keyed by host object name in insertion order; linking happens only after
// every record exists.
type graphBuilder struct {
	scene  host.Scene
	opts   Options
	frames frameRange
	log    *zap.Logger

	entries []*graphEntry
	byName  map[string]int
}

func newGraphBuilder(scene host.Scene, opts Options, frames frameRange, log *zap.Logger) *graphBuilder {
	return &graphBuilder{
		scene:  scene,
		opts:   opts,
		frames: frames,
		log:    log,
		byName: make(map[string]int),
	}
}

// build records every mesh object in selection and its non-armature
// ancestors, then links them and returns the roots in discovery order.
func (b *graphBuilder) build(selection []host.Object) ([]*usd.Object, error) {
	for _, obj := range selection {
		if obj.Type() != host.TypeMesh {
			continue
		}
		entry, err := b.entry(obj, true)
		if err != nil {
			return nil, err
		}
		b.put(obj.Name(), entry)

		for p := obj.Parent(); p != nil && p.Type() != host.TypeArmature; p = p.Parent() {
			if _, ok := b.byName[p.Name()]; ok {
				continue
			}
			entry, err := b.entry(p, false)
			if err != nil {
				return nil, err
			}
			b.put(p.Name(), entry)
		}
	}
	return b.link(), nil
}

// put stores an entry, replacing a previous one with the same name in
// place so discovery order is kept.
func (b *graphBuilder) put(name string, e *graphEntry) {
	if i, ok := b.byName[name]; ok {
		b.entries[i] = e
		return
	}
	b.byName[name] = len(b.entries)
	b.entries = append(b.entries, e)
}

func (b *graphBuilder) link() []*usd.Object {
	var roots []*usd.Object
	for _, e := range b.entries {
		if e.parentKey == "" {
			roots = append(roots, e.record)
			continue
		}
		parent := b.entries[b.byName[e.parentKey]].record
		if parent.Skinned() {
			b.log.Warn("children of a skeleton root are not written",
				zap.String("object", e.record.Name), zap.String("parent", parent.Name))
		}
		parent.Children = append(parent.Children, e.record)
	}
	return roots
}

// entry builds the record of one object. Mesh data, skeleton and animation
// are only gathered for selected mesh objects; ancestors are transform-only.
func (b *graphBuilder) entry(obj host.Object, withData bool) (*graphEntry, error) {
	rec := &usd.Object{Name: SanitizeIdentifier(obj.Name())}
	e := &graphEntry{record: rec}

	parent := obj.Parent()
	rigged := parent != nil && parent.Type() == host.TypeArmature
	if parent != nil && !rigged {
		e.parentKey = parent.Name()
		rec.Parent = SanitizeIdentifier(parent.Name())
		rec.Matrix = obj.MatrixLocal()
	} else {
		rec.Matrix = rootMatrix(obj.MatrixWorld(), b.opts.Scale)
	}

	log := b.log.With(zap.String("object", obj.Name()))

	if withData {
		meshes, err := extractMeshes(obj)
		if err != nil {
			return nil, err
		}
		rec.Meshes = meshes
		log.Debug("meshes extracted", zap.Int("count", len(meshes)))

		if rigged {
			if rec.Skeleton, err = extractSkeleton(parent); err != nil {
				return nil, err
			}
			if rec.Animation, err = extractAnimation(b.scene, parent, b.frames, b.opts.Scale); err != nil {
				return nil, err
			}
			log.Debug("skeleton extracted",
				zap.Int("joints", len(rec.Skeleton.Joints)),
				zap.Bool("animated", rec.Animation != nil))
		}
	}

	if b.opts.Animate && obj.Type() != host.TypeArmature && !rigged {
		samples, err := b.timeSamples(obj, parent == nil)
		if err != nil {
			return nil, err
		}
		rec.TimeSamples = samples
	}
	return e, nil
}

// timeSamples captures the object's transform at every frame: the root
// adjusted world matrix for roots, the local matrix otherwise.
func (b *graphBuilder) timeSamples(obj host.Object, root bool) ([]usd.MatrixSample, error) {
	samples := make([]usd.MatrixSample, 0, b.frames.Len())
	err := sampleFrames(b.scene, b.frames, func(frame int) error {
		m := obj.MatrixLocal()
		if root {
			m = rootMatrix(obj.MatrixWorld(), b.opts.Scale)
		}
		samples = append(samples, usd.MatrixSample{Frame: frame, Matrix: m})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}
