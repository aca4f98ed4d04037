package export

import (
	"testing"

	"go.uber.org/zap"

	"github.com/Faultbox/usdz-export/internal/host/memhost"
	"github.com/Faultbox/usdz-export/pkg/usd"
)

// loadScene builds an in-memory scene from a YAML description.
func loadScene(t *testing.T, desc string) *memhost.Scene {
	t.Helper()
	s, err := memhost.Load([]byte(desc), t.TempDir())
	if err != nil {
		t.Fatalf("loading scene: %v", err)
	}
	return s
}

func newMaterialExtractor(s *memhost.Scene, dir string) *materialExtractor {
	return &materialExtractor{scene: s, dir: dir, log: zap.NewNop()}
}

// checkMeshInvariants verifies the counts and index ranges of a record.
func checkMeshInvariants(t *testing.T, m *usd.Mesh) {
	t.Helper()
	sum := 0
	for _, c := range m.FaceVertexCounts {
		sum += c
	}
	if sum != len(m.FaceVertexIndices) {
		t.Errorf("%s: sum(faceVertexCounts) = %d, len(faceVertexIndices) = %d", m.Name, sum, len(m.FaceVertexIndices))
	}
	if len(m.NormalIndices) != sum || len(m.UVIndices) != sum {
		t.Errorf("%s: %d normal and %d uv indices for %d corners", m.Name, len(m.NormalIndices), len(m.UVIndices), sum)
	}
	inRange := func(kind string, indices []int, n int) {
		for _, i := range indices {
			if i < 0 || i >= n {
				t.Errorf("%s: %s index %d out of range [0, %d)", m.Name, kind, i, n)
				return
			}
		}
	}
	inRange("point", m.FaceVertexIndices, len(m.Points))
	inRange("normal", m.NormalIndices, len(m.Normals))
	inRange("uv", m.UVIndices, len(m.UVs))
	if m.Weights != nil && len(m.Weights) != len(m.Points) {
		t.Errorf("%s: %d weight rows for %d points", m.Name, len(m.Weights), len(m.Points))
	}
}

// rigScene is a two bone rig driving a plane plus an animated crate.
const rigScene = `
frames: {start: 1, end: 10, fps: 30, current: 4}
active: Body
selection: [Body, Crate]

images:
  - name: checker
    color: [1, 0, 0, 1]
    size: [4, 4]

materials:
  - name: Skin
    shader: principled
    inputs:
      Base Color: [0.8, 0.5, 0.4, 1]
      Metallic: 0.1
      Roughness: 0.3
    textures:
      Base Color: checker
  - name: Wood
    legacy:
      diffuse: [0.5, 0.25, 0.1]
      emit: 0.5
      textures:
        - image: checker
          color: true

objects:
  - name: Rig
    type: armature
    armature:
      action: Wave
      bones:
        - name: spine
          tail: [0, 0, 2]
        - name: neck
          parent: spine
          head: [0, 0, 2]
          tail: [0, 0, 3]
    pose:
      - bone: spine
        keys:
          - {frame: 1, location: [0, 0, 0]}
          - {frame: 10, location: [0, 0, 9]}
      - bone: neck
        location: [1, 0, 0]
        scale: [2, 2, 2]
  - name: Body
    parent: Rig
    mesh: {primitive: plane}
    materials: [Skin]
    groups:
      - name: spine
        weights: {0: 1.0, 1: 1.0, 2: 0.25, 3: 0.0000001}
      - name: neck
        weights: {2: 0.75, 3: 1.0}
      - name: unmatched
        weights: {0: 1.0}
  - name: Crate
    keys:
      - {frame: 1, location: [0, 0, 0]}
      - {frame: 10, location: [9, 0, 0]}
    mesh: {primitive: cube}
    materials: [Wood]
`
