package host

// NodeKind tags a shader node.
type NodeKind string

// Node kinds the exporter interprets. Any other kind falls back to default
// material values.
const (
	NodeOutputMaterial NodeKind = "OUTPUT_MATERIAL"
	NodePrincipled     NodeKind = "BSDF_PRINCIPLED"
	NodeDiffuse        NodeKind = "BSDF_DIFFUSE"
	NodeTexImage       NodeKind = "TEX_IMAGE"
)

// Socket is a node input. Default holds the unlinked value: one element for
// scalars, four for colors. Links lists the nodes feeding this input.
type Socket struct {
	Name    string
	Default []float64
	Links   []*Node
}

// Linked reports whether anything feeds the socket.
func (s *Socket) Linked() bool {
	return len(s.Links) > 0
}

// Scalar returns the first default component, or fallback when unset.
func (s *Socket) Scalar(fallback float64) float64 {
	if s == nil || len(s.Default) == 0 {
		return fallback
	}
	return s.Default[0]
}

// Color returns the default as RGBA, filling missing components from
// fallback.
func (s *Socket) Color(fallback [4]float64) [4]float64 {
	if s == nil {
		return fallback
	}
	out := fallback
	for i := 0; i < len(s.Default) && i < 4; i++ {
		out[i] = s.Default[i]
	}
	return out
}

// Node is a shader graph node.
type Node struct {
	Name   string
	Kind   NodeKind
	Inputs []*Socket
	// Image is set on texture nodes.
	Image Image
}

// Input returns the named input, or nil.
func (n *Node) Input(name string) *Socket {
	for _, s := range n.Inputs {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// TextureSlot is a legacy material texture assignment.
type TextureSlot struct {
	Image           Image
	UseColorDiffuse bool
	UseNormal       bool
}

// Material is a host material. Node based materials describe their shading
// with Nodes; legacy materials use the flat fields and texture slots.
type Material struct {
	Name     string
	UseNodes bool
	Nodes    []*Node

	DiffuseColor  [3]float64
	SpecularColor [3]float64
	Emit          float64
	TextureSlots  []*TextureSlot
}

// OutputNode returns the first material output node, or nil.
func (m *Material) OutputNode() *Node {
	for _, n := range m.Nodes {
		if n.Kind == NodeOutputMaterial {
			return n
		}
	}
	return nil
}

// SurfaceShader returns the node linked into the output's Surface input.
func (m *Material) SurfaceShader() *Node {
	out := m.OutputNode()
	if out == nil {
		return nil
	}
	surface := out.Input("Surface")
	if surface == nil || !surface.Linked() {
		return nil
	}
	return surface.Links[0]
}
