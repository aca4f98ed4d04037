package export

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Faultbox/usdz-export/internal/host"
	"github.com/Faultbox/usdz-export/internal/texture"
	"github.com/Faultbox/usdz-export/pkg/usd"
)

// materialExtractor converts host materials and writes their textures as
// PNG files into dir.
type materialExtractor struct {
	scene host.Scene
	dir   string
	log   *zap.Logger
}

// extractAll returns one record per distinct material name used by the mesh
// objects, first occurrence winning. Without any material it returns the
// default material alone.
func (x *materialExtractor) extractAll(objects []host.Object, opts Options) ([]*usd.Material, error) {
	var materials []*usd.Material
	seen := make(map[string]bool)

	for _, obj := range objects {
		slots := obj.MaterialSlots()
		if obj.Type() != host.TypeMesh || len(slots) == 0 {
			continue
		}

		var aoMap string
		if opts.BakeAO {
			var err error
			aoMap, err = x.bakeAO(obj, materialName(slots[0])+"_ao.png", opts.AOSamples)
			if err != nil {
				return nil, err
			}
		}

		for _, mat := range slots {
			if mat == nil {
				continue
			}
			name := SanitizeIdentifier(mat.Name)
			if seen[name] {
				continue
			}
			seen[name] = true

			rec, err := x.extract(mat)
			if err != nil {
				return nil, fmt.Errorf("material %s: %w", mat.Name, err)
			}
			rec.OcclusionMap = aoMap
			materials = append(materials, rec)
		}
	}

	if len(materials) == 0 {
		materials = append(materials, usd.DefaultMaterial())
	}
	return materials, nil
}

// extract converts a single material.
func (x *materialExtractor) extract(mat *host.Material) (*usd.Material, error) {
	if mat == nil {
		return usd.DefaultMaterial(), nil
	}
	if mat.UseNodes {
		return x.nodeMaterial(mat)
	}
	return x.legacyMaterial(mat)
}

func (x *materialExtractor) nodeMaterial(mat *host.Material) (*usd.Material, error) {
	name := SanitizeIdentifier(mat.Name)
	rec := usd.NewMaterial(name)

	shader := mat.SurfaceShader()
	if shader == nil {
		x.log.Debug("material has no surface shader", zap.String("material", name))
		return rec, nil
	}

	var err error
	switch shader.Kind {
	case host.NodePrincipled:
		rec.Clearcoat = shader.Input("Clearcoat").Scalar(rec.Clearcoat)
		rec.ClearcoatRoughness = shader.Input("Clearcoat Roughness").Scalar(rec.ClearcoatRoughness)
		rec.Color = shader.Input("Base Color").Color(rec.Color)
		rec.Metallic = shader.Input("Metallic").Scalar(rec.Metallic)
		rec.IOR = shader.Input("IOR").Scalar(rec.IOR)
		rec.Roughness = shader.Input("Roughness").Scalar(rec.Roughness)
		err = x.inputImages(name, shader, []channelMap{
			{"Base Color", "color", &rec.ColorMap},
			{"Metallic", "metallic", &rec.MetallicMap},
			{"Roughness", "roughness", &rec.RoughnessMap},
			{"Normal", "normal", &rec.NormalMap},
		})
	case host.NodeDiffuse:
		rec.Color = shader.Input("Color").Color(rec.Color)
		rec.Roughness = shader.Input("Roughness").Scalar(rec.Roughness)
		err = x.inputImages(name, shader, []channelMap{
			{"Color", "color", &rec.ColorMap},
			{"Roughness", "roughness", &rec.RoughnessMap},
			{"Normal", "normal", &rec.NormalMap},
		})
	default:
		x.log.Debug("unsupported surface shader, using defaults",
			zap.String("material", name), zap.String("kind", string(shader.Kind)))
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// channelMap binds a shader input to the record field holding its texture.
type channelMap struct {
	input   string
	channel string
	file    *string
}

func (x *materialExtractor) inputImages(name string, shader *host.Node, channels []channelMap) error {
	for _, c := range channels {
		file, err := x.inputImage(shader.Input(c.input), name+"_"+c.channel+".png")
		if err != nil {
			return err
		}
		*c.file = file
	}
	return nil
}

// inputImage saves the first image texture feeding s and returns its file
// name, or "" when nothing usable is linked.
func (x *materialExtractor) inputImage(s *host.Socket, file string) (string, error) {
	if s == nil {
		return "", nil
	}
	for _, node := range s.Links {
		if node == nil || node.Kind != host.NodeTexImage || node.Image == nil {
			continue
		}
		if err := x.saveImage(node.Image, file); err != nil {
			return "", err
		}
		return file, nil
	}
	return "", nil
}

func (x *materialExtractor) legacyMaterial(mat *host.Material) (*usd.Material, error) {
	name := SanitizeIdentifier(mat.Name)
	rec := usd.NewMaterial(name)

	d := mat.DiffuseColor
	rec.Color = [4]float64{d[0], d[1], d[2], 1}
	rec.Emissive = [4]float64{mat.Emit * d[0], mat.Emit * d[1], mat.Emit * d[2], 1}
	rec.Specular = mat.SpecularColor

	var err error
	if rec.ColorMap, err = x.slotImage(mat, name+"_color.png", func(s *host.TextureSlot) bool { return s.UseColorDiffuse }); err != nil {
		return nil, err
	}
	if rec.NormalMap, err = x.slotImage(mat, name+"_normal.png", func(s *host.TextureSlot) bool { return s.UseNormal }); err != nil {
		return nil, err
	}
	return rec, nil
}

// slotImage saves the image of the first texture slot matching role.
func (x *materialExtractor) slotImage(mat *host.Material, file string, role func(*host.TextureSlot) bool) (string, error) {
	for _, slot := range mat.TextureSlots {
		if slot == nil || slot.Image == nil || !role(slot) {
			continue
		}
		if err := x.saveImage(slot.Image, file); err != nil {
			return "", err
		}
		return file, nil
	}
	return "", nil
}

func (x *materialExtractor) saveImage(img host.Image, file string) error {
	path := filepath.Join(x.dir, file)
	if err := texture.SavePNG(img.Data(), path); err != nil {
		return fmt.Errorf("saving texture %s: %w", file, err)
	}
	x.log.Debug("texture written", zap.String("image", img.Name()), zap.String("file", file))
	return nil
}
