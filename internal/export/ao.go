package export

import (
	"go.uber.org/zap"

	"github.com/Faultbox/usdz-export/internal/host"
)

// aoBakeSize is the edge length of the ambient occlusion bake target.
const aoBakeSize = 1024

// bakeAO renders an ambient occlusion map for obj and saves it as file.
// Meshes without UVs are skipped. A failing bake pass is logged and yields
// no map; failing to save the result is an error. The temporary image is
// always detached and freed.
func (x *materialExtractor) bakeAO(obj host.Object, file string, samples int) (string, error) {
	mesh := obj.Mesh()
	if mesh == nil || mesh.ActiveUVLayer() == nil {
		x.log.Debug("skipping AO bake, mesh has no uv layer", zap.String("object", obj.Name()))
		return "", nil
	}

	log := x.log.With(zap.String("object", obj.Name()), zap.String("file", file))

	img, err := x.scene.NewImage("export_ao", aoBakeSize, aoBakeSize)
	if err != nil {
		log.Warn("AO bake image unavailable", zap.Error(err))
		return "", nil
	}
	defer x.scene.RemoveImage(img)

	if err := x.scene.SetBakeTarget(obj, img); err != nil {
		log.Warn("AO bake target rejected", zap.Error(err))
		return "", nil
	}
	defer func() {
		if err := x.scene.SetBakeTarget(obj, nil); err != nil {
			log.Warn("detaching AO bake target", zap.Error(err))
		}
	}()

	if err := x.scene.BakeAO(obj, samples); err != nil {
		log.Warn("AO bake failed", zap.Error(err))
		return "", nil
	}

	if err := x.saveImage(img, file); err != nil {
		return "", err
	}
	log.Debug("AO baked", zap.Int("samples", samples))
	return file, nil
}
