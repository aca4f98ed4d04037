package export

import (
	"fmt"

	"github.com/Faultbox/usdz-export/internal/host"
)

// frameRange is the timeline span sampled during a run.
type frameRange struct {
	Start int
	End   int
	FPS   float64
}

// Len returns the number of frames in the inclusive range.
func (r frameRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// sampleFrames moves the scene to every frame in r and calls fn. The frame
// the scene was on before the call is restored on every return path.
func sampleFrames(scene host.Scene, r frameRange, fn func(frame int) error) (err error) {
	original := scene.Frame()
	defer func() {
		if restoreErr := scene.SetFrame(original); restoreErr != nil && err == nil {
			err = fmt.Errorf("restoring frame %d: %w", original, restoreErr)
		}
	}()

	for frame := r.Start; frame <= r.End; frame++ {
		if err := scene.SetFrame(frame); err != nil {
			return fmt.Errorf("setting frame %d: %w", frame, err)
		}
		if err := fn(frame); err != nil {
			return err
		}
	}
	return nil
}
