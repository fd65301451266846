package viamcube

import (
	"context"
	"fmt"
	"image"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"github.com/mitchellh/mapstructure"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	generic "go.viam.com/rdk/services/generic"

	"viamcube/internal/cv"
	"viamcube/internal/matching"
	"viamcube/internal/puzzle"
)

var CubeModel = family.WithModel("cube")

func init() {
	resource.RegisterService(generic.API, CubeModel,
		resource.Registration[resource.Resource, *CubeConfig]{
			Constructor: newCubeService,
		},
	)
}

type CubeConfig struct {
	Camera   string
	PixelMap string `json:"pixel-map"`
	Puzzle   string

	// Seed fixes the inference randomness for reproducible runs. 0 seeds
	// from the clock.
	Seed int64
}

func (cfg *CubeConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Camera == "" {
		return nil, nil, fmt.Errorf("need a camera")
	}
	if cfg.PixelMap == "" {
		return nil, nil, fmt.Errorf("need a pixel-map")
	}
	return []string{cfg.Camera}, nil, nil
}

type cubeService struct {
	resource.AlwaysRebuild
	resource.TriviallyCloseable

	name resource.Name

	logger logging.Logger
	conf   *CubeConfig

	cam     camera.Camera
	model   *puzzle.Model
	matcher *matching.Matcher

	// The inferencer is single-writer and not internally synchronized.
	mu         sync.Mutex
	inferencer *cv.Inferencer
	rng        *rand.Rand
}

func newCubeService(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (resource.Resource, error) {
	conf, err := resource.NativeConfig[*CubeConfig](rawConf)
	if err != nil {
		return nil, err
	}

	return NewCube(ctx, deps, rawConf.ResourceName(), conf, logger)
}

func NewCube(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *CubeConfig, logger logging.Logger) (resource.Resource, error) {
	s := &cubeService{
		name:   name,
		logger: logger,
		conf:   conf,
	}

	var err error
	s.cam, err = camera.FromProvider(deps, conf.Camera)
	if err != nil {
		return nil, err
	}

	if conf.Puzzle != "" && conf.Puzzle != "3x3" {
		return nil, fmt.Errorf("unknown puzzle %q", conf.Puzzle)
	}
	s.model = puzzle.NewCube()

	pm, err := LoadPixelMap(conf.PixelMap)
	if err != nil {
		return nil, err
	}
	roles, err := pm.Roles()
	if err != nil {
		return nil, err
	}

	s.inferencer, err = cv.NewInferencer(pm.PixelCount(), s.model, roles)
	if err != nil {
		return nil, err
	}

	s.matcher, err = matching.NewMatcher(s.model, logger)
	if err != nil {
		return nil, err
	}

	seed := conf.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(seed))

	return s, nil
}

func (s *cubeService) Name() resource.Name {
	return s.name
}

// ----

type calibrateCmd struct {
	// Moves gives the puzzle's known state as a move sequence from solved,
	// e.g. "R U R' U2".
	Moves string
}

type pathCmd struct {
	Path string
}

type cmdStruct struct {
	Calibrate *calibrateCmd
	Infer     bool
	Save      *pathCmd
	Load      *pathCmd
	Roles     bool
	Stats     bool
}

func (s *cubeService) DoCommand(ctx context.Context, cmdMap map[string]interface{}) (map[string]interface{}, error) {
	var cmd cmdStruct
	err := mapstructure.Decode(cmdMap, &cmd)
	if err != nil {
		return nil, err
	}

	switch {
	case cmd.Calibrate != nil:
		return s.doCalibrate(ctx, cmd.Calibrate.Moves)
	case cmd.Infer:
		return s.doInfer(ctx)
	case cmd.Save != nil:
		return s.doSave(cmd.Save.Path)
	case cmd.Load != nil:
		return s.doLoad(cmd.Load.Path)
	case cmd.Roles:
		return s.doRoles()
	case cmd.Stats:
		return s.doStats()
	}

	return nil, fmt.Errorf("bad cmd %v", cmdMap)
}

func (s *cubeService) doCalibrate(ctx context.Context, moves string) (map[string]interface{}, error) {
	state, err := puzzle.ParseMoves(s.model.Group(), moves)
	if err != nil {
		return nil, err
	}

	img, err := s.captureImage(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.inferencer.Calibrate(img, state); err != nil {
		return nil, err
	}

	s.logger.Infof("calibrated with state %q", moves)
	return map[string]interface{}{"calibrated": true}, nil
}

func (s *cubeService) doInfer(ctx context.Context) (map[string]interface{}, error) {
	img, err := s.captureImage(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	confs, err := s.inferencer.Infer(img, s.rng)
	if err != nil {
		return nil, err
	}

	state, confidence, err := s.matcher.MostLikely(confs)
	if err != nil {
		return nil, err
	}

	s.logger.Debugf("inferred state %v with confidence %0.4f", state, confidence)

	mapping := state.Mapping()
	out := make([]interface{}, len(mapping))
	for i, v := range mapping {
		out[i] = float64(v)
	}
	return map[string]interface{}{
		"mapping":    out,
		"confidence": confidence,
	}, nil
}

func (s *cubeService) doSave(path string) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Write to a temp file and rename so a failed save never leaves a
	// truncated snapshot at the target path.
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return nil, err
	}
	tmp := f.Name()
	if err := s.inferencer.Save(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, err
	}

	s.logger.Infof("saved calibration to %s", path)
	return map[string]interface{}{"saved": path}, nil
}

func (s *cubeService) doLoad(path string) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	inf, err := cv.LoadInferencer(f, s.model)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.inferencer = inf
	s.mu.Unlock()

	s.logger.Infof("loaded calibration from %s", path)
	return map[string]interface{}{"loaded": path}, nil
}

func (s *cubeService) doRoles() (map[string]interface{}, error) {
	s.mu.Lock()
	roles := s.inferencer.Roles()
	s.mu.Unlock()

	counts := map[string]interface{}{}
	for _, role := range roles {
		k := role.Kind
		n, _ := counts[k].(float64)
		counts[k] = n + 1
	}
	return map[string]interface{}{
		"pixels": float64(len(roles)),
		"kinds":  counts,
	}, nil
}

func (s *cubeService) doStats() (map[string]interface{}, error) {
	s.mu.Lock()
	counts := s.inferencer.ObservationCounts()
	s.mu.Unlock()

	out := make([]interface{}, len(counts))
	total := 0
	for i, n := range counts {
		out[i] = float64(n)
		total += n
	}
	return map[string]interface{}{
		"observations": float64(total),
		"per_slot":     out,
	}, nil
}

func (s *cubeService) captureImage(ctx context.Context) ([]r3.Vector, error) {
	ni, _, err := s.cam.Images(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(ni) == 0 {
		return nil, fmt.Errorf("no images returned from camera")
	}

	img, err := ni[0].Image(ctx)
	if err != nil {
		return nil, err
	}

	return imageToPixels(img), nil
}

// imageToPixels flattens an image row-major into [0,1] RGB triples, the
// layout the pixel map's roles are indexed by.
func imageToPixels(img image.Image) []r3.Vector {
	bounds := img.Bounds()
	out := make([]r3.Vector, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			out = append(out, r3.Vector{
				X: float64(r) / 65535,
				Y: float64(g) / 65535,
				Z: float64(b) / 65535,
			})
		}
	}
	return out
}
