package viamcube

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/lucasb-eyer/go-colorful"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/data"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"

	"viamcube/internal/cv"
)

var OverlayCameraModel = family.WithModel("cube-overlay")

func init() {
	resource.RegisterComponent(camera.API, OverlayCameraModel,
		resource.Registration[camera.Camera, *OverlayCameraConfig]{
			Constructor: newOverlayCamera,
		},
	)
}

type OverlayCameraConfig struct {
	Input    string
	PixelMap string `json:"pixel-map"`
}

func (cfg *OverlayCameraConfig) Validate(path string) ([]string, []string, error) {
	if cfg.Input == "" {
		return nil, nil, fmt.Errorf("need an input")
	}
	if cfg.PixelMap == "" {
		return nil, nil, fmt.Errorf("need a pixel-map")
	}
	return []string{cfg.Input}, nil, nil
}

func newOverlayCamera(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (camera.Camera, error) {
	conf, err := resource.NativeConfig[*OverlayCameraConfig](rawConf)
	if err != nil {
		return nil, err
	}

	return NewOverlayCamera(ctx, deps, rawConf.ResourceName(), conf, logger)
}

func NewOverlayCamera(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *OverlayCameraConfig, logger logging.Logger) (camera.Camera, error) {
	oc := &OverlayCamera{
		name:   name,
		conf:   conf,
		logger: logger,
	}

	var err error
	oc.input, err = camera.FromProvider(deps, conf.Input)
	if err != nil {
		return nil, err
	}

	oc.pixels, err = LoadPixelMap(conf.PixelMap)
	if err != nil {
		return nil, err
	}
	if _, err := oc.pixels.Roles(); err != nil {
		return nil, err
	}

	return oc, nil
}

// OverlayCamera draws the pixel map's regions over the input camera feed so
// a human can line the physical puzzle up with the configured rectangles.
type OverlayCamera struct {
	resource.AlwaysRebuild
	resource.TriviallyCloseable

	name   resource.Name
	conf   *OverlayCameraConfig
	logger logging.Logger

	input  camera.Camera
	pixels *PixelMap
}

func (oc *OverlayCamera) Image(ctx context.Context, mimeType string, extra map[string]interface{}) ([]byte, camera.ImageMetadata, error) {
	return camera.GetImageFromGetImages(ctx, nil, oc, extra, nil)
}

func (oc *OverlayCamera) Images(ctx context.Context, filterSourceNames []string, extra map[string]interface{}) ([]camera.NamedImage, resource.ResponseMetadata, error) {
	ni, rm, err := oc.input.Images(ctx, nil, extra)
	if err != nil {
		return nil, rm, err
	}

	if len(ni) == 0 {
		return nil, rm, fmt.Errorf("no images returned from input camera")
	}

	srcImg, err := ni[0].Image(ctx)
	if err != nil {
		return nil, rm, err
	}

	dst := OverlayDebugImage(srcImg, oc.pixels)

	result, err := camera.NamedImageFromImage(dst, ni[0].SourceName, "", data.Annotations{})
	if err != nil {
		return nil, rm, err
	}
	return []camera.NamedImage{result}, rm, nil
}

// OverlayDebugImage copies the source frame and draws every pixel map region
// on top: a colored border (hue by slot for stickers, white for lighting
// references) and a short label in the region's center.
func OverlayDebugImage(srcImg image.Image, pm *PixelMap) image.Image {
	bounds := srcImg.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, srcImg, bounds.Min, draw.Src)

	// Hue wheel sized by the highest slot in the map, so every slot gets a
	// distinct border color whatever the puzzle's facelet count is.
	slots := 1
	for _, reg := range pm.Regions {
		if reg.Kind == cv.RoleSticker && reg.Slot+1 > slots {
			slots = reg.Slot + 1
		}
	}
	for _, reg := range pm.Regions {
		var border color.Color
		var label string
		switch reg.Kind {
		case cv.RoleSticker:
			border = colorful.Hsv(float64(reg.Slot)*360/float64(slots), 1, 1)
			label = fmt.Sprintf("%d", reg.Slot)
		case cv.RoleWhiteBalance:
			border = color.RGBA{255, 255, 255, 255}
			label = reg.Face
		default:
			continue
		}

		rect := image.Rect(reg.X, reg.Y, reg.X+reg.Width, reg.Y+reg.Height).Add(bounds.Min)
		drawBorder(dst, rect, border)

		textX := rect.Min.X + reg.Width/2 - len(label)*3
		textY := rect.Min.Y + reg.Height/2 + 3
		drawString(dst, textX, textY, label, color.RGBA{255, 0, 0, 255})
	}

	return dst
}

func drawBorder(dst *image.RGBA, rect image.Rectangle, c color.Color) {
	for x := rect.Min.X; x < rect.Max.X; x++ {
		dst.Set(x, rect.Min.Y, c)
		dst.Set(x, rect.Max.Y-1, c)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		dst.Set(rect.Min.X, y, c)
		dst.Set(rect.Max.X-1, y, c)
	}
}

func drawString(dst *image.RGBA, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

func (oc *OverlayCamera) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	return nil, fmt.Errorf("DoCommand not supported")
}

func (oc *OverlayCamera) NextPointCloud(ctx context.Context, extra map[string]interface{}) (pointcloud.PointCloud, error) {
	return nil, fmt.Errorf("NextPointCloud not supported")
}

func (oc *OverlayCamera) Properties(ctx context.Context) (camera.Properties, error) {
	return camera.Properties{}, nil
}

func (oc *OverlayCamera) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	return nil, nil
}

func (oc *OverlayCamera) Name() resource.Name {
	return oc.name
}
