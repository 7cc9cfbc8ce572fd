package components

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/spaghettifunk/campusmap/engine/math"
)

/**
 * @brief Represents the viewpoint of a scene. Ideally,
 * these are created and managed by the camera system.
 */
type Camera struct {
	/**
	 * @brief The position of this camera in scene coordinates.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position math.Vec3
	/** @brief Degrees clockwise from north (+Y). */
	Heading float64
	/** @brief Degrees from looking straight down. 90 looks at the horizon. */
	Tilt float64
	/** @brief Vertical field of view in degrees. */
	FOV float64
	/** @brief Internal flag used to determine when the view matrix needs to be rebuilt. */
	IsDirty bool
	/**
	 * @brief The view matrix of this camera.
	 * NOTE: Do not get this directly, use GetView() instead
	 * so the view matrix is recalculated when needed.
	 */
	ViewMatrix math.Mat4
}

/** @brief The name of the default camera. */
const DEFAULT_CAMERA_NAME string = "default"

const (
	DefaultFOV float64 = 55
	maxTilt    float64 = 179
)

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.Position = math.Vec3{}
	c.Heading = 0
	c.Tilt = 0
	c.FOV = DefaultFOV
	c.IsDirty = true
	c.ViewMatrix = mgl64.Ident4()
}

func (c *Camera) GetPosition() math.Vec3 {
	return c.Position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.Position = position
	c.IsDirty = true
}

// SetOrientation sets heading and tilt in degrees. Heading wraps to
// [0, 360), tilt is clamped to [0, 179].
func (c *Camera) SetOrientation(heading, tilt float64) {
	c.Heading = normalizeHeading(heading)
	c.Tilt = math.Clamp(tilt, 0, maxTilt)
	c.IsDirty = true
}

func (c *Camera) Forward() math.Vec3 {
	h, t := math.DegToRad(c.Heading), math.DegToRad(c.Tilt)
	return math.Vec3{m.Sin(t) * m.Sin(h), m.Sin(t) * m.Cos(h), -m.Cos(t)}
}

// Up is perpendicular to Forward, pointing to the top of the view.
func (c *Camera) Up() math.Vec3 {
	h, t := math.DegToRad(c.Heading), math.DegToRad(c.Tilt)
	return math.Vec3{m.Cos(t) * m.Sin(h), m.Cos(t) * m.Cos(h), m.Sin(t)}
}

func (c *Camera) Right() math.Vec3 {
	return c.Forward().Cross(c.Up())
}

func (c *Camera) GetView() math.Mat4 {
	if c.IsDirty {
		c.ViewMatrix = mgl64.LookAtV(c.Position, c.Position.Add(c.Forward()), c.Up())
		c.IsDirty = false
	}
	return c.ViewMatrix
}

func (c *Camera) Yaw(degrees float64) {
	c.SetOrientation(c.Heading+degrees, c.Tilt)
}

func (c *Camera) Pitch(degrees float64) {
	c.SetOrientation(c.Heading, c.Tilt+degrees)
}

func normalizeHeading(h float64) float64 {
	h = m.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}
