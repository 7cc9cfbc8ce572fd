package math

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"
)

func TransformCreate() *Transform {
	return &Transform{
		Position: Vec3{},
		Rotation: mgl64.QuatIdent(),
		Scale:    Vec3{1, 1, 1},
		Local:    mgl64.Ident4(),
	}
}

func TransformFromPosition(position Vec3) *Transform {
	t := TransformCreate()
	t.SetPosition(position)
	return t
}

func TransformFromPositionRotationScale(position Vec3, rotation Quat, scale Vec3) *Transform {
	t := TransformCreate()
	t.SetPositionRotationScale(position, rotation, scale)
	return t
}

func (t *Transform) SetPosition(position Vec3) {
	t.Position = position
	t.IsDirty = true
}

func (t *Transform) Translate(translation Vec3) {
	t.Position = t.Position.Add(translation)
	t.IsDirty = true
}

func (t *Transform) SetRotation(rotation Quat) {
	t.Rotation = rotation
	t.IsDirty = true
}

// Rotate applies rotation on top of the current one.
func (t *Transform) Rotate(rotation Quat) {
	t.Rotation = rotation.Mul(t.Rotation).Normalize()
	t.IsDirty = true
}

func (t *Transform) SetScale(scale Vec3) {
	t.Scale = scale
	t.IsDirty = true
}

// ScaleIt multiplies the current scale component-wise.
func (t *Transform) ScaleIt(scale Vec3) {
	t.Scale = Vec3{t.Scale.X() * scale.X(), t.Scale.Y() * scale.Y(), t.Scale.Z() * scale.Z()}
	t.IsDirty = true
}

func (t *Transform) SetPositionRotationScale(position Vec3, rotation Quat, scale Vec3) {
	t.Position = position
	t.Rotation = rotation
	t.Scale = scale
	t.IsDirty = true
}

// HeadingDegrees returns the rotation around the vertical axis, in degrees,
// normalized to (-180, 180].
func (t *Transform) HeadingDegrees() float64 {
	forward := t.Rotation.Rotate(Vec3{1, 0, 0})
	return RadToDeg(m.Atan2(forward.Y(), forward.X()))
}

// GetLocal returns translation * rotation * scale, rebuilding it when dirty.
func (t *Transform) GetLocal() Mat4 {
	if t.IsDirty {
		tr := mgl64.Translate3D(t.Position.X(), t.Position.Y(), t.Position.Z())
		sc := mgl64.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z())
		t.Local = tr.Mul4(t.Rotation.Mat4()).Mul4(sc)
		t.IsDirty = false
	}
	return t.Local
}

func (t *Transform) GetWorld() Mat4 {
	l := t.GetLocal()
	if t.Parent != nil {
		return t.Parent.GetWorld().Mul4(l)
	}
	return l
}

// Apply maps a local point through the world matrix.
func (t *Transform) Apply(p Vec3) Vec3 {
	return mgl64.TransformCoordinate(p, t.GetWorld())
}
