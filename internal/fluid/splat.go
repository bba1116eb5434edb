package fluid

import (
	"math/rand/v2"

	"golang.org/x/image/math/f32"
)

// PointerSplat converts a contact in surface pixels, y down, into a splat.
// dx and dy are the scaled pointer delta in the same orientation.
func PointerSplat(x, y, dx, dy float32, surfaceW, surfaceH int, color f32.Vec3) Splat {
	return Splat{
		Point: f32.Vec2{x / float32(surfaceW), 1 - y/float32(surfaceH)},
		Force: f32.Vec2{dx, -dy},
		Color: color,
	}
}

// Random burst tuning.
const (
	burstForce = 1000
	burstColor = 10
)

// RandomSplats returns n splats at uniformly random points with random
// force and bright random color.
func RandomSplats(rng *rand.Rand, n int) []Splat {
	splats := make([]Splat, 0, n)
	for i := 0; i < n; i++ {
		splats = append(splats, Splat{
			Point: f32.Vec2{rng.Float32(), rng.Float32()},
			Force: f32.Vec2{
				burstForce * (rng.Float32() - 0.5),
				burstForce * (rng.Float32() - 0.5),
			},
			Color: f32.Vec3{
				burstColor * rng.Float32(),
				burstColor * rng.Float32(),
				burstColor * rng.Float32(),
			},
		})
	}
	return splats
}
