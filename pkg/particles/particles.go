package particles

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultCount is the size of a field when no count is configured.
	DefaultCount = 100000

	// MinCount is the smallest field Generate will produce.
	MinCount = 1000

	// Clusters is the number of Fibonacci-sphere cluster centers.
	Clusters = 8

	// Extent scales the unit-sphere cloud to its final size.
	Extent = 0.6
)

// Particle is an immutable initial position plus a seed in [0, 1).
type Particle struct {
	Pos  r3.Vec
	Seed float64
}

// population is one component of the generation mixture.
type population struct {
	weight float64
	sample func(rng *rand.Rand, centers []r3.Vec) r3.Vec
}

// The weights sum to 1.
var mixture = []population{
	{0.14, smallCluster},
	{0.12, midCluster},
	{0.16, fullCluster},
	{0.48, shell},
	{0.10, dust},
}

// FibonacciCenters returns n points spread evenly over the unit sphere.
func FibonacciCenters(n int) []r3.Vec {
	golden := math.Pi * (3 - math.Sqrt(5))
	out := make([]r3.Vec, n)
	for k := range out {
		y := 1 - 2*(float64(k)+0.5)/float64(n)
		r := math.Sqrt(1 - y*y)
		th := golden * float64(k+1)
		out[k] = r3.Vec{X: math.Cos(th) * r, Y: y, Z: math.Sin(th) * r}
	}
	return out
}

// Generate builds a field of max(count, MinCount) particles. The same seed
// always yields the same cloud.
func Generate(count int, seed uint64) []Particle {
	if count < MinCount {
		count = MinCount
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	centers := FibonacciCenters(Clusters)

	out := make([]Particle, count)
	for i := range out {
		p := pick(rng.Float64()).sample(rng, centers)
		out[i] = Particle{Pos: r3.Scale(Extent, p), Seed: rng.Float64()}
	}
	return out
}

func pick(u float64) population {
	acc := 0.0
	for _, p := range mixture {
		acc += p.weight
		if u < acc {
			return p
		}
	}
	return mixture[len(mixture)-1]
}

func smallCluster(rng *rand.Rand, centers []r3.Vec) r3.Vec {
	dir := around(rng, centers[rng.IntN(len(centers))], 0.20)
	s := 0.30 + 0.18*rng.Float64()
	r := 0.84 * (0.80 + 0.20*rng.Float64())
	return r3.Scale(s*r, dir)
}

func midCluster(rng *rand.Rand, centers []r3.Vec) r3.Vec {
	dir := around(rng, centers[rng.IntN(len(centers))], 0.16)
	s := 0.48 + 0.20*rng.Float64()
	r := 0.90 * (0.85 + 0.25*rng.Float64())
	return r3.Scale(s*r, dir)
}

func fullCluster(rng *rand.Rand, centers []r3.Vec) r3.Vec {
	dir := around(rng, centers[rng.IntN(len(centers))], 0.11)
	r := 0.30 + 0.60*math.Pow(rng.Float64(), 0.9)
	return r3.Scale(r, dir)
}

func shell(rng *rand.Rand, _ []r3.Vec) r3.Vec {
	r := 0.92 + 0.08*math.Pow(rng.Float64(), 1.8)
	return r3.Scale(r, uniformDir(rng))
}

func dust(rng *rand.Rand, _ []r3.Vec) r3.Vec {
	r := 0.2 + 0.8*rng.Float64()
	return r3.Scale(r, uniformDir(rng))
}

// around offsets mu by an approximately Gaussian sample (sum of three
// uniforms per axis) and projects the result back onto the unit sphere.
func around(rng *rand.Rand, mu r3.Vec, sigma float64) r3.Vec {
	tri := func() float64 {
		return (rng.Float64()*2 - 1) + (rng.Float64()*2 - 1) + (rng.Float64()*2 - 1)
	}
	v := r3.Add(mu, r3.Vec{X: sigma * tri(), Y: sigma * tri(), Z: sigma * tri()})
	return normalize(v)
}

func uniformDir(rng *rand.Rand) r3.Vec {
	u, v := rng.Float64(), rng.Float64()
	z := 2*v - 1
	phi := 2 * math.Pi * u
	s := math.Sqrt(math.Max(0, 1-z*z))
	return r3.Vec{X: s * math.Cos(phi), Y: s * math.Sin(phi), Z: z}
}

func normalize(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < 1e-6 {
		n = 1
	}
	return r3.Scale(1/n, v)
}
