package weapons

import (
	"math"
	"math/rand"

	"github.com/OCAP2/dogfight/internal/vecmath"
)

type CannonConfig struct {
	FireRate float64      // rounds per minute
	Spread   float64      // degrees, radius of the dispersion disk
	Mount    vecmath.Vec3 // muzzle offset in the aircraft frame
}

// Cannon is level-triggered: it fires whenever the trigger is held and the
// cycle timer has run out.
type Cannon struct {
	cfg    CannonConfig
	rng    *rand.Rand
	timer  float64
	firing bool
}

func NewCannon(cfg CannonConfig, rng *rand.Rand) *Cannon {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Cannon{cfg: cfg, rng: rng}
}

func (c *Cannon) SetTrigger(held bool) { c.firing = held }

func (c *Cannon) Firing() bool { return c.firing }

func (c *Cannon) Mount() vecmath.Vec3 { return c.cfg.Mount }

// Cooldown advances the cycle timer.
func (c *Cannon) Cooldown(dt float64) { c.timer = countdown(c.timer, dt) }

// Interval is the time between rounds.
func (c *Cannon) Interval() float64 {
	if c.cfg.FireRate <= 0 {
		return math.Inf(1)
	}
	return 60 / c.cfg.FireRate
}

// TryFire returns the muzzle-relative spread rotation of the next round when
// the cannon fires this tick.
func (c *Cannon) TryFire() (vecmath.Quat, bool) {
	if !c.firing || c.timer != 0 || c.cfg.FireRate <= 0 {
		return vecmath.Identity, false
	}
	c.timer = c.Interval()
	x, y := c.insideUnitCircle()
	return vecmath.Euler(x*c.cfg.Spread, y*c.cfg.Spread, 0), true
}

func (c *Cannon) insideUnitCircle() (float64, float64) {
	r := math.Sqrt(c.rng.Float64())
	s, co := math.Sincos(2 * math.Pi * c.rng.Float64())
	return r * co, r * s
}
