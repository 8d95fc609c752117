package simulator

import (
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/nerrad567/homebus/internal/device"
)

// Generator produces successive sensor readings in their wire form.
type Generator interface {
	Next() string
}

// walk is a bounded random walk rounded to a fixed precision.
type walk struct {
	rng      *rand.Rand
	value    float64
	lo, hi   float64
	step     float64
	decimals int
}

func (w *walk) Next() string {
	w.value += (w.rng.Float64()*2 - 1) * w.step
	w.value = math.Max(w.lo, math.Min(w.hi, w.value))
	return strconv.FormatFloat(w.value, 'f', w.decimals, 64)
}

// motion fires with a fixed probability per reading.
type motion struct {
	rng         *rand.Rand
	probability float64
}

func (m *motion) Next() string {
	return strconv.FormatBool(m.rng.Float64() < m.probability)
}

// motionProbability is the chance a motion sensor reports movement on a tick.
const motionProbability = 0.2

// NewGenerator returns the reading generator for a sensor type, or nil for
// actuators.
func NewGenerator(t device.Type, rng *rand.Rand) Generator {
	switch t {
	case device.TypeThermometer:
		return &walk{rng: rng, value: 21, lo: 10, hi: 35, step: 0.5, decimals: 1}
	case device.TypeHygrometer:
		return &walk{rng: rng, value: 45, lo: 15, hi: 95, step: 2, decimals: 0}
	case device.TypePhotometer:
		return &walk{rng: rng, value: 300, lo: 0, hi: 1000, step: 40, decimals: 0}
	case device.TypeMotionSensor:
		return &motion{rng: rng, probability: motionProbability}
	default:
		return nil
	}
}
