package world

import "math"

// CycleFraction maps elapsed seconds onto [0,1) of the day/night cycle.
func CycleFraction(elapsed, daySeconds float64) float64 {
	if daySeconds <= 0 {
		return 0
	}
	f := math.Mod(elapsed, daySeconds) / daySeconds
	if f < 0 {
		f += 1
	}
	return f
}

// LightLevel is the renderer's tint multiplier for a cycle fraction: full
// light at noon (0.25), dimmest at midnight (0.75), never below minLight.
func LightLevel(fraction float64) float64 {
	const minLight = 0.2
	v := 0.5 + 0.5*math.Sin(2*math.Pi*fraction)
	return minLight + (1-minLight)*v
}

func (w *World) Cycle() float64 {
	return CycleFraction(w.elapsed, w.cfg.Tuning.DaySeconds)
}

func (w *World) Elapsed() float64 { return w.elapsed }
