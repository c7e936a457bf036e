package domain

import "math"

// AmpsFromKW converts a power target to the per-phase current a charger
// expects, rounded to 0.1 A. A zero target maps to zero amps.
func AmpsFromKW(kw float64, voltagePerPhase float64, phaseCount int) float64 {
	if kw <= 0 || voltagePerPhase <= 0 || phaseCount <= 0 {
		return 0
	}
	amps := kw * 1000 / (voltagePerPhase * float64(phaseCount))
	return math.Round(amps*10) / 10
}
