package enhancer

// cableSizeSteps maps an upper power bound to a copper conductor size for a
// 400 V three-phase feeder on tray. Only synthesized cables use it.
var cableSizeSteps = []struct {
	maxKW   float64
	sizeMM2 float64
}{
	{2.2, 2.5},
	{4, 4},
	{7.5, 6},
	{11, 10},
	{15, 16},
	{22, 25},
	{30, 35},
	{37, 50},
	{55, 70},
	{75, 95},
	{90, 120},
	{110, 150},
	{132, 185},
	{160, 240},
	{200, 300},
}

// EstimateCableSize returns a heuristic conductor size for a load's power.
func EstimateCableSize(powerKW float64) float64 {
	if powerKW <= 0 {
		return cableSizeSteps[0].sizeMM2
	}
	for _, s := range cableSizeSteps {
		if powerKW <= s.maxKW {
			return s.sizeMM2
		}
	}
	return 400
}
