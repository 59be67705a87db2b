package kohonen

// Quality is the ordinal training-quality label.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityFair      Quality = "fair"
	QualityPoor      Quality = "poor"
)

// qualityBand is an upper bound pair; a map reaches the band when both its
// quantization and topographic errors are strictly below it.
type qualityBand struct {
	label Quality
	maxQE float64
	maxTE float64
}

// qualityBands are checked in order; anything past the last band is poor.
var qualityBands = []qualityBand{
	{QualityExcellent, 0.5, 0.1},
	{QualityGood, 1.0, 0.2},
	{QualityFair, 2.0, 0.3},
}

// ClassifyQuality labels a map from its quantization error qe and
// topographic error te.
func ClassifyQuality(qe, te float64) Quality {
	for _, b := range qualityBands {
		if qe < b.maxQE && te < b.maxTE {
			return b.label
		}
	}
	return QualityPoor
}

//Personal.AI order the ending
