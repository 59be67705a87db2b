package observation

// Observation is one raw row handed over by the data source.  Value keeps
// whatever scalar the source produced (text, number or nil) and may be a
// sentinel such as "n/a".
type Observation struct {
	Country       string `json:"country"`
	IndicatorName string `json:"indicator_name"`
	Category      string `json:"category,omitempty"`
	Value         any    `json:"value"`
	Year          int    `json:"year"`
	Unit          string `json:"unit,omitempty"`
}

// CleanObservation is an Observation whose value was coerced to a finite
// float64.
type CleanObservation struct {
	Country       string  `json:"country"`
	IndicatorName string  `json:"indicator_name"`
	Category      string  `json:"category,omitempty"`
	Value         float64 `json:"value"`
	Year          int     `json:"year"`
	Unit          string  `json:"unit,omitempty"`
}

// key identifies the (country, indicator) pair an observation belongs to.
type key struct {
	country   string
	indicator string
}

func (o Observation) key() key { return key{country: o.Country, indicator: o.IndicatorName} }

//Personal.AI order the ending
