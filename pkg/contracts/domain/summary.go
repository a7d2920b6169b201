package domain

// Stats summarises one numeric column.
type Stats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Median float64 `json:"median"`
}

// ZoneShare is the fraction of a sounding's records falling in one soil zone.
type ZoneShare struct {
	Zone     int     `json:"zone"`
	Label    string  `json:"label"`
	Count    int     `json:"count"`
	Fraction float64 `json:"fraction"`
}

// SoundingSummary is the statistical overview shown next to the table.
type SoundingSummary struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Records      int         `json:"records"`
	ElevationTop float64     `json:"elevation_top"`
	ElevationBot float64     `json:"elevation_bottom"`
	Thickness    float64     `json:"thickness"`
	QC           Stats       `json:"qc"`
	Rf           Stats       `json:"rf"`
	SBT          Stats       `json:"sbt"`
	Zones        []ZoneShare `json:"zones"`
	// DominantZone is the zone holding the most records; 0 when empty.
	DominantZone int `json:"dominant_zone"`
}
