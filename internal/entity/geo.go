package entity

// GeoProfile: todos os campos são opcionais; string vazia significa "desconhecido".
type GeoProfile struct {
	AreaCode           string `json:"area_code,omitempty"`
	CountryCallingCode string `json:"country_calling_code,omitempty"`
	StateCode          string `json:"state_code,omitempty"`
	CityName           string `json:"city_name,omitempty"`
	Country            string `json:"country,omitempty"`
	Continent          string `json:"continent,omitempty"`
	Region             string `json:"region,omitempty"`
	Timezone           string `json:"timezone,omitempty"`
	StateFullName      string `json:"state_full_name,omitempty"`
}

func (p GeoProfile) IsEmpty() bool {
	return p == GeoProfile{}
}

// AreaCodeEntry é indexado pelo DDD de 2 dígitos.
type AreaCodeEntry struct {
	StateCode     string `json:"state_code" yaml:"state_code"`
	CityName      string `json:"city_name" yaml:"city_name"`
	Region        string `json:"region" yaml:"region"`
	StateFullName string `json:"state_full_name" yaml:"state_full_name"`
}

// CountryCodeEntry é indexado pelo DDI com "+" (ex: "+55").
type CountryCodeEntry struct {
	Country   string `json:"country" yaml:"country"`
	Continent string `json:"continent" yaml:"continent"`
	Timezone  string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Language  string `json:"language,omitempty" yaml:"language,omitempty"`
}

type DistributionStats struct {
	ByState     map[string]int `json:"by_state"`
	ByCountry   map[string]int `json:"by_country"`
	ByRegion    map[string]int `json:"by_region"`
	ByContinent map[string]int `json:"by_continent"`
}
