// Package geo resolve telefones em perfis geográficos a partir das tabelas de DDD e DDI.
//
// O Resolver não guarda estado mutável: pode ser compartilhado entre goroutines.
package geo

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/xavierca1/diag-leads/internal/entity"
)

const (
	// DefaultHomeCallingCode é o país de implantação (Brasil).
	DefaultHomeCallingCode = "+55"

	// "+" seguido de até 4 dígitos
	maxCallingCodeLen = 5
	areaCodeLen       = 2
)

type Resolver struct {
	tables   Tables
	homeCode string
	home     entity.CountryCodeEntry
}

func NewResolver(tables Tables, homeCallingCode string) (*Resolver, error) {
	home, ok := tables.CountryCodes[homeCallingCode]
	if !ok {
		return nil, eris.Errorf("geo: home calling code %q not present in country table", homeCallingCode)
	}
	return &Resolver{
		tables:   tables,
		homeCode: homeCallingCode,
		home:     home,
	}, nil
}

// NewDefaultResolver usa as tabelas embutidas e o Brasil como país de origem.
func NewDefaultResolver() (*Resolver, error) {
	tables, err := DefaultTables()
	if err != nil {
		return nil, err
	}
	return NewResolver(tables, DefaultHomeCallingCode)
}

// Open carrega as tabelas de tablesPath (vazio = embutidas) e monta o resolver.
func Open(tablesPath, homeCallingCode string) (*Resolver, error) {
	if homeCallingCode == "" {
		homeCallingCode = DefaultHomeCallingCode
	}
	if tablesPath == "" {
		tables, err := DefaultTables()
		if err != nil {
			return nil, err
		}
		return NewResolver(tables, homeCallingCode)
	}
	tables, err := LoadTablesFile(tablesPath)
	if err != nil {
		return nil, err
	}
	return NewResolver(tables, homeCallingCode)
}

func (r *Resolver) HomeCallingCode() string {
	return r.homeCode
}

// Normalize mantém só dígitos e um "+" inicial.
func Normalize(raw string) string {
	var b strings.Builder
	for _, c := range raw {
		switch {
		case c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '+' && b.Len() == 0:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// Resolve nunca falha: prefixo desconhecido devolve perfil vazio.
func (r *Resolver) Resolve(rawPhone string) entity.GeoProfile {
	normalized := Normalize(rawPhone)
	if strings.HasPrefix(normalized, "+") {
		return r.resolveInternational(normalized)
	}
	return r.resolveDomestic(normalized)
}

func (r *Resolver) resolveInternational(normalized string) entity.GeoProfile {
	code, entry, ok := r.matchCountryCode(normalized)
	if !ok {
		return entity.GeoProfile{}
	}

	profile := entity.GeoProfile{
		CountryCallingCode: code,
		Country:            entry.Country,
		Continent:          entry.Continent,
		Timezone:           entry.Timezone,
	}

	// Só o país de origem tem tabela de DDD
	if code == r.homeCode {
		if area, ok := r.matchAreaCode(normalized[len(code):]); ok {
			applyAreaCode(&profile, normalized[len(code):len(code)+areaCodeLen], area)
		}
	}
	return profile
}

func (r *Resolver) resolveDomestic(digits string) entity.GeoProfile {
	area, ok := r.matchAreaCode(digits)
	if !ok {
		return entity.GeoProfile{}
	}
	profile := entity.GeoProfile{
		Country:   r.home.Country,
		Continent: r.home.Continent,
	}
	applyAreaCode(&profile, digits[:areaCodeLen], area)
	return profile
}

// matchCountryCode tenta o prefixo mais longo primeiro (+NNNN, +NNN, +NN, +N).
func (r *Resolver) matchCountryCode(normalized string) (string, entity.CountryCodeEntry, bool) {
	for size := maxCallingCodeLen; size >= 2; size-- {
		if len(normalized) < size {
			continue
		}
		candidate := normalized[:size]
		if entry, ok := r.tables.CountryCodes[candidate]; ok {
			return candidate, entry, true
		}
	}
	return "", entity.CountryCodeEntry{}, false
}

func (r *Resolver) matchAreaCode(digits string) (entity.AreaCodeEntry, bool) {
	if len(digits) < areaCodeLen {
		return entity.AreaCodeEntry{}, false
	}
	entry, ok := r.tables.AreaCodes[digits[:areaCodeLen]]
	return entry, ok
}

func applyAreaCode(p *entity.GeoProfile, code string, area entity.AreaCodeEntry) {
	p.AreaCode = code
	p.StateCode = area.StateCode
	p.CityName = area.CityName
	p.Region = area.Region
	p.StateFullName = area.StateFullName
}

// IsValidDomesticNumber exige 10 ou 11 dígitos e DDD conhecido.
func (r *Resolver) IsValidDomesticNumber(rawPhone string) bool {
	digits := digitsOnly(Normalize(rawPhone))
	if len(digits) != 10 && len(digits) != 11 {
		return false
	}
	_, ok := r.matchAreaCode(digits)
	return ok
}

// FormatDomestic devolve (AA) NNNN-NNNN ou (AA) NNNNN-NNNN; qualquer outro tamanho
// (ou número com "+") volta intacto.
func (r *Resolver) FormatDomestic(rawPhone string) string {
	normalized := Normalize(rawPhone)
	if strings.HasPrefix(normalized, "+") {
		return rawPhone
	}
	digits := normalized
	switch len(digits) {
	case 10:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:6], digits[6:])
	case 11:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:7], digits[7:])
	default:
		return rawPhone
	}
}

// Distribution conta, por campo, os perfis que o resolveram. Campos ausentes não geram bucket.
func (r *Resolver) Distribution(phones []string) entity.DistributionStats {
	stats := entity.DistributionStats{
		ByState:     map[string]int{},
		ByCountry:   map[string]int{},
		ByRegion:    map[string]int{},
		ByContinent: map[string]int{},
	}
	for _, phone := range phones {
		p := r.Resolve(phone)
		increment(stats.ByState, p.StateCode)
		increment(stats.ByCountry, p.Country)
		increment(stats.ByRegion, p.Region)
		increment(stats.ByContinent, p.Continent)
	}
	return stats
}

func increment(m map[string]int, key string) {
	if key != "" {
		m[key]++
	}
}
