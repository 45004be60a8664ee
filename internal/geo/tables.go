package geo

import (
	"bytes"
	_ "embed"
	"io"
	"os"
	"regexp"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/xavierca1/diag-leads/internal/entity"
)

//go:embed data/tables.yaml
var defaultTablesYAML []byte

var (
	areaCodeKey    = regexp.MustCompile(`^[0-9]{2}$`)
	countryCodeKey = regexp.MustCompile(`^\+[0-9]{1,4}$`)
)

// Tables são os dados de referência (DDD e DDI). Somente leitura depois de carregadas.
type Tables struct {
	AreaCodes    map[string]entity.AreaCodeEntry    `yaml:"area_codes"`
	CountryCodes map[string]entity.CountryCodeEntry `yaml:"country_codes"`
}

// DefaultTables devolve as tabelas embutidas no binário.
func DefaultTables() (Tables, error) {
	return LoadTables(bytes.NewReader(defaultTablesYAML))
}

func LoadTablesFile(path string) (Tables, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tables{}, eris.Wrapf(err, "geo: open tables %s", path)
	}
	defer f.Close()
	return LoadTables(f)
}

func LoadTables(r io.Reader) (Tables, error) {
	var t Tables
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return Tables{}, eris.Wrap(err, "geo: decode tables")
	}
	if err := t.Validate(); err != nil {
		return Tables{}, err
	}
	return t, nil
}

// Validate garante o formato das chaves: DDD com 2 dígitos, DDI com "+" e 1 a 4 dígitos.
func (t Tables) Validate() error {
	for code := range t.AreaCodes {
		if !areaCodeKey.MatchString(code) {
			return eris.Errorf("geo: invalid area code key %q", code)
		}
	}
	for code := range t.CountryCodes {
		if !countryCodeKey.MatchString(code) {
			return eris.Errorf("geo: invalid country code key %q", code)
		}
	}
	return nil
}
