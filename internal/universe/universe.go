// Package universe holds the static market tables: the sector-analysis symbol
// universe, the security id lookup and the popular tickers used for trending.
// A Universe is built once at startup and shared read-only.
package universe

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// OthersSector is the bucket for security ids missing from the sector table
const OthersSector = "Others"

//go:embed universe.toml
var builtin []byte

// Instrument is one NSE_EQ security in the sector-analysis universe
type Instrument struct {
	SecurityID string `toml:"security_id" yaml:"security_id"`
	Symbol     string `toml:"symbol" yaml:"symbol"`
	Name       string `toml:"name" yaml:"name"`
	Sector     string `toml:"sector" yaml:"sector"`
}

// file is the on-disk shape shared by the TOML and YAML forms
type file struct {
	Instruments []Instrument      `toml:"instruments" yaml:"instruments"`
	SecurityIDs map[string]string `toml:"security_ids" yaml:"security_ids"`
	Popular     []string          `toml:"popular" yaml:"popular"`
}

// Universe is an immutable set of lookup tables
type Universe struct {
	instruments []Instrument
	byID        map[string]Instrument
	securityIDs map[string]string
	popular     []string
}

var (
	defaultOnce     sync.Once
	defaultUniverse *Universe
)

// Default returns the built-in universe. It panics if the embedded table is invalid,
// which only a broken build can cause.
func Default() *Universe {
	defaultOnce.Do(func() {
		u, err := parse(builtin, ".toml")
		if err != nil {
			panic(fmt.Sprintf("universe: invalid embedded table: %v", err))
		}
		defaultUniverse = u
	})
	return defaultUniverse
}

// LoadFile loads a replacement universe from a .toml, .yaml or .yml file
func LoadFile(path string) (*Universe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read universe file %s: %w", path, err)
	}
	u, err := parse(data, strings.ToLower(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("universe file %s: %w", path, err)
	}
	return u, nil
}

func parse(data []byte, ext string) (*Universe, error) {
	var f file
	switch ext {
	case ".toml":
		if err := toml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported universe file extension %q", ext)
	}
	return New(f.Instruments, f.SecurityIDs, f.Popular)
}

// New validates and builds a universe. Instruments keep their order; every
// instrument needs a security id and ids must be unique.
func New(instruments []Instrument, securityIDs map[string]string, popular []string) (*Universe, error) {
	if len(instruments) == 0 {
		return nil, errors.New("universe has no instruments")
	}

	u := &Universe{
		instruments: make([]Instrument, 0, len(instruments)),
		byID:        make(map[string]Instrument, len(instruments)),
		securityIDs: make(map[string]string, len(securityIDs)),
		popular:     append([]string(nil), popular...),
	}

	for i, inst := range instruments {
		inst.SecurityID = strings.TrimSpace(inst.SecurityID)
		if inst.SecurityID == "" {
			return nil, fmt.Errorf("instrument %d (%s) has no security id", i, inst.Symbol)
		}
		if _, dup := u.byID[inst.SecurityID]; dup {
			return nil, fmt.Errorf("duplicate security id %s", inst.SecurityID)
		}
		if inst.Sector == "" {
			inst.Sector = OthersSector
		}
		if inst.Name == "" {
			inst.Name = inst.Symbol
		}
		u.instruments = append(u.instruments, inst)
		u.byID[inst.SecurityID] = inst
	}

	for ticker, id := range securityIDs {
		u.securityIDs[strings.ToUpper(ticker)] = id
	}

	return u, nil
}

// Instruments returns a copy of the ordered symbol universe
func (u *Universe) Instruments() []Instrument {
	return append([]Instrument(nil), u.instruments...)
}

// Instrument looks up an instrument by security id. Unknown ids get a
// placeholder named Stock_<id> in the Others sector.
func (u *Universe) Instrument(securityID string) Instrument {
	if inst, ok := u.byID[securityID]; ok {
		return inst
	}
	placeholder := "Stock_" + securityID
	return Instrument{SecurityID: securityID, Symbol: placeholder, Name: placeholder, Sector: OthersSector}
}

// SectorOf returns the sector of a security id, or Others
func (u *Universe) SectorOf(securityID string) string {
	return u.Instrument(securityID).Sector
}

// NameOf returns the display name of a security id, or Stock_<id>
func (u *Universe) NameOf(securityID string) string {
	return u.Instrument(securityID).Name
}

// SecurityIDs returns a copy of the ticker to security id table
func (u *Universe) SecurityIDs() map[string]string {
	out := make(map[string]string, len(u.securityIDs))
	for k, v := range u.securityIDs {
		out[k] = v
	}
	return out
}

// Popular returns the tickers ranked by the trending endpoint
func (u *Universe) Popular() []string {
	return append([]string(nil), u.popular...)
}

// Sectors returns the distinct mapped sector names, sorted
func (u *Universe) Sectors() []string {
	seen := make(map[string]struct{})
	for _, inst := range u.instruments {
		seen[inst.Sector] = struct{}{}
	}
	sectors := make([]string, 0, len(seen))
	for s := range seen {
		sectors = append(sectors, s)
	}
	sort.Strings(sectors)
	return sectors
}
