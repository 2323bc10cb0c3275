// Package config provides the persisted controller configuration: the
// proportionality constant, the power threshold and per-radiator settings.
//
// The configuration lives in a single YAML file. A missing file is not an
// error: defaults are used and written back immediately.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Defaults applied to absent keys.
const (
	DefaultTemperatureConstant = 4.0
	DefaultPowerRequired       = 2000.0
	DefaultRadiatorPower       = 1000.0
)

// Radiator holds settings for one radiator.
type Radiator struct {
	// Power is the radiator's rated output in watts at full opening.
	Power float64 `yaml:"power"`

	// Included controls whether the radiator counts towards heat demand.
	Included bool `yaml:"included"`
}

// DefaultRadiator returns the settings given to a newly observed radiator.
func DefaultRadiator() Radiator {
	return Radiator{Power: DefaultRadiatorPower, Included: true}
}

// UnmarshalYAML fills absent keys with defaults.
func (r *Radiator) UnmarshalYAML(value *yaml.Node) error {
	type plain Radiator
	p := plain(DefaultRadiator())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*r = Radiator(p)
	return nil
}

// Config is the controller configuration document.
type Config struct {
	// TemperatureConstant is the setpoint error in °C that maps to a fully
	// open valve when a device does not report its position.
	TemperatureConstant float64 `yaml:"temperature_constant"`

	// PowerRequired is the aggregate radiator power in watts above which
	// the boiler is switched on.
	PowerRequired float64 `yaml:"power_required"`

	// Radiators maps device name to its settings.
	Radiators map[string]Radiator `yaml:"radiators"`
}

// Default returns a Config with default values and no radiators.
func Default() Config {
	return Config{
		TemperatureConstant: DefaultTemperatureConstant,
		PowerRequired:       DefaultPowerRequired,
		Radiators:           make(map[string]Radiator),
	}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	out.Radiators = make(map[string]Radiator, len(c.Radiators))
	for name, r := range c.Radiators {
		out.Radiators[name] = r
	}
	return out
}

// document is the on-disk form. Radiator entries are pointers so that a
// bare "name:" entry decodes to nil and takes the defaults.
type document struct {
	TemperatureConstant float64              `yaml:"temperature_constant"`
	PowerRequired       float64              `yaml:"power_required"`
	Radiators           map[string]*Radiator `yaml:"radiators"`
}

// Parse decodes a YAML document, filling absent keys with defaults.
func Parse(data []byte) (Config, error) {
	doc := document{
		TemperatureConstant: DefaultTemperatureConstant,
		PowerRequired:       DefaultPowerRequired,
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Config{
		TemperatureConstant: doc.TemperatureConstant,
		PowerRequired:       doc.PowerRequired,
		Radiators:           make(map[string]Radiator, len(doc.Radiators)),
	}
	for name, r := range doc.Radiators {
		if r == nil {
			cfg.Radiators[name] = DefaultRadiator()
			continue
		}
		cfg.Radiators[name] = *r
	}
	return cfg, nil
}

// Store owns the configuration and its file. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	path string
	cfg  Config

	writeMu sync.Mutex // serializes file writes
}

// Load reads the configuration at path. If the file does not exist the
// defaults are used and persisted; a failure to persist them is logged only.
func Load(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.cfg = Default()
		if err := s.Save(); err != nil {
			log.Printf("config: %v", err)
		} else {
			log.Printf("config: created %s with defaults", path)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	s.cfg = cfg
	return s, nil
}

// NewStore creates a Store around cfg without touching the file system
// until the first structural change.
func NewStore(path string, cfg Config) *Store {
	if cfg.Radiators == nil {
		cfg.Radiators = make(map[string]Radiator)
	}
	return &Store{path: path, cfg: cfg.Clone()}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns a deep copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// TemperatureConstant returns the current proportionality constant.
func (s *Store) TemperatureConstant() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.TemperatureConstant
}

// Observe makes sure name has a radiator entry. A new entry gets default
// settings and the file is rewritten. Reports whether an entry was created.
// Write failures are logged; the in-memory entry is kept regardless.
func (s *Store) Observe(name string) bool {
	s.mu.Lock()
	if _, ok := s.cfg.Radiators[name]; ok {
		s.mu.Unlock()
		return false
	}
	s.cfg.Radiators[name] = DefaultRadiator()
	s.mu.Unlock()

	log.Printf("config: new radiator %q (power=%.0fW included=true)", name, DefaultRadiatorPower)
	if err := s.Save(); err != nil {
		log.Printf("config: %v", err)
	}
	return true
}

// Save writes the current configuration to disk atomically via a temp file
// in the same directory. A Store without a path never writes.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	data, err := yaml.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
