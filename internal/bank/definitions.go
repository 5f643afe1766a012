package bank

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nhle/goal-guardian/internal/model"
)

//go:embed banks.yaml
var builtinBanks []byte

// Definition describes one bank's notification format.
type Definition struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Sender string `yaml:"sender"`

	ThousandsSeparator string `yaml:"thousands_separator"`
	DecimalSeparator   string `yaml:"decimal_separator"`

	// DateLayouts are Go time layouts tried in order.
	DateLayouts []string `yaml:"date_layouts"`

	Patterns []PatternDefinition `yaml:"patterns"`
}

// PatternDefinition is one message shape. Regex must define the named
// groups "amount" and "date" and may define "description".
type PatternDefinition struct {
	Direction model.Direction `yaml:"direction"`
	Regex     string          `yaml:"regex"`
}

type definitionFile struct {
	Banks []Definition `yaml:"banks"`
}

// ParseDefinitions decodes a YAML document with a top-level "banks" list.
func ParseDefinitions(r io.Reader) ([]Definition, error) {
	var file definitionFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding bank definitions: %w", err)
	}
	for i := range file.Banks {
		if err := file.Banks[i].validate(); err != nil {
			return nil, err
		}
	}
	return file.Banks, nil
}

// LoadDefinitionsFile reads bank definitions from a YAML file.
func LoadDefinitionsFile(path string) ([]Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening bank definitions: %w", err)
	}
	defer f.Close()

	defs, err := ParseDefinitions(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

// BuiltinDefinitions returns the bank formats shipped with the binary.
func BuiltinDefinitions() ([]Definition, error) {
	return ParseDefinitions(strings.NewReader(string(builtinBanks)))
}

func (d *Definition) validate() error {
	d.ID = normalizeID(d.ID)
	if d.ID == "" {
		return errors.New("bank definition without id")
	}
	if d.ThousandsSeparator == "" && d.DecimalSeparator == "" {
		d.ThousandsSeparator, d.DecimalSeparator = ",", "."
	}
	if d.DecimalSeparator == "" {
		return fmt.Errorf("bank %s: decimal_separator must be set", d.ID)
	}
	if d.ThousandsSeparator == d.DecimalSeparator {
		return fmt.Errorf("bank %s: thousands and decimal separators must differ", d.ID)
	}
	if len(d.DateLayouts) == 0 {
		return fmt.Errorf("bank %s: at least one date layout is required", d.ID)
	}
	if len(d.Patterns) == 0 {
		return fmt.Errorf("bank %s: at least one pattern is required", d.ID)
	}
	for i, p := range d.Patterns {
		if !p.Direction.Valid() {
			return fmt.Errorf("bank %s: pattern %d: invalid direction %q", d.ID, i, p.Direction)
		}
	}
	return nil
}
