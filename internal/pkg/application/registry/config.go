package registry

import (
	"fmt"
	"io"
	"regexp"

	yaml "gopkg.in/yaml.v2"
)

var kindPattern = regexp.MustCompile("^[A-Za-z][A-Za-z0-9]*$")

type KindInfo struct {
	Name string `yaml:"name"`
}

type Tenant struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Kinds []KindInfo `yaml:"kinds"`
}

type Config struct {
	Tenants []Tenant `yaml:"tenants"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)

	return cfg, err
}

// DefaultConfiguration allows any kind under a single default tenant.
func DefaultConfiguration() *Config {
	return &Config{
		Tenants: []Tenant{{ID: "default", Name: "Default"}},
	}
}

// allows checks that the tenant is known and that the kind is valid and,
// when the tenant declares a kind list, registered for that tenant.
func (cfg *Config) allows(tenant, kind string) error {
	if !kindPattern.MatchString(kind) {
		return NewBadRequestDataError(fmt.Sprintf("invalid record kind %q", kind))
	}

	for _, t := range cfg.Tenants {
		if t.ID != tenant {
			continue
		}

		if len(t.Kinds) == 0 {
			return nil
		}

		for _, k := range t.Kinds {
			if k.Name == kind {
				return nil
			}
		}

		return NewBadRequestDataError(
			fmt.Sprintf("kind %s is not registered for tenant %s", kind, tenant),
		)
	}

	return NewUnknownTenantError(tenant)
}
