// Package config loads domain-participant configuration: a YAML file layer,
// environment-variable overrides, and CLI-flag overrides via viper/cobra,
// mirroring the teacher's config.yaml + env-override + flag-override layering.
package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// PortParams are the RTPS well-known port-mapping constants from spec.md §6.
type PortParams struct {
	PB, DG, PG, D0, D1, D2, D3 int
}

// DefaultPortParams are the RTPS 2.4 defaults.
var DefaultPortParams = PortParams{PB: 7400, DG: 250, PG: 2, D0: 0, D1: 10, D2: 1, D3: 11}

// SPDPMulticastPort returns the discovery multicast port for domainID.
func (p PortParams) SPDPMulticastPort(domainID int) int {
	return p.PB + p.DG*domainID + p.D0
}

// SPDPUnicastPort returns the discovery unicast port for domainID/participantID.
func (p PortParams) SPDPUnicastPort(domainID, participantID int) int {
	return p.PB + p.DG*domainID + p.D1 + p.PG*participantID
}

// UserMulticastPort returns the user-traffic multicast port for domainID.
func (p PortParams) UserMulticastPort(domainID int) int {
	return p.PB + p.DG*domainID + p.D2
}

// UserUnicastPort returns the user-traffic unicast port for domainID/participantID.
func (p PortParams) UserUnicastPort(domainID, participantID int) int {
	return p.PB + p.DG*domainID + p.D3 + p.PG*participantID
}

// DomainConfig is the subset of participant configuration read directly from
// a YAML file, before any flag/env override is applied — analogous to the
// teacher's LocalConfig for config.yaml.
type DomainConfig struct {
	DomainID            int           `yaml:"domain-id"`
	DomainTag           string        `yaml:"domain-tag"`
	ParticipantID       int           `yaml:"participant-id"`
	MetatrafficMulticast string       `yaml:"metatraffic-multicast-address"`
	LeaseDuration       time.Duration `yaml:"lease-duration"`
	AnnouncePeriod      time.Duration `yaml:"announce-period"`
	FragmentSize        uint32        `yaml:"fragment-size"`
	SweepPeriod         time.Duration `yaml:"sweep-period"`

	// Network, when true, exchanges SPDP/SEDP discovery and the user data
	// path over real UDP sockets (internal/transport) instead of only the
	// in-process DomainParticipantFactory shortcut. Defaults to false so
	// same-process tests keep their deterministic, socket-free behavior;
	// cmd/rtpsgo-probe enables it by default since that's the one binary
	// meant to run as two separate OS processes.
	Network bool `yaml:"network"`
}

// DefaultDomainConfig returns the built-in defaults per spec.md §4.5.1, §4.4.5,
// §5.
func DefaultDomainConfig() DomainConfig {
	return DomainConfig{
		DomainID:             0,
		MetatrafficMulticast: "239.255.0.1",
		LeaseDuration:        10 * time.Second,
		AnnouncePeriod:       5 * time.Second,
		FragmentSize:         64000,
		SweepPeriod:          50 * time.Millisecond,
	}
}

// LoadDomainConfig reads and parses a YAML config file. Returns the defaults
// (not an error) if the file doesn't exist or can't be parsed — matching the
// teacher's LoadLocalConfig resilience, since a missing config file is the
// common case for a first run.
func LoadDomainConfig(path string) DomainConfig {
	cfg := DefaultDomainConfig()
	data, err := os.ReadFile(path) // #nosec G304 -- path is operator supplied
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultDomainConfig()
	}
	return cfg
}

// ApplyEnvOverrides applies RTPSGO_* environment variable overrides on top of
// cfg, taking precedence over file values — mirroring the teacher's
// BEADS_SYNC_BRANCH override pattern.
func ApplyEnvOverrides(cfg DomainConfig) DomainConfig {
	v := viper.New()
	v.SetEnvPrefix("RTPSGO")
	v.AutomaticEnv()
	if s := v.GetString("DOMAIN_TAG"); s != "" {
		cfg.DomainTag = s
	}
	if v.IsSet("DOMAIN_ID") {
		if id := v.GetInt("DOMAIN_ID"); id != 0 {
			cfg.DomainID = id
		}
	}
	if v.IsSet("PARTICIPANT_ID") {
		cfg.ParticipantID = v.GetInt("PARTICIPANT_ID")
	}
	return cfg
}
