package platform

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// CurrentConfigVersion is the config apiVersion written by this release.
const CurrentConfigVersion = "v1"

// VersionStatus is the lifecycle state of a config version.
type VersionStatus int

const (
	// VersionCurrent is an actively supported version.
	VersionCurrent VersionStatus = iota
	// VersionDeprecated still loads but logs a warning.
	VersionDeprecated
	// VersionRemoved no longer loads.
	VersionRemoved
)

// String returns a human-readable representation of the version status.
func (s VersionStatus) String() string {
	switch s {
	case VersionCurrent:
		return "current"
	case VersionDeprecated:
		return "deprecated"
	case VersionRemoved:
		return "removed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// VersionInfo describes a config apiVersion.
type VersionInfo struct {
	Version            string
	Status             VersionStatus
	DeprecationMessage string
	MigrationGuide     string
}

// VersionRegistry holds known config versions.
type VersionRegistry struct {
	versions map[string]VersionInfo
}

// NewVersionRegistry creates an empty version registry.
func NewVersionRegistry() *VersionRegistry {
	return &VersionRegistry{versions: make(map[string]VersionInfo)}
}

// Register adds or replaces a version.
func (r *VersionRegistry) Register(info VersionInfo) {
	r.versions[info.Version] = info
}

// Get returns the version info for version.
func (r *VersionRegistry) Get(version string) (VersionInfo, bool) {
	info, ok := r.versions[version]
	return info, ok
}

// ListSupported returns all non-removed versions, sorted.
func (r *VersionRegistry) ListSupported() []string {
	var supported []string
	for v, info := range r.versions {
		if info.Status != VersionRemoved {
			supported = append(supported, v)
		}
	}
	sort.Strings(supported)
	return supported
}

// DefaultRegistry returns the registry of versions this release loads.
func DefaultRegistry() *VersionRegistry {
	r := NewVersionRegistry()
	r.Register(VersionInfo{Version: CurrentConfigVersion, Status: VersionCurrent})
	return r
}

// PeekVersion extracts apiVersion from raw YAML without decoding the rest.
// A missing or unreadable field yields CurrentConfigVersion.
func PeekVersion(data []byte) string {
	var envelope struct {
		APIVersion string `yaml:"apiVersion"`
	}
	if err := yaml.Unmarshal(data, &envelope); err != nil || envelope.APIVersion == "" {
		return CurrentConfigVersion
	}
	return envelope.APIVersion
}

// resolveVersion rejects unknown and removed versions.
func resolveVersion(reg *VersionRegistry, version string) (VersionInfo, error) {
	info, ok := reg.Get(version)
	if !ok {
		return VersionInfo{}, fmt.Errorf(
			"unsupported config apiVersion %q; supported versions: %s",
			version, strings.Join(reg.ListSupported(), ", "),
		)
	}
	if info.Status == VersionRemoved {
		if info.MigrationGuide != "" {
			return VersionInfo{}, fmt.Errorf("config apiVersion %q has been removed; %s", version, info.MigrationGuide)
		}
		return VersionInfo{}, fmt.Errorf("config apiVersion %q has been removed", version)
	}
	return info, nil
}
