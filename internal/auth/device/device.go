// Package device derives session device metadata from User-Agent
// strings: a human-readable display name and a stable fingerprint used
// to notice when a session's device changes.
package device

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mssola/useragent"
)

// Service computes device fingerprints. Binding can be disabled, in
// which case fingerprints are empty and never compared.
type Service struct {
	bindingEnabled bool
}

func NewService(bindingEnabled bool) *Service {
	return &Service{bindingEnabled: bindingEnabled}
}

// ParseUserAgent renders a display name like "Chrome on Mac OS X" for
// session listings. Unparseable agents degrade to generic labels, never
// to the raw header.
func ParseUserAgent(rawUA string) string {
	if strings.TrimSpace(rawUA) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(rawUA)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	platform := platformName(ua)
	if platform == "" {
		platform = "Unknown OS"
	}

	return strings.Join(strings.Fields(browser+" on "+platform), " ")
}

// ComputeFingerprint hashes the browser identity (name and major
// version) and OS into a SHA-256 hex digest. Minor and patch browser
// updates keep the fingerprint stable; a major version bump or an OS
// change rotates it.
func (s *Service) ComputeFingerprint(rawUA string) string {
	if !s.bindingEnabled {
		return ""
	}

	ua := useragent.New(rawUA)
	browser, version := ua.Browser()
	osInfo := ua.OSInfo()

	parts := []string{
		browser,
		majorVersion(version),
		osInfo.Name,
		ua.Platform(),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// CompareFingerprints reports whether the current fingerprint matches
// the stored one and whether the device drifted.
func (s *Service) CompareFingerprints(stored, current string) (matched bool, drift bool) {
	matched = stored == current
	return matched, !matched
}

// platformName prefers the device platform for mobile agents (iPhone,
// Android handsets) and the OS name for desktops.
func platformName(ua *useragent.UserAgent) string {
	if ua.Mobile() {
		if p := ua.Platform(); p != "" {
			return p
		}
	}
	if name := ua.OSInfo().Name; name != "" {
		return name
	}
	return ua.Platform()
}

// majorVersion truncates "120.0.6099.109" to "120".
func majorVersion(v string) string {
	if i := strings.IndexByte(v, '.'); i >= 0 {
		return v[:i]
	}
	return v
}
