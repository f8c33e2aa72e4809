package config

import "fmt"

// CurrentVersion is the newest configuration format this build reads. A
// file without a version is read as CurrentVersion.
const CurrentVersion = 1

// VersionError reports a configuration file this build cannot read.
type VersionError struct {
	Version int
}

func (e *VersionError) Error() string {
	if e.Version > CurrentVersion {
		return fmt.Sprintf("config version %d needs a newer sitechat (this build reads version %d)", e.Version, CurrentVersion)
	}
	return fmt.Sprintf("config version %d is unsupported", e.Version)
}

// ValidateVersion rejects versions other than 0 and CurrentVersion.
func ValidateVersion(v int) error {
	if v != 0 && v != CurrentVersion {
		return &VersionError{Version: v}
	}
	return nil
}
