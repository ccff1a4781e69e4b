package config

import "fmt"

// MissingSettingError indicates an operation needs a setting the user has not supplied.
type MissingSettingError struct {
	Setting string
}

func (e *MissingSettingError) Error() string {
	return fmt.Sprintf("missing setting %s: add it to the config file or the settings panel", e.Setting)
}
