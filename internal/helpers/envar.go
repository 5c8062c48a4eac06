// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"os"
	"strings"
)

// GetBoolEnv reads a boolean environment variable. "true", "1", "yes", "on"
// and "enabled" are true, their opposites are false, and an unset or empty
// variable yields defaultValue. Any other value is treated as true.
func GetBoolEnv(envVar string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(envVar))) {
	case "true", "1", "yes", "on", "enable", "enabled":
		return true
	case "false", "0", "no", "off", "disable", "disabled":
		return false
	case "":
		return defaultValue
	default:
		return true
	}
}

// DebugEnabled reports whether debug logging was requested with
// KARLD_DEBUG or DEBUG.
func DebugEnabled() bool {
	return GetBoolEnv("KARLD_DEBUG", false) || GetBoolEnv("DEBUG", false)
}

// OTLPEnabled reports whether logs and metrics should be exported over OTLP.
// It needs both ENABLE_OTLP_TELEMETRY and OTEL_SERVICE_NAME.
func OTLPEnabled() bool {
	return os.Getenv("OTEL_SERVICE_NAME") != "" && GetBoolEnv("ENABLE_OTLP_TELEMETRY", false)
}
