// From https://github.com/reproducible-containers/repro-get/blob/v0.4.0/pkg/envutil/envutil.go

// Copyright 2025 venslabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package envutil

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"log/slog"
)

func Bool(envName string, defaultValue bool) bool {
	v, ok := os.LookupEnv(envName)
	if !ok {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn(fmt.Sprintf("Failed to parse %q ($%s) as a boolean: %v", v, envName, err))
		return defaultValue
	}
	return b
}

func String(envName, defaultValue string) string {
	if v, ok := os.LookupEnv(envName); ok && v != "" {
		return v
	}
	return defaultValue
}

// Duration accepts Go durations ("90s") and plain integers, read as seconds.
func Duration(envName string, defaultValue time.Duration) time.Duration {
	v, ok := os.LookupEnv(envName)
	if !ok || v == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn(fmt.Sprintf("Failed to parse %q ($%s) as a duration: %v", v, envName, err))
		return defaultValue
	}
	return d
}
