/*
 *  Copyright (c) 2011 NeuStar, Inc.
 *  All rights reserved.
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 */

package kafkacore

import "sync"

// debugLevels is the process-wide debug-level dictionary of spec.md
// §5/§9: diagnostics only, no semantic effect on protocol behavior.
var (
	debugMu     sync.RWMutex
	debugLevels = map[string]int{}
)

// SetDebugLevel records the debug verbosity for the named facility
// (e.g. "transport", "connection"), to be read back with DebugLevel.
// Nothing else in this package reads the table, so it never changes
// protocol behavior or what the Connection logs.
func SetDebugLevel(facility string, level int) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debugLevels[facility] = level
}

// DebugLevel returns the current debug level for a facility, 0 if
// unset.
func DebugLevel(facility string) int {
	debugMu.RLock()
	defer debugMu.RUnlock()
	return debugLevels[facility]
}
