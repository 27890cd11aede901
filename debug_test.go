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

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDebugLevelDefaultsToZero(t *testing.T) {
	require.Equal(t, 0, DebugLevel("never-set-facility"))
}

func TestSetDebugLevelRoundTrips(t *testing.T) {
	SetDebugLevel("transport", 3)
	defer SetDebugLevel("transport", 0)
	require.Equal(t, 3, DebugLevel("transport"))
}
