// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package vecq

// RaceEnabled is true when the race detector is active.
// Used by tests to skip concurrent tests that hand payload memory through
// fields guarded by atomix memory orderings, which the detector cannot
// observe and reports as false positives.
const RaceEnabled = true
