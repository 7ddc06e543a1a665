// Copyright 2025 Alibaba Group Holding Ltd.
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

package fixture

import (
	"math/rand/v2"
	"strings"
	"time"
)

const (
	// NameLength is the length of every generated file and directory name.
	NameLength = 8
	// FileExt is appended to generated file names.
	FileExt = ".txt"

	nameAlphabet    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	contentAlphabet = nameAlphabet + " \n"
)

// Rand is the randomness source threaded through generation and mutation.
// It is not safe for concurrent use.
type Rand struct {
	r *rand.Rand
}

// RandomSeed returns a time-based seed for runs that did not ask for one.
func RandomSeed() uint64 {
	return uint64(time.Now().UnixNano())
}

// NewRand returns a source seeded with seed. Equal seeds give equal sequences,
// zero included.
func NewRand(seed uint64) *Rand {
	return &Rand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// IntN returns a uniform int in [0, n).
func (r *Rand) IntN(n int) int {
	return r.r.IntN(n)
}

// IntRange returns a uniform int in the inclusive range [lo, hi].
func (r *Rand) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.r.IntN(hi-lo+1)
}

// Bool is a fair coin.
func (r *Rand) Bool() bool {
	return r.r.IntN(2) == 0
}

// Name returns a random alphanumeric name of NameLength characters.
func (r *Rand) Name() string {
	return r.pick(nameAlphabet, NameLength)
}

// FileName returns a random name carrying FileExt.
func (r *Rand) FileName() string {
	return r.Name() + FileExt
}

// Content returns kib KiB of random printable characters.
func (r *Rand) Content(kib int) []byte {
	return []byte(r.pick(contentAlphabet, kib*1024))
}

func (r *Rand) pick(alphabet string, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[r.r.IntN(len(alphabet))])
	}
	return sb.String()
}
