// Copyright 2026 fanjia1024
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

package signals

import (
	"context"
	"math"
	"time"

	"errcascade/pkg/errors"
)

// ExponentialDecay 按半衰期计算时间衰减：age=0 时为 1，每过一个半衰期减半
type ExponentialDecay struct {
	HalfLife time.Duration
	now      func() time.Time
}

// NewExponentialDecay 创建时间衰减服务，halfLife<=0 时使用 1h
func NewExponentialDecay(halfLife time.Duration) *ExponentialDecay {
	if halfLife <= 0 {
		halfLife = time.Hour
	}
	return &ExponentialDecay{HalfLife: halfLife, now: time.Now}
}

// WithClock 替换时钟，测试使用
func (d *ExponentialDecay) WithClock(now func() time.Time) *ExponentialDecay {
	d.now = now
	return d
}

// TemporalDecay 实现 cascade.DecayService，未来时间视为刚刚发生
func (d *ExponentialDecay) TemporalDecay(ctx context.Context, at time.Time) (float64, error) {
	if at.IsZero() {
		return 0, errors.ErrMissingTimestamp
	}
	age := d.now().Sub(at)
	if age <= 0 {
		return 1, nil
	}
	return math.Exp2(-float64(age) / float64(d.HalfLife)), nil
}
