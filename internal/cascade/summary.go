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

package cascade

import "fmt"

// Risk 风险等级
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// NoChainsMessage 没有任何链达到置信度时的固定提示
const NoChainsMessage = "No error cascades predicted"

// Summary 预测摘要
type Summary struct {
	Message            string  `json:"message"`
	Risk               Risk    `json:"risk"`
	TopChain           *Chain  `json:"top_chain,omitempty"`
	AverageProbability float64 `json:"average_probability"`
	MaxChainLength     int     `json:"max_chain_length"`
}

// Summarize 由已排序的链列表生成摘要，chains[0] 视为最可能的级联
func Summarize(chains []Chain) Summary {
	if len(chains) == 0 {
		return Summary{Message: NoChainsMessage, Risk: RiskLow}
	}
	var sum float64
	maxLen := 0
	for _, c := range chains {
		sum += c.Probability
		if c.Length > maxLen {
			maxLen = c.Length
		}
	}
	avg := sum / float64(len(chains))
	risk := ClassifyRisk(avg, maxLen)
	top := chains[0]
	return Summary{
		Message: fmt.Sprintf("%d potential error cascade(s) predicted, most likely %s (probability %.2f, %s risk)",
			len(chains), top.String(), top.Probability, risk),
		Risk:               risk,
		TopChain:           &top,
		AverageProbability: avg,
		MaxChainLength:     maxLen,
	}
}

// ClassifyRisk high: 平均概率 > 0.8 或最长链 > 3；medium: 平均概率 > 0.6 或最长链 > 2
func ClassifyRisk(avgProbability float64, maxChainLength int) Risk {
	switch {
	case avgProbability > 0.8 || maxChainLength > 3:
		return RiskHigh
	case avgProbability > 0.6 || maxChainLength > 2:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Confidence 按链长加权的平均概率：Σ(p·len) / Σlen，无链时为 0
func Confidence(chains []Chain) float64 {
	var weighted, lengths float64
	for _, c := range chains {
		weighted += c.Probability * float64(c.Length)
		lengths += float64(c.Length)
	}
	if lengths == 0 {
		return 0
	}
	return weighted / lengths
}
