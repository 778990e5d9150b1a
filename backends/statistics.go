package backends

import (
	"math"
	"time"

	"github.com/enkorde/enkorde/util/safeconv"
)

type timings struct {
	NumCalls uint64
	TotalNS  uint64
}

type Statistics struct {
	TokenizerTotalTime      time.Duration
	TokenizerExecutionCount uint64
	TokenizerAvgQueryTime   time.Duration
}

func (p *Statistics) ComputeTokenizerStatistics(timings *timings) {
	p.TokenizerTotalTime = safeconv.U64ToDuration(timings.TotalNS)
	p.TokenizerExecutionCount = timings.NumCalls
	p.TokenizerAvgQueryTime = time.Duration(float64(timings.TotalNS) /
		math.Max(1, float64(timings.NumCalls)))
}

// GetStatistics returns the tokenizer running statistics.
func (t *Tokenizer) GetStatistics() Statistics {
	statistics := Statistics{}
	if t.TokenizerTimings != nil {
		statistics.ComputeTokenizerStatistics(t.TokenizerTimings)
	}
	return statistics
}
