package quality

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreLengthBonus(t *testing.T) {
	s := NewScorer(DefaultConfig())

	// 比例 5/6，无术语
	assert.InDelta(t, 0.8, s.Score("hello", "world!"), 1e-9)
	// 比例过低，只有基础分
	assert.InDelta(t, 0.7, s.Score("hi", "a much longer sentence"), 1e-9)
}

func TestScoreEmptyTranslation(t *testing.T) {
	s := NewScorer(DefaultConfig())
	assert.Zero(t, s.Score("技術力", ""))
	assert.Zero(t, s.Score("技術力", "   "))
}

func TestScoreTermAccuracy(t *testing.T) {
	s := NewScorer(DefaultConfig())

	translated := s.Score("Leadership", "リーダーシップ")
	untranslated := s.Score("Leadership", "Leadership")

	// 术语已翻译：0.8*0.8 + 1*0.2
	assert.InDelta(t, 0.84, translated, 1e-9)
	// 术语原样保留：0.8*0.8 + 0*0.2
	assert.InDelta(t, 0.64, untranslated, 1e-9)
	assert.Greater(t, translated, untranslated)
}

func TestScoreDeterministic(t *testing.T) {
	s := NewScorer(DefaultConfig())
	first := s.Score("目標を達成した", "Achieved the goal")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Score("目標を達成した", "Achieved the goal"))
	}
}

func TestScoreRange(t *testing.T) {
	configs := []Config{
		DefaultConfig(),
		{BaseScore: 0.95, LengthBonus: 0.3, MinLengthRatio: 0, MaxLengthRatio: 2, TermWeight: 0.5},
		{BaseScore: -0.2, LengthBonus: 0.1, MinLengthRatio: 0.5, MaxLengthRatio: 2, TermWeight: 0},
	}
	alphabet := []rune("abc 技術評価目標 đánh giá goal KPI")
	r := rand.New(rand.NewSource(42))
	randomText := func() string {
		n := r.Intn(40)
		var sb strings.Builder
		for i := 0; i < n; i++ {
			sb.WriteRune(alphabet[r.Intn(len(alphabet))])
		}
		return sb.String()
	}

	for _, c := range configs {
		s := NewScorer(c)
		for i := 0; i < 500; i++ {
			score := s.Score(randomText(), randomText())
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

func TestBucket(t *testing.T) {
	s := NewScorer(DefaultConfig())
	assert.Equal(t, BucketHigh, s.Bucket(1.0))
	assert.Equal(t, BucketHigh, s.Bucket(0.8))
	assert.Equal(t, BucketMedium, s.Bucket(0.79))
	assert.Equal(t, BucketMedium, s.Bucket(0.5))
	assert.Equal(t, BucketLow, s.Bucket(0.49))
}

func TestDetectTermsCustom(t *testing.T) {
	s := NewScorer(Config{BaseScore: 0.7, Terms: []string{" Safety ", "", "KPI"}})
	assert.Equal(t, []string{"safety", "kpi"}, s.DetectTerms("Safety KPI review"))
	assert.Empty(t, s.DetectTerms("nothing here"))
}
