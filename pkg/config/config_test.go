package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 5*time.Second, cfg.Database.QueryTimeout)
	assert.Equal(t, "20", cfg.Scoring.DefaultWeights["CHALLENGES"])
	assert.Equal(t, "85", cfg.Scoring.TierThresholds["PLATINUM"])
	assert.Equal(t, 4, cfg.Cascade.Workers)
}

func TestSplitPairs(t *testing.T) {
	pairs := splitPairs(" platinum:28.5, gold : 25.5 ,broken,:1")
	assert.Equal(t, map[string]string{"PLATINUM": "28.5", "GOLD": "25.5"}, pairs)
	assert.Empty(t, splitPairs(""))
}
