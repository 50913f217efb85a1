package table

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Delays are the host timings in milliseconds, before the speed multiplier.
type Delays struct {
	AutoStart   uint32 `yaml:"autoStart"`
	NextHand    uint32 `yaml:"nextHand"`
	BotThinkMin uint32 `yaml:"botThinkMin"`
	BotThinkMax uint32 `yaml:"botThinkMax"`
	IdleTimeout uint32 `yaml:"idleTimeout"`
}

func DefaultDelays() Delays {
	return Delays{
		AutoStart:   2000,
		NextHand:    5000,
		BotThinkMin: 800,
		BotThinkMax: 2200,
		IdleTimeout: 10 * 60 * 1000,
	}
}

// ParseDelayConfig reads a YAML delays file. Keys missing from the file keep their defaults.
func ParseDelayConfig(delaysFile string) (Delays, error) {
	data := DefaultDelays()
	bytes, err := os.ReadFile(delaysFile)
	if err != nil {
		return data, fmt.Errorf("error reading delay config file [%s]: %w", delaysFile, err)
	}
	if err := yaml.Unmarshal(bytes, &data); err != nil {
		return DefaultDelays(), fmt.Errorf("error parsing delays YAML file [%s]: %w", delaysFile, err)
	}
	if data.BotThinkMax < data.BotThinkMin {
		data.BotThinkMax = data.BotThinkMin
	}
	return data, nil
}

func ms(v uint32) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// botThink draws a think time between the configured bounds.
func (d Delays) botThink(rng *rand.Rand) time.Duration {
	spread := int64(d.BotThinkMax) - int64(d.BotThinkMin)
	if spread <= 0 {
		return ms(d.BotThinkMin)
	}
	return ms(d.BotThinkMin) + time.Duration(rng.Int63n(spread+1))*time.Millisecond
}
