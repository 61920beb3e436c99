package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// TeamLimits caps team growth. Zero means unlimited.
type TeamLimits struct {
	MaxMembers        int `mapstructure:"maxMembers"`
	MaxPendingInvites int `mapstructure:"maxPendingInvites"`
}

func DefaultTeamLimits() TeamLimits {
	return TeamLimits{
		MaxMembers:        100,
		MaxPendingInvites: 25,
	}
}

// LimitsHolder exposes the current limits and swaps them atomically on
// config file changes.
type LimitsHolder struct {
	current atomic.Value // holds TeamLimits
}

func NewLimitsHolder() (*LimitsHolder, error) {
	v := viper.New()

	v.SetConfigName("limits")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/teamlane")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TEAMLANE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultTeamLimits()
		v.SetDefault("team.maxMembers", defaults.MaxMembers)
		v.SetDefault("team.maxPendingInvites", defaults.MaxPendingInvites)
	}

	var limits TeamLimits
	if err := v.UnmarshalKey("team", &limits); err != nil {
		return nil, err
	}
	if err := validateTeamLimits(limits); err != nil {
		return nil, err
	}

	holder := &LimitsHolder{}
	holder.current.Store(limits)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated TeamLimits
		if err := v.UnmarshalKey("team", &updated); err != nil {
			log.Printf("[limits-config] reload failed: %v", err)
			return
		}
		if err := validateTeamLimits(updated); err != nil {
			log.Printf("[limits-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
	})

	return holder, nil
}

func (h *LimitsHolder) Current() TeamLimits {
	if h == nil {
		return DefaultTeamLimits()
	}
	if limits, ok := h.current.Load().(TeamLimits); ok {
		return limits
	}
	return DefaultTeamLimits()
}

// Store replaces the active limits. Intended for tests.
func (h *LimitsHolder) Store(limits TeamLimits) {
	h.current.Store(limits)
}

func validateTeamLimits(limits TeamLimits) error {
	if limits.MaxMembers < 0 || limits.MaxPendingInvites < 0 {
		return errors.New("team limits must not be negative")
	}
	return nil
}
