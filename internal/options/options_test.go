package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Level int
	Name  string
	Calls []string
}

func withLevel(level int) Option[*testConfig] {
	return New(func(c *testConfig) error {
		if level < 1 || level > 9 {
			return errors.New("level out of range")
		}
		c.Level = level
		c.Calls = append(c.Calls, "level")

		return nil
	})
}

func withName(name string) Option[*testConfig] {
	return NoError(func(c *testConfig) {
		c.Name = name
		c.Calls = append(c.Calls, "name")
	})
}

func TestApply(t *testing.T) {
	t.Run("applies in order", func(t *testing.T) {
		cfg := &testConfig{}
		err := Apply(cfg, withName("lzma"), withLevel(7))
		require.NoError(t, err)
		require.Equal(t, 7, cfg.Level)
		require.Equal(t, "lzma", cfg.Name)
		require.Equal(t, []string{"name", "level"}, cfg.Calls)
	})

	t.Run("stops at first error", func(t *testing.T) {
		cfg := &testConfig{}
		err := Apply(cfg, withLevel(0), withName("never"))
		require.Error(t, err)
		require.Empty(t, cfg.Name)
	})

	t.Run("no options", func(t *testing.T) {
		cfg := &testConfig{Level: 3}
		require.NoError(t, Apply(cfg))
		require.Equal(t, 3, cfg.Level)
	})

	t.Run("nil option", func(t *testing.T) {
		cfg := &testConfig{}
		require.NoError(t, Apply(cfg, nil, withLevel(2)))
		require.Equal(t, 2, cfg.Level)
	})
}
