package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abelbrown/goldmine/internal/fetch"
)

func (c *cli) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			cfg.LLM.APIKey = mask(cfg.LLM.APIKey)
			cfg.Cache.RedisPassword = mask(cfg.Cache.RedisPassword)

			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

// mask hides all but the last four characters of a secret.
func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

func (c *cli) topicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topics",
		Short: "List built-in topics and their channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range fetch.TopicNames() {
				fmt.Printf("%-14s %s\n", name, strings.Join(fetch.Topics[name], ", "))
			}
			fmt.Printf("%-14s %s\n", "(other)", strings.Join(fetch.DefaultChannels, ", "))
			return nil
		},
	}
}
