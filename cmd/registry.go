package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pancudaniel7/offline-stream-watcher/internal/adapter/function"
	"github.com/pancudaniel7/offline-stream-watcher/internal/core/entity"
	"github.com/pancudaniel7/offline-stream-watcher/internal/infra"
	"github.com/spf13/cobra"
)

type registryEntry struct {
	Stream    string   `json:"stream"`
	Functions []string `json:"functions"`
}

func newRegistryCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Print which functions each stream feeds, without polling",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := infra.InitServiceDefinition(logger)
			if err != nil {
				return err
			}
			// Nothing is invoked here, so handlers need not be resolvable.
			builder := infra.InitRegistryBuilder(logger, function.NewStaticResolver(), svc)
			reg, err := builder.Build(cmd.Context(), svc)
			if err != nil {
				return err
			}
			return printRegistry(cmd.OutOrStdout(), reg, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func printRegistry(w io.Writer, reg entity.StreamRegistry, asJSON bool) error {
	entries := make([]registryEntry, 0, len(reg))
	for _, stream := range reg.Streams() {
		e := registryEntry{Stream: stream}
		for _, ref := range reg[stream] {
			e.Functions = append(e.Functions, ref.FunctionName)
		}
		entries = append(entries, e)
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no stream subscriptions")
		return err
	}
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s\n", e.Stream); err != nil {
			return err
		}
		for _, fn := range e.Functions {
			if _, err := fmt.Fprintf(w, "  -> %s\n", fn); err != nil {
				return err
			}
		}
	}
	return nil
}
