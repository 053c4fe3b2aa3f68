package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pancudaniel7/offline-stream-watcher/internal/infra"
	"github.com/spf13/cobra"
)

func newPutCommand() *cobra.Command {
	var (
		partitionKey string
		timeout      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "put <stream> [data|-]",
		Short: "Append one record to a stream through the configured provider",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stream := args[0]
			var data []byte
			if len(args) == 1 || args[1] == "-" {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read record from stdin: %w", err)
				}
				data = b
			} else {
				data = []byte(args[1])
			}
			if partitionKey == "" {
				partitionKey = uuid.NewString()
			}

			backend, err := infra.InitProvider(logger, validator.New())
			if err != nil {
				return err
			}
			defer func() { _ = backend.Close() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			seq, err := backend.PutRecord(ctx, stream, partitionKey, data)
			if err != nil {
				return fmt.Errorf("put record to %q: %w", stream, err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), seq)
			return nil
		},
	}
	cmd.Flags().StringVarP(&partitionKey, "partition-key", "k", "", "partition key (default random)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "request timeout")
	return cmd
}
