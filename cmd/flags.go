package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// uuidFlag reads a required UUID flag.
func uuidFlag(cmd *cobra.Command, name string) (uuid.UUID, error) {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return uuid.Nil, fmt.Errorf("--%s is required", name)
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --%s %q: %w", name, v, err)
	}
	return id, nil
}
