package main

import (
	"context"
	"embed"
	"fmt"
	"os"

	"github.com/JaimeStill/expense-api/internal/expensetypes"
	"github.com/JaimeStill/expense-api/internal/infrastructure"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

//go:embed seeds/*.yaml
var seedFiles embed.FS

const defaultSeedFile = "seeds/expense_types.yaml"

type seedData struct {
	ExpenseTypes []expensetypes.SeedType `yaml:"expense_types"`
}

type seedResult struct {
	Seeded int `json:"seeded"`
}

func newSeedCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert or update expense types from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			types, err := loadSeedTypes(file)
			if err != nil {
				return err
			}

			return a.withInfra(cmd.Context(), func(ctx context.Context, infra *infrastructure.Infrastructure) error {
				n, err := expensetypes.New(infra.Database.Connection(), a.logger).Seed(ctx, types)
				if err != nil {
					return err
				}
				return a.print(seedResult{Seeded: n}, fmt.Sprintf("Seeded %d expense type(s).", n))
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file (default: built-in expense types)")
	return cmd
}

// loadSeedTypes reads path, or the embedded defaults when path is empty.
func loadSeedTypes(path string) ([]expensetypes.SeedType, error) {
	var (
		content []byte
		err     error
	)
	if path != "" {
		content, err = os.ReadFile(path)
	} else {
		content, err = seedFiles.ReadFile(defaultSeedFile)
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var data seedData
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(data.ExpenseTypes) == 0 {
		return nil, fmt.Errorf("seed file has no expense_types")
	}
	for i, t := range data.ExpenseTypes {
		if t.Name == "" {
			return nil, fmt.Errorf("expense_types[%d]: name required", i)
		}
	}
	return data.ExpenseTypes, nil
}
