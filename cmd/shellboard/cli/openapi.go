package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shellboard/shellboard/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		outputFile string
		baseURL    string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long: `Generate the OpenAPI 3.1 specification for the control panel API.
The spec covers authentication, script management, execution, users, settings,
audit queries, and restore targets.`,
		Example: `  shellboard openapi                 # print to stdout
  shellboard openapi -o spec.json    # write to file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(baseURL, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "Server URL to embed in the spec")

	return cmd
}

func runOpenAPI(baseURL, outputFile string) error {
	spec := openapi.Generate(baseURL)

	jsonBytes, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}
	jsonBytes = append(jsonBytes, '\n')

	if outputFile != "" {
		if err := os.WriteFile(outputFile, jsonBytes, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", outputFile, err)
		}
		fmt.Printf("Wrote OpenAPI spec to %s\n", outputFile)
		return nil
	}

	_, err = os.Stdout.Write(jsonBytes)
	return err
}
