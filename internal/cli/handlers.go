package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/maestro/internal/core"
	"github.com/valter-silva-au/maestro/pkg/models"
)

var (
	handlersJSON  bool
	handlersForce bool
	handlersRole  string
)

var handlersCmd = &cobra.Command{
	Use:   "handlers",
	Short: "List the registered specialist handlers",
	Long: `List every registered handler in registration order with its skills.

Handlers come from the built-in specialists followed by the definitions in the
handlers file (handlers_file in .maestro.yaml). With --role only that handler
is shown.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Registry == nil {
			return fmt.Errorf("handler registry not initialized")
		}

		out := cmd.OutOrStdout()
		handlers := Registry.Handlers()
		if handlersRole != "" {
			h, ok := Registry.Lookup(handlersRole)
			if !ok {
				return fmt.Errorf("no handler registered for role %q", handlersRole)
			}
			handlers = []core.Handler{h}
		}

		if handlersJSON {
			defs := make([]models.HandlerDefinition, 0, len(handlers))
			for _, h := range handlers {
				defs = append(defs, handlerDefinition(h))
			}
			data, err := json.MarshalIndent(defs, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting handlers as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		if handlersRole == "" {
			fmt.Fprintf(out, "%d handler(s):\n\n", Registry.Len())
		}
		for _, h := range handlers {
			fmt.Fprintf(out, "  %s\n", headerStyle.UnsetMarginBottom().Render(h.Role()))
			fmt.Fprintf(out, "    %s\n", helpStyle.Render(strings.Join(h.Skills(), ", ")))
		}
		return nil
	},
}

// handlerDefinition returns the definition a handler was built from, or one
// assembled from its Handler methods when it was not built from a definition.
func handlerDefinition(h core.Handler) models.HandlerDefinition {
	if d, ok := h.(interface {
		Definition() models.HandlerDefinition
	}); ok {
		return d.Definition()
	}
	return models.HandlerDefinition{
		Role:             h.Role(),
		Skills:           h.Skills(),
		QualityStandards: h.QualityStandards(),
	}
}

var handlersInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in handler definitions to the handlers file",
	Long: `Write the built-in specialists to the handlers file so they can be used
as a starting point for custom handlers. Custom definitions whose role matches
a built-in replace it.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if HandlerStore == nil {
			return fmt.Errorf("handler store not initialized")
		}

		existing, err := HandlerStore.Load()
		if err != nil {
			return err
		}
		if len(existing) > 0 && !handlersForce {
			return fmt.Errorf("%s already defines %d handler(s); use --force to overwrite", HandlerStore.Path(), len(existing))
		}

		defs := core.BuiltinHandlerDefinitions()
		if err := HandlerStore.Save(defs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d handler definition(s) to %s\n", len(defs), HandlerStore.Path())
		return nil
	},
}

func init() {
	handlersCmd.Flags().BoolVar(&handlersJSON, "json", false, "Output handlers as JSON")
	handlersCmd.Flags().StringVar(&handlersRole, "role", "", "Show only the handler with this role (case-insensitive)")
	handlersInitCmd.Flags().BoolVar(&handlersForce, "force", false, "Overwrite an existing handlers file")
	handlersCmd.AddCommand(handlersInitCmd)
	rootCmd.AddCommand(handlersCmd)
}
